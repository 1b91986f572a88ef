package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ieltsprep/practice-service/internal/services"
	"github.com/ieltsprep/practice-service/internal/utils"
)

type BandHandler struct {
	BaseHandler
	bandService services.BandService
}

func NewBandHandler(bandService services.BandService, logger utils.Logger) *BandHandler {
	return &BandHandler{
		BaseHandler: NewBaseHandler(logger),
		bandService: bandService,
	}
}

// ListBands returns every band table, stored overrides included
// @Router /bands [get]
func (h *BandHandler) ListBands(c *gin.Context) {
	tables, err := h.bandService.List(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, tables)
}

// GetBand returns one band table
// @Router /bands/{name} [get]
func (h *BandHandler) GetBand(c *gin.Context) {
	name := ParseStringIDParam(c, "name")
	if name == "" {
		return
	}

	table, err := h.bandService.Get(c.Request.Context(), name)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, table)
}

// ImportBand replaces a band table from an uploaded .xlsx file
// @Accept multipart/form-data
// @Param file formData file true "Workbook with Range and Band columns"
// @Router /bands/{name}/import [post]
func (h *BandHandler) ImportBand(c *gin.Context) {
	name := ParseStringIDParam(c, "name")
	if name == "" {
		return
	}

	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Importing band table", "name", name)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Missing file", err, err.Error())
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Unreadable file", err, err.Error())
		return
	}
	defer file.Close()

	table, err := h.bandService.Import(c.Request.Context(), name, file, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Band table imported", table, "name", name)
}
