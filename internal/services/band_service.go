package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ieltsprep/practice-service/internal/cache"
	"github.com/ieltsprep/practice-service/internal/models"
	"github.com/ieltsprep/practice-service/internal/repositories"
	"github.com/ieltsprep/practice-service/internal/scoring"
)

type bandService struct {
	repo   repositories.Repository
	cache  cache.CacheService
	logger *slog.Logger
}

func NewBandService(repo repositories.Repository, cacheService cache.CacheService, logger *slog.Logger) BandService {
	return &bandService{
		repo:   repo,
		cache:  cacheService,
		logger: logger,
	}
}

// Get returns the stored override of name, else the built-in table
func (s *bandService) Get(ctx context.Context, name string) (*scoring.BandTable, error) {
	return loadBandTable(ctx, s.repo, name)
}

// List merges stored overrides over the built-in tables, sorted by name
func (s *bandService) List(ctx context.Context) ([]*scoring.BandTable, error) {
	byName := make(map[string]*scoring.BandTable)
	for _, t := range scoring.BuiltinBandTables() {
		byName[t.Name] = t
	}

	stored, err := s.repo.BandTable().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list band tables: %w", err)
	}
	for _, row := range stored {
		t, err := decodeBandTable(row)
		if err != nil {
			s.logger.Warn("Skipping unreadable band table", "name", row.Name, "error", err)
			continue
		}
		byName[t.Name] = t
	}

	tables := make([]*scoring.BandTable, 0, len(byName))
	for _, t := range byName {
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	return tables, nil
}

// Import reads a band table from the first sheet of an .xlsx workbook.
// The sheet has a header row followed by rows of (range, band). Every cached
// score report is dropped afterwards since any of them may use the table.
func (s *bandService) Import(ctx context.Context, name string, r io.Reader, actor Actor) (*scoring.BandTable, error) {
	s.logger.Info("Importing band table", "name", name, "user_id", actor.UserID)

	if err := requireAdmin(actor, "band_table", 0, "import"); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if !scoring.ValidBandTableName(name) {
		return nil, NewValidationError("name", "band table name must be lower case letters, digits or underscores", name)
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBandSheet, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidBandSheet)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBandSheet, err)
	}

	entries, err := parseBandRows(rows)
	if err != nil {
		return nil, err
	}
	table, err := scoring.NewBandTable(name, entries)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBandSheet, err)
	}

	data, err := json.Marshal(table.Entries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode band table: %w", err)
	}
	if err := s.repo.BandTable().Upsert(ctx, &models.BandTable{Name: name, Entries: data}); err != nil {
		return nil, fmt.Errorf("failed to store band table: %w", err)
	}

	if err := s.cache.DeletePattern(ctx, cache.ScoreReportPattern()); err != nil {
		s.logger.Warn("Failed to invalidate cached score reports", "band_table", name, "error", err)
	}

	s.logger.Info("Band table imported successfully", "name", name, "entries", len(table.Entries))
	return table, nil
}

// ===== HELPER FUNCTIONS =====

func parseBandRows(rows [][]string) ([]scoring.BandEntry, error) {
	var entries []scoring.BandEntry
	for i, row := range rows {
		if i == 0 || len(row) == 0 || strings.TrimSpace(strings.Join(row, "")) == "" {
			continue // header or blank row
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("%w: row %d needs a range and a band", ErrInvalidBandSheet, i+1)
		}
		band, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d band %q is not a number", ErrInvalidBandSheet, i+1, row[1])
		}
		entries = append(entries, scoring.BandEntry{Range: strings.TrimSpace(row[0]), Band: band})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no band rows", ErrInvalidBandSheet)
	}
	return entries, nil
}

// loadBandTable prefers a stored override over the built-in table of name
func loadBandTable(ctx context.Context, repo repositories.Repository, name string) (*scoring.BandTable, error) {
	row, err := repo.BandTable().Get(ctx, name)
	if err == nil {
		return decodeBandTable(row)
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get band table: %w", err)
	}

	if t, ok := scoring.BuiltinBandTable(name); ok {
		return t, nil
	}
	return nil, ErrBandTableNotFound
}

func decodeBandTable(row *models.BandTable) (*scoring.BandTable, error) {
	var entries []scoring.BandEntry
	if err := json.Unmarshal(row.Entries, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode band table %s: %w", row.Name, err)
	}
	return scoring.NewBandTable(row.Name, entries)
}
