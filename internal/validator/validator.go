package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ieltsprep/practice-service/internal/models"
	"github.com/ieltsprep/practice-service/internal/scoring"
)

// Validator combines struct tag validation with quiz document lint
type Validator struct {
	structValidator *validator.Validate
	quizLinter      *QuizLinter
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator: structValidator,
		quizLinter:      NewQuizLinter(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate performs struct validation, then lints quiz documents.
// Lint warnings never fail validation; lint errors do.
func (v *Validator) Validate(s interface{}) error {
	if err := v.ValidateStruct(s); err != nil {
		if errs := ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}

	if quiz, ok := s.(*models.Quiz); ok {
		if errs := v.quizLinter.Lint(quiz).Errors(); len(errs) > 0 {
			return errs
		}
	}
	return nil
}

// Quiz returns the quiz linter
func (v *Validator) Quiz() *QuizLinter {
	return v.quizLinter
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("quiz_skill", validateQuizSkill)
	validate.RegisterValidation("band_table", validateBandTable)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateQuizSkill(fl validator.FieldLevel) bool {
	switch models.QuizSkill(fl.Field().String()) {
	case models.SkillReading, models.SkillListening:
		return true
	}
	return false
}

// validateBandTable accepts built-in tables and well-formed names of stored
// ones. Whether a stored table exists is checked by the services.
func validateBandTable(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if _, ok := scoring.BuiltinBandTable(name); ok {
		return true
	}
	return scoring.ValidBandTableName(name)
}
