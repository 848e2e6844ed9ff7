package core

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"airwatch/internal/types"
)

// Validator wraps go-playground/validator and registers the AirWatch
// domain tags. Field names in reported errors use the json tag.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// ValidationError describes a single failed field rule.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult collects every failed rule of one validation pass.
type ValidationResult struct {
	Errors []ValidationError `json:"errors,omitempty"`
}

// IsValid reports whether no errors were recorded.
func (r ValidationResult) IsValid() bool { return len(r.Errors) == 0 }

// NewValidator creates a new Validator and registers custom validation tags.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("pollutant", validatePollutant); err != nil {
		// Registration only fails for an empty tag or nil func.
		panic(fmt.Sprintf("registering pollutant validator: %v", err))
	}

	return &Validator{
		validate: v,
		logger:   logger,
	}
}

// validatePollutant accepts the tracked pollutant identifiers. Empty values
// pass so the tag composes with omitempty/required.
func validatePollutant(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	return types.Pollutant(s).Valid()
}

// ValidateStruct validates req and returns a *types.AppError whose code is
// derived from the first failing field. All failures are listed under
// details["validation_errors"].
func (v *Validator) ValidateStruct(req any) error {
	result := v.ValidateAll(req)
	if result.IsValid() {
		return nil
	}

	first := result.Errors[0]
	return types.NewAppErrorWithDetails(
		types.ErrorCode(first.Code),
		first.Message,
		nil,
		map[string]any{"validation_errors": result.Errors},
	)
}

// ValidateAll validates req and returns every failure rather
// than an error value.
func (v *Validator) ValidateAll(req any) ValidationResult {
	var result ValidationResult

	err := v.validate.Struct(req)
	if err == nil {
		return result
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		if v.logger != nil {
			v.logger.Error("validator rejected input type", slog.String("error", err.Error()))
		}
		result.Errors = append(result.Errors, ValidationError{
			Field:   "",
			Code:    string(types.ErrCodeValidationFailed),
			Message: "request could not be validated",
		})
		return result
	}

	for _, fe := range verrs {
		result.Errors = append(result.Errors, ValidationError{
			Field:   fieldPath(fe),
			Code:    string(codeFor(fe)),
			Message: messageFor(fe),
		})
	}
	return result
}

// fieldPath strips the root struct name from the namespace:
// "evaluateRequest.history[2].pm25" -> "history[2].pm25".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func codeFor(fe validator.FieldError) types.ErrorCode {
	if fe.Tag() == "required" {
		return types.ErrCodeValidationMissingField
	}
	path := fieldPath(fe)
	switch {
	case fe.Tag() == "pollutant":
		return types.ErrCodeValidationInvalidPollutant
	case fe.Field() == "lat":
		return types.ErrCodeValidationInvalidLat
	case fe.Field() == "lng":
		return types.ErrCodeValidationInvalidLng
	case fe.Field() == "history" && fe.Tag() == "max":
		return types.ErrCodeValidationHistorySize
	case fe.Field() == "time_index":
		return types.ErrCodeValidationTimeIndex
	case strings.HasPrefix(path, "reading") || strings.HasPrefix(path, "history"):
		return types.ErrCodeValidationInvalidReading
	default:
		return types.ErrCodeValidationFailed
	}
}

func messageFor(fe validator.FieldError) string {
	path := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", path)
	case "pollutant":
		return fmt.Sprintf("%s must be one of no2, pm25, o3", path)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", path, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", path, fe.Param())
	case "max":
		return fmt.Sprintf("%s must contain at most %s items", path, fe.Param())
	default:
		return fmt.Sprintf("%s failed the %q rule", path, fe.Tag())
	}
}
