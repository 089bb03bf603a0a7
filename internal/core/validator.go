package core

import (
	"log/slog"

	"github.com/go-playground/validator/v10"

	"commutewatch/internal/types"
)

// Validator wraps go-playground/validator so handlers can validate request
// bodies and get back a client-safe AppError with per-field details.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator using struct tag validation on json field
// names.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// ValidateStruct validates s against its `validate` tags. Returns nil when
// valid, otherwise a *types.AppError with code validation_missing_required_field
// for absent fields or validation_malformed_body for constraint violations,
// carrying the offending fields in Details.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		v.logger.Error("validator internal error", slog.String("error", err.Error()))
		return types.NewAppError(types.ErrCodeInternalUnexpected, "request validation failed", err)
	}

	fields := make(map[string]any, len(fieldErrs))
	code := types.ErrCodeValidationMalformedBody
	for _, fe := range fieldErrs {
		fields[fe.Field()] = fe.Tag()
		if fe.Tag() == "required" {
			code = types.ErrCodeValidationMissingField
		}
	}

	return types.NewAppErrorWithDetails(code, "request validation failed", err, map[string]any{
		"fields": fields,
	})
}
