package core

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"brineguard/internal/types"
)

// Validator wraps go-playground/validator for request payload validation.
// Handlers share one instance; the underlying validator caches struct
// metadata and is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a validator with struct-tag rules enabled.
func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// ValidateStruct validates a decoded request payload. Violations come back
// as a single 400 AppError with a per-field detail map, so clients see all
// problems at once.
func (val *Validator) ValidateStruct(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]any, len(verrs))
		for _, fe := range verrs {
			details[strings.ToLower(fe.Field())] = fe.Tag()
		}
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationBadPayload,
			"request validation failed",
			err,
			details,
		)
	}
	return types.NewAppError(types.ErrCodeValidationBadPayload, "request validation failed", err)
}
