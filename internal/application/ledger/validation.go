package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/condo/backend/internal/domain/shared"
	"github.com/go-playground/validator/v10"
)

var commandValidator = validator.New(validator.WithRequiredStructEnabled())

// ValidateCommand checks a command's `validate` tags and converts failures into a
// VALIDATION_ERROR domain error, so malformed input is rejected before any store access.
func ValidateCommand(cmd any) error {
	err := commandValidator.Struct(cmd)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return shared.NewValidationError("invalid command: %v", err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, describeFieldError(fe))
	}
	return shared.NewValidationError("%s", strings.Join(parts, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "unique":
		return fmt.Sprintf("%s must not contain duplicates", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
