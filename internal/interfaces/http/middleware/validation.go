package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/condo/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator makes binding errors report JSON and form field names
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return fld.Name
		})
	}
}

// DescribeBindingError classifies a request binding error into an API error code and message
func DescribeBindingError(err error) (string, string) {
	var (
		syntaxErr   *json.SyntaxError
		typeErr     *json.UnmarshalTypeError
		tooLarge    *http.MaxBytesError
		validateErr validator.ValidationErrors
	)
	switch {
	case errors.As(err, &tooLarge):
		return dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size"
	case errors.Is(err, io.EOF):
		return dto.ErrCodeInvalidJSON, "Request body is empty"
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return dto.ErrCodeInvalidJSON, "Request body is not valid JSON"
	case errors.As(err, &typeErr):
		return dto.ErrCodeInvalidJSON, "Field " + typeErr.Field + " has the wrong type"
	case errors.As(err, &validateErr):
		parts := make([]string, 0, len(validateErr))
		for _, fe := range validateErr {
			parts = append(parts, fe.Field()+": "+validationMessage(fe))
		}
		return dto.ErrCodeValidation, strings.Join(parts, "; ")
	default:
		return dto.ErrCodeBadRequest, err.Error()
	}
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min", "gte":
		return "Must be at least " + e.Param()
	case "max", "lte":
		return "Must be at most " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "oneof":
		return "Must be one of: " + e.Param()
	default:
		return "Invalid value"
	}
}
