package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rendis/codeflow/pkg/schema"
)

// validate is a singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names, matching what clients send.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// Struct validates v using its `validate` struct tags. The first failing
// field is reported in a VALIDATION_ERROR whose details name the field and tag.
func Struct(v any) error {
	if v == nil {
		return schema.NewError(schema.ErrCodeValidation, "request cannot be nil")
	}

	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return schema.NewError(schema.ErrCodeValidation, err.Error()).WithCause(err)
	}

	fe := verrs[0]
	return schema.NewError(schema.ErrCodeValidation, describe(fe)).
		WithCause(err).
		WithDetails(map[string]any{"field": fe.Field(), "tag": fe.Tag()})
}

// FailedField returns the field named in a Struct error, or "".
func FailedField(err error) string {
	var ce *schema.CodeflowError
	if !errors.As(err, &ce) || ce.Details == nil {
		return ""
	}
	f, _ := ce.Details["field"].(string)
	return f
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s: field is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s: must not exceed %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s]", fe.Field(), fe.Param())
	case "uuid4", "uuid":
		return fmt.Sprintf("%s: must be a UUID", fe.Field())
	default:
		return fmt.Sprintf("%s: validation failed (%s)", fe.Field(), fe.Tag())
	}
}
