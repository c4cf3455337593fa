package services

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateStruct runs the `validate` tags on a request struct and folds every
// field failure into one ValidationFailed error.
func validateStruct(req interface{}) *AppError {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return Invalid(err.Error())
	}

	var builder strings.Builder
	for i, fe := range fieldErrs {
		if i > 0 {
			builder.WriteString("; ")
		}
		builder.WriteString(fieldErrorMessage(fe))
	}
	return Invalid(builder.String())
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("'%s' is required", fe.Field())
	case "max":
		return fmt.Sprintf("'%s' must be at most %s characters", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("'%s' must be greater than %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("'%s' must be one of: %s", fe.Field(), fe.Param())
	case "url":
		return fmt.Sprintf("'%s' must be a valid URL", fe.Field())
	case "uuid":
		return fmt.Sprintf("'%s' must be a valid UUID", fe.Field())
	default:
		return fmt.Sprintf("'%s' failed validation (%s)", fe.Field(), fe.Tag())
	}
}
