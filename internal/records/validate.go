package records

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce     sync.Once
	validatorInstance *validator.Validate
)

func structValidator() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validatorInstance = v
	})
	return validatorInstance
}

// Validate checks the `validate` struct tags of record and returns a *ValidationError
// naming every failing field.
func Validate(record any) error {
	err := structValidator().Struct(record)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}
	fields := make(map[string]string, len(fieldErrors))
	for _, fieldErr := range fieldErrors {
		fields[fieldErr.Field()] = describeRule(fieldErr)
	}
	return &ValidationError{Fields: fields}
}

func describeRule(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of " + fieldErr.Param()
	case "datetime":
		return "must match layout " + fieldErr.Param()
	case "gte":
		return "must be at least " + fieldErr.Param()
	case "max":
		return "must be at most " + fieldErr.Param() + " characters"
	default:
		return "failed " + fieldErr.Tag() + " rule"
	}
}
