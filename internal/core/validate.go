package core

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// String is not empty and not only whitespace
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	// One of the fixed expense categories
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).IsValid()
	})

	return v
}

// validateStruct runs the struct tags and maps the first failure to a domain error.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	switch fe.Field() {
	case "ID":
		return ErrEmptyID
	case "Title", "Source":
		if fe.Tag() == "max" {
			return ErrTextTooLong
		}
		if fe.Field() == "Source" {
			return ErrEmptySource
		}
		return ErrEmptyTitle
	case "Category":
		return ErrInvalidCategory
	case "OccurredAt":
		return ErrZeroDate
	default:
		return err
	}
}
