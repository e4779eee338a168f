package routes

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors collects the per-field messages of a 422 response.
type fieldErrors map[string][]string

func (fe fieldErrors) add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

func (fe fieldErrors) empty() bool {
	return len(fe) == 0
}

// structErrors translates validator failures into the wire error map.
func structErrors(err error) fieldErrors {
	fe := fieldErrors{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fe.add("body", "is invalid")
		return fe
	}
	for _, v := range verrs {
		fe.add(v.Field(), messageFor(v))
	}
	return fe
}

func messageFor(v validator.FieldError) string {
	switch v.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must not exceed %s characters", v.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", v.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.Join(strings.Fields(v.Param()), ", "))
	default:
		return "is invalid"
	}
}
