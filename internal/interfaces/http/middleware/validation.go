package middleware

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/CarsonReik/Compr-sub000/internal/domain/listing"
	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
)

// SetupValidator configures gin's validator: error messages name fields by
// their JSON tags, and the platform/condition vocabularies become binding
// tags so enum typos are rejected at the edge.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("platformcode", func(fl validator.FieldLevel) bool {
		return platform.Code(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("condition", func(fl validator.FieldLevel) bool {
		return listing.Condition(fl.Field().String()).IsValid()
	})
}

// ValidationMessage renders one validator error in plain words
func ValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "uuid":
		return e.Field() + " must be a valid UUID"
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	case "platformcode":
		return e.Field() + " is not a supported platform"
	case "condition":
		return e.Field() + " is not a valid condition"
	default:
		return e.Field() + " is invalid"
	}
}
