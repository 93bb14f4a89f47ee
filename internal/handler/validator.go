package handler

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// validate is shared across handlers; validator.Validate caches struct
// metadata internally and is safe for concurrent use.
var (
	validateOnce sync.Once
	validateInst *validator.Validate
)

func validate() *validator.Validate {
	validateOnce.Do(func() {
		validateInst = validator.New(validator.WithRequiredStructEnabled())
		// Report fields by their wire names ("streamId"), not the Go
		// struct names ("StreamID").
		validateInst.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validateInst
}

// checkStruct runs go-playground/validator over a tagged request struct
// and returns EVERY violated field, not just the first — the client gets
// the whole list in one round trip.
func checkStruct(req any) []FieldError {
	err := validate().Struct(req)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "body", Message: "request body is invalid"}}
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field:   fe.Field(),
			Message: validationMessage(fe),
		})
	}
	return fields
}

// validationMessage renders a tag failure as something a human can act
// on rather than the raw tag name.
func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "max":
		return fmt.Sprintf("must be %s characters or less", fe.Param())
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}
