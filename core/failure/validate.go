package failure

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator that reports fields by their json name.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Collect adds the failures of a validator.Struct error to r. Errors of
// any other type are recorded against "request".
func (r *ValidationResult) Collect(err error) {
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		r.Add("request", err.Error())
		return
	}
	for _, fe := range verrs {
		r.Add(fe.Field(), reason(fe))
	}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "nefield":
		return "must differ from " + strings.ToLower(fe.Param())
	default:
		return fmt.Sprintf("failed %q", fe.Tag())
	}
}
