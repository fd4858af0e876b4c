// Package validation turns go-playground/validator tag failures into the
// VALIDATION_ERROR shape used by the API, one FieldError per failing field.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names so clients can map errors onto their form fields
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Struct validates v against its `validate` tags. It returns nil or a
// *models.AppError carrying every failing field.
func Struct(v interface{}) error {
	fields := Fields(v)
	if len(fields) == 0 {
		return nil
	}
	return models.NewFieldValidationError(fields...)
}

// Fields returns the failing fields of v without wrapping them, so callers can merge
// them with their own checks.
func Fields(v interface{}) []models.FieldError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []models.FieldError{{Field: "body", Reason: err.Error()}}
	}
	out := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, models.FieldError{Field: fieldPath(fe), Reason: reason(fe)})
	}
	return out
}

// Collect gathers ad-hoc field checks next to tag validation.
type Collect struct {
	fields []models.FieldError
}

// Add records a failing field.
func (c *Collect) Add(field, reason string) {
	c.fields = append(c.fields, models.FieldError{Field: field, Reason: reason})
}

// Check records a failing field when ok is false.
func (c *Collect) Check(ok bool, field, reason string) {
	if !ok {
		c.Add(field, reason)
	}
}

// Merge appends tag-validation failures for v.
func (c *Collect) Merge(v interface{}) {
	c.fields = append(c.fields, Fields(v)...)
}

// Err returns nil or a VALIDATION_ERROR listing every recorded field.
func (c *Collect) Err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return models.NewFieldValidationError(c.fields...)
}

// strips the root struct name: "SubmitInput.employment_info.employer" -> "employment_info.employer"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	}
	return "failed " + fe.Tag() + " check"
}
