package usecase

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		n := 0
		for _, r := range fl.Field().String() {
			if r >= '0' && r <= '9' {
				n++
			}
		}
		return n >= 9 && n <= 15
	})
	return v
}

// check runs the struct tags of v and converts failures into field errors
// keyed by JSON path, e.g. items[0].quantity.
func check(v any) *ValidationError {
	ve := &ValidationError{}
	err := validate.Struct(v)
	if err == nil {
		return ve
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		ve.Add("body", err.Error())
		return ve
	}
	for _, fe := range errs {
		ve.Add(fieldPath(fe.Namespace()), fieldMessage(fe))
	}
	return ve
}

func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "phone":
		return "must be a valid phone number"
	case "min":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.String {
			return "must have at least " + fe.Param() + " " + unit(fe.Kind())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.String {
			return "must have at most " + fe.Param() + " " + unit(fe.Kind())
		}
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "url":
		return "must be a valid URL"
	}
	return "is invalid (" + fe.Tag() + ")"
}

func unit(k reflect.Kind) string {
	if k == reflect.Slice {
		return "entries"
	}
	return "characters"
}

func nonNegative(ve *ValidationError, field string, d *decimal.Decimal) {
	if d != nil && d.IsNegative() {
		ve.Add(field, "must not be negative")
	}
}
