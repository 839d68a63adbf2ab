// Package validate runs struct-tag schemas (go-playground/validator) and turns
// the failures into apperror.FieldError values a form can display.
//
// Input structs describe themselves with three tags:
//
//	Title string `form:"title" label:"Title" validate:"required,max=100"`
//
// form is the field name reported back (it matches the HTML input name),
// label is the human name used in messages, and validate holds the rules.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/snippet-saver/internal/apperror"
)

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		instance.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
	return instance
}

// Struct validates s and returns one FieldError per failed rule, in struct
// field order. A nil result means s is valid.
func Struct(s any) []apperror.FieldError {
	err := get().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []apperror.FieldError{{Field: "", Message: err.Error()}}
	}

	labels := labelsOf(s)
	out := make([]apperror.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		label := labels[fe.StructField()]
		if label == "" {
			label = fe.Field()
		}
		out = append(out, apperror.FieldError{
			Field:   fe.Field(),
			Message: message(label, fe),
		})
	}
	return out
}

// Error is Struct wrapped as a single validation AppError, or nil.
func Error(s any) error {
	if fields := Struct(s); len(fields) > 0 {
		return apperror.InvalidFields(fields)
	}
	return nil
}

func message(label string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", label, strings.Join(strings.Fields(fe.Param()), ", "))
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}

func labelsOf(s any) map[string]string {
	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	labels := make(map[string]string)
	if t.Kind() != reflect.Struct {
		return labels
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if l := f.Tag.Get("label"); l != "" {
			labels[f.Name] = l
		}
	}
	return labels
}
