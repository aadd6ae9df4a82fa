// Package form validates typed request payloads against their declared
// `validate` rules and reports field-level errors in field order.
package form

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError is a single message attached to a named form field.
type FieldError struct {
	Field   string
	Message string
}

// Errors is an ordered list of field errors. The zero value means valid.
type Errors []FieldError

// Add appends a message for field.
func (e *Errors) Add(field, message string) {
	*e = append(*e, FieldError{Field: field, Message: message})
}

// For returns the messages attached to field, in order.
func (e Errors) For(field string) []string {
	var out []string
	for _, fe := range e {
		if fe.Field == field {
			out = append(out, fe.Message)
		}
	}
	return out
}

// Any reports whether at least one error was recorded.
func (e Errors) Any() bool { return len(e) > 0 }

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return strings.Join(parts, "; ")
}

// Field returns the posted value of name with surrounding whitespace removed,
// so a blank entry fails `required`. Passwords are read untrimmed.
func Field(r *http.Request, name string) string {
	return strings.TrimSpace(r.PostFormValue(name))
}

// Validator checks payload structs. It is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// New builds a Validator that names fields after their `form` tag.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Validate runs the declared rules on payload, which must be a struct or a
// pointer to one. Rule failures come back as Errors; anything else is a
// programming error and is returned as is.
func (fv *Validator) Validate(payload any) (Errors, error) {
	err := fv.v.Struct(payload)
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, fmt.Errorf("validate %T: %w", payload, err)
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out.Add(fe.Field(), message(fe))
	}
	return out, nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Must be at most %s characters.", fe.Param())
	case "email":
		return "Must be a valid email address."
	case "excludesall":
		return "Contains characters that are not allowed."
	default:
		return "Invalid value."
	}
}
