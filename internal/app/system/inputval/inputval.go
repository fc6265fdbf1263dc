// Package inputval provides form input validation using go-playground/validator.
//
// Define an input struct with validate tags, populate it from form values, and
// call Validate to get user-friendly error messages.
//
// Example:
//
//	type ContactInput struct {
//	    Name    string `validate:"required,min=2,max=200" label:"Name"`
//	    Email   string `validate:"required,contains=@,max=254" label:"Email"`
//	    Message string `validate:"required,min=10,max=5000" label:"Message"`
//	}
//
//	input := ContactInput{
//	    Name:    r.FormValue("name"),
//	    Email:   r.FormValue("email"),
//	    Message: r.FormValue("message"),
//	}
//
//	if res := inputval.Validate(input); res.HasErrors() {
//	    // res.First() gives the first error message for display
//	    renderWithError(w, r, res.First())
//	    return
//	}
package inputval

import (
	"errors"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/alquimista/website/internal/domain/models"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Result holds validation results with user-friendly messages.
type Result struct {
	Errors []FieldError
}

// FieldError represents a validation error for a single field.
type FieldError struct {
	Field   string
	Label   string
	Message string
}

// HasErrors returns true if there are any validation errors.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// First returns the first error message, or empty string if no errors.
func (r *Result) First() string {
	if len(r.Errors) > 0 {
		return r.Errors[0].Message
	}
	return ""
}

// All returns all error messages joined with "; ".
func (r *Result) All() string {
	if len(r.Errors) == 0 {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// customValidator is a singleton validator with custom rules registered.
var (
	customValidator *validator.Validate
	validatorOnce   sync.Once
)

// getValidator returns the singleton validator with custom rules.
func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		customValidator = validator.New(validator.WithRequiredStructEnabled())

		// role: validates against the profile roles (visitor, student)
		_ = customValidator.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			return IsValidRole(fl.Field().String())
		})

		// httpurl: validates that string is a valid http/https URL
		_ = customValidator.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
			return IsValidHTTPURL(fl.Field().String())
		})

		// objectid: validates that string is a valid MongoDB ObjectID hex
		_ = customValidator.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return IsValidObjectID(fl.Field().String())
		})

		// imagesize: validates against the milestone image size presets
		_ = customValidator.RegisterValidation("imagesize", func(fl validator.FieldLevel) bool {
			return models.IsValidImageSize(fl.Field().String())
		})
	})
	return customValidator
}

// Validate validates a struct and returns a Result with user-friendly errors.
// The struct should have `validate` tags for rules and optional `label` tags
// for user-friendly field names.
//
// Commonly used rules:
//   - required: field must not be empty
//   - email: field must be a valid email address
//   - contains=@: field must contain the given substring
//   - oneof=a b c: field must be one of the specified values
//   - min=N / max=N: string length or numeric value bounds
//   - omitempty: skip remaining rules when the field is empty
//
// Custom rules registered by this package:
//   - role: field must be a valid profile role (visitor, student)
//   - httpurl: field must be a valid http:// or https:// URL
//   - objectid: field must be a valid MongoDB ObjectID hex string
//   - imagesize: field must be an image size preset (small, medium, large, full)
func Validate(s any) *Result {
	result := &Result{}

	err := getValidator().Struct(s)
	if err == nil {
		return result
	}

	labels := getFieldLabels(s)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			label := labels[fe.StructField()]
			if label == "" {
				label = fe.StructField()
			}

			msg := formatMessage(label, fe.Tag(), fe.Param())
			result.Errors = append(result.Errors, FieldError{
				Field:   fe.StructField(),
				Label:   label,
				Message: msg,
			})
		}
	}

	return result
}

// getFieldLabels extracts the "label" tag from struct fields, keyed by field name.
func getFieldLabels(s any) map[string]string {
	labels := make(map[string]string)

	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return labels
	}

	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if label := field.Tag.Get("label"); label != "" {
			labels[field.Name] = label
		}
	}

	return labels
}

// formatMessage creates a user-friendly message for a validation rule.
func formatMessage(label, rule, param string) string {
	switch rule {
	case "required":
		return label + " is required."
	case "email":
		return "A valid email address is required."
	case "contains":
		return label + " must contain \"" + param + "\"."
	case "oneof":
		return label + " must be one of: " + strings.ReplaceAll(param, " ", ", ") + "."
	case "min":
		return label + " must be at least " + param + " characters."
	case "max":
		return label + " must be at most " + param + " characters."
	case "role":
		return label + " must be one of: " + strings.Join(models.AllRoles(), ", ") + "."
	case "httpurl":
		return label + " must be a valid URL starting with http:// or https://."
	case "objectid":
		return label + " is not a valid ID."
	case "imagesize":
		return label + " must be one of: " + strings.Join(models.AllImageSizes(), ", ") + "."
	default:
		return label + " is invalid."
	}
}

// IsValidRole checks if the given role (case-insensitive) is a valid profile role.
func IsValidRole(role string) bool {
	return models.IsValidRole(strings.ToLower(strings.TrimSpace(role)))
}

// IsValidHTTPURL checks if the given string is a valid http:// or https:// URL.
func IsValidHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// IsValidObjectID checks if the given string is a valid MongoDB ObjectID hex.
func IsValidObjectID(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := primitive.ObjectIDFromHex(s)
	return err == nil
}
