// package validation provides helper functions for request data validation.
// It uses the go-playground/validator library and includes custom validation rules.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate = validator.New()

	customIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	// Vanity numbers such as +1-555-SALES-01 are allowed.
	phoneNumberPattern = regexp.MustCompile(`^\+?[a-zA-Z0-9][a-zA-Z0-9 ()-]{1,31}$`)
)

// init registers custom validation rules with the validator instance.
func init() {
	rules := map[string]*regexp.Regexp{
		"custom_id":    customIDPattern,
		"phone_number": phoneNumberPattern,
	}

	for tag, re := range rules {
		err := validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			if fl.Field().String() == "" {
				// Empty strings are left to the 'required' tag.
				return true
			}

			return re.MatchString(fl.Field().String())
		})
		if err != nil {
			panic(fmt.Sprintf("failed to register custom validation %q: %v", tag, err))
		}
	}
}

// ValidationError is a custom error type that holds a slice of validation error messages.
type ValidationError struct {
	Errors []string
}

// Error returns a single string concatenating all validation error messages.
func (v *ValidationError) Error() string {
	return strings.Join(v.Errors, ", ")
}

// ValidateStruct performs validation on a given struct based on its validation tags.
// If validation fails, it returns a *ValidationError with user-friendly messages.
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		var validationErrors []string

		for _, err := range err.(validator.ValidationErrors) {
			var message string

			switch err.Tag() {
			case "custom_id":
				message = fmt.Sprintf(
					"field '%s' must contain only letters, numbers, hyphens, and underscores",
					err.Field(),
				)
			case "phone_number":
				message = fmt.Sprintf(
					"field '%s' must be a phone number of letters, digits, spaces, hyphens, and parentheses",
					err.Field(),
				)
			case "oneof":
				message = fmt.Sprintf("field '%s' must be one of [%s]", err.Field(), err.Param())
			default:
				message = fmt.Sprintf(
					"field '%s' failed on the '%s' tag",
					err.Field(),
					err.Tag(),
				)
			}
			validationErrors = append(validationErrors, message)
		}

		return &ValidationError{Errors: validationErrors}
	}

	return nil
}
