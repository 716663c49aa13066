package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"shopapi/internal/apperr"
)

var (
	// Matches any 10 consecutive digits, not an anchored full-string
	// match. Kept byte-for-byte compatible with the deployed behavior;
	// see DESIGN.md before tightening.
	phonePattern = regexp.MustCompile(`\d{10}`)

	imageExtPattern = regexp.MustCompile(`(?i)\.(jpeg|jpg|png|webp|gif)$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})

	v.RegisterValidation("imageurl", func(fl validator.FieldLevel) bool {
		return imageExtPattern.MatchString(fl.Field().String())
	})

	return v
}

// Struct validates a model and returns a single error listing every
// violated field, or nil.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.Internal(err)
	}

	fields := make([]apperr.FieldError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fields = append(fields, apperr.FieldError{
			Field:   fieldName(fe),
			Message: message(fe),
		})
	}
	return apperr.Validation(fields)
}

// IsImageURL reports whether v ends in a recognized image extension.
func IsImageURL(v string) bool {
	return imageExtPattern.MatchString(v)
}

// IsPhone reports whether v contains 10 consecutive digits.
func IsPhone(v string) bool {
	return phonePattern.MatchString(v)
}

func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(name[:1]) + name[1:]
}

func message(fe validator.FieldError) string {
	field := fieldName(fe)
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + fe.Param()
	case "max":
		return field + " must be at most " + fe.Param()
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "phone":
		return field + " is not a valid phone number"
	case "imageurl":
		return field + " is not a valid image URL"
	default:
		return field + " is invalid"
	}
}
