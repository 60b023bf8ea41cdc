// Package validation checks and normalizes contact form submissions.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"brhygiene/internal/domain"
	apperrors "brhygiene/pkg/errors"
)

const (
	countryCode   = "91"
	mobileDigits  = 10
	fallbackField = "*"
)

var (
	nameRegex   = regexp.MustCompile(`^[a-zA-Z\s.'-]+$`)
	emailRegex  = regexp.MustCompile(`^[^\s@]+@(?:[^\s@.]+\.)+[^\s@.]{2,}$`)
	mobileRegex = regexp.MustCompile(`^[6-9]\d{9}$`)
)

// messages holds the user-facing message per field and failing tag.
var messages = map[string]map[string]string{
	"name": {
		"person_name": "Name must contain only letters, spaces, apostrophes, hyphens, or periods.",
		"max":         "Name must not exceed 100 characters.",
		fallbackField: "Please enter your full name (min 2 characters).",
	},
	"phone": {
		fallbackField: "Enter a valid 10-digit Indian mobile number.",
	},
	"email": {
		"max":         "Email address must not exceed 254 characters.",
		fallbackField: "Enter a valid email address (e.g. you@company.com).",
	},
	"subject": {
		"max":         "Inquiry type must not exceed 100 characters.",
		fallbackField: "Please select an inquiry type.",
	},
	"message": {
		"max":         "Message must not exceed 5000 characters.",
		fallbackField: "Message must be at least 10 characters.",
	},
}

// candidate is the trimmed form the struct tags are evaluated against.
type candidate struct {
	Name    string `json:"name" validate:"required,min=2,max=100,person_name"`
	Phone   string `json:"phone" validate:"required,in_mobile"`
	Email   string `json:"email" validate:"required,max=254,contact_email"`
	Subject string `json:"subject" validate:"required,max=100"`
	Message string `json:"message" validate:"required,min=10,max=5000"`
}

// Validator validates inquiry forms. It holds no per-call state and is safe
// for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// New creates a validator with the inquiry rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("person_name", func(fl validator.FieldLevel) bool {
		return nameRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("in_mobile", func(fl validator.FieldLevel) bool {
		_, ok := NormalizePhone(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("contact_email", func(fl validator.FieldLevel) bool {
		return emailRegex.MatchString(fl.Field().String())
	})

	return &Validator{validate: v}
}

// Validate checks every field of the form. On success it returns an inquiry
// with trimmed fields and the phone in display form; the identifier and
// timestamp are left for the store. On failure it returns FieldErrors with one
// message per invalid field and a nil inquiry.
func (v *Validator) Validate(form domain.InquiryForm) (*domain.Inquiry, error) {
	c := candidate{
		Name:    strings.TrimSpace(form.Name),
		Phone:   strings.TrimSpace(form.Phone),
		Email:   strings.TrimSpace(form.Email),
		Subject: strings.TrimSpace(form.Subject),
		Message: strings.TrimSpace(form.Message),
	}

	if err := v.validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		fieldErrors := make(apperrors.FieldErrors, len(verrs))
		for _, fe := range verrs {
			fieldErrors[fe.Field()] = messageFor(fe.Field(), fe.Tag())
		}
		return nil, fieldErrors
	}

	phone, _ := NormalizePhone(c.Phone)
	return &domain.Inquiry{
		Name:    c.Name,
		Email:   c.Email,
		Phone:   phone,
		Subject: c.Subject,
		Message: c.Message,
	}, nil
}

func messageFor(field, tag string) string {
	byTag, ok := messages[field]
	if !ok {
		return "Invalid value."
	}
	if msg, ok := byTag[tag]; ok {
		return msg
	}
	return byTag[fallbackField]
}

// NormalizePhone strips separators from a regional mobile number, drops an
// optional 91 country prefix and returns it as "+91 XXXXX XXXXX".
func NormalizePhone(raw string) (string, bool) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		switch r {
		case '-', '(', ')', '+', '.':
			return -1
		}
		return r
	}, raw)

	if len(digits) == len(countryCode)+mobileDigits && strings.HasPrefix(digits, countryCode) {
		digits = digits[len(countryCode):]
	}
	if !mobileRegex.MatchString(digits) {
		return "", false
	}
	return "+" + countryCode + " " + digits[:5] + " " + digits[5:], true
}
