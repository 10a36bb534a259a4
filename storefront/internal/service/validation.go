package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"delive/storefront/internal/domain"

	"github.com/go-playground/validator/v10"
)

var (
	phonePattern = regexp.MustCompile(`^((8|\+7)[\- ]?)?(\(?\d{3}\)?[\- ]?)?[\d\- ]{7,10}$`)
	lowerPattern = regexp.MustCompile(`[a-z]`)
	upperPattern = regexp.MustCompile(`[A-Z]`)
	digitPattern = regexp.MustCompile(`\d`)
)

const (
	msgPasswordTooShort = "Password must be at least 8 characters long"
	msgPasswordTooLong  = "Password must be at most 72 characters long"
	msgPasswordWeak     = "Password must contain lowercase and uppercase latin letters and digits"
	msgPasswordMismatch = "Passwords do not match"
	msgInvalidEmail     = "Invalid email address"
	msgEmailTooLong     = "Email must be at most 100 characters"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	// Report fields under their JSON names so errors line up with form keys.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "password_policy", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return lowerPattern.MatchString(s) && upperPattern.MatchString(s) && digitPattern.MatchString(s)
	})
	mustRegister(v, "order_status", func(fl validator.FieldLevel) bool {
		return domain.OrderStatus(fl.Field().Int()).Valid()
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// ValidationError carries per-field messages. Nothing is persisted when a
// form fails validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// fieldMessages is keyed by "field.tag", with a bare "field" entry used for
// any other failed tag on that field.
type fieldMessages map[string]string

func (m fieldMessages) lookup(field, tag string) string {
	if msg, ok := m[field+"."+tag]; ok {
		return msg
	}
	if msg, ok := m[field]; ok {
		return msg
	}
	return fmt.Sprintf("%s is invalid", field)
}

func validateStruct(s interface{}, messages fieldMessages) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = messages.lookup(fe.Field(), fe.Tag())
		}
	}
	return &ValidationError{Fields: fields}
}

var customerMessages = fieldMessages{
	"name.nonblank":    "Name is required",
	"name":             "Name must be between 4 and 32 characters",
	"address.nonblank": "Address is required",
	"address":          "Address must be between 10 and 100 characters",
	"email.required":   "Email is required",
	"email.max":        msgEmailTooLong,
	"email":            msgInvalidEmail,
	"phone.required":   "Phone is required",
	"phone.max":        "Phone must be at most 20 characters",
	"phone":            "Phone must contain from 6 to 11 digits",
}

func ValidateCustomerDetails(d domain.CustomerDetails) error {
	return validateStruct(d, customerMessages)
}

type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

var loginMessages = fieldMessages{
	"email.required":    "Email is required",
	"email":             msgInvalidEmail,
	"password.required": "Password is required",
}

func (f LoginForm) Validate() error {
	return validateStruct(f, loginMessages)
}

var passwordMessages = fieldMessages{
	"email.required":            "Email is required",
	"email.max":                 msgEmailTooLong,
	"email":                     msgInvalidEmail,
	"password.required":         "Password is required",
	"password.min":              msgPasswordTooShort,
	"password.max":              msgPasswordTooLong,
	"password.password_policy":  msgPasswordWeak,
	"confirm_password.required": "Password confirmation is required",
	"confirm_password.eqfield":  msgPasswordMismatch,
}

type RegistrationForm struct {
	Email           string `json:"email" validate:"required,email,max=100"`
	Password        string `json:"password" validate:"required,min=8,max=72,password_policy"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

func (f RegistrationForm) Validate() error {
	return validateStruct(f, passwordMessages)
}

type PasswordForm struct {
	Password        string `json:"password" validate:"required,min=8,max=72,password_policy"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

func (f PasswordForm) Validate() error {
	return validateStruct(f, passwordMessages)
}

var userPatchMessages = fieldMessages{
	"email.max": msgEmailTooLong,
	"email":     msgInvalidEmail,
	"role":      "Role must be admin or buyer",
}

var categoryMessages = fieldMessages{
	"title.nonblank": "Category title is required",
	"title":          "Category title must be at most 30 characters",
}

var dishMessages = fieldMessages{
	"title.nonblank":   "Dish title is required",
	"title":            "Dish title must be at most 130 characters",
	"picture.nonblank": "Picture file name is required",
	"picture":          "Picture file name must be at most 50 characters",
	"price":            "Price cannot be negative",
	"category_id":      "Dish category is required",
}

var orderPatchMessages = fieldMessages{
	"status":         "Unknown order status",
	"phone.nonblank": "Phone is required",
	"phone.max":      "Phone must be at most 20 characters",
	"phone":          "Phone must contain from 6 to 11 digits",
}
