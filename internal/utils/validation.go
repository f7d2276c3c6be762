package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"telehealth-server/internal/scheduling"
)

var (
	phoneRe = regexp.MustCompile(`^[6-9]\d{9}$`)

	registerOnce sync.Once
)

// RegisterValidators adds the custom binding tags:
//
//	ymd       YYYY-MM-DD calendar date
//	hhmm      HH:MM 24-hour time
//	phone     ten-digit Indian mobile number, optionally prefixed +91
//	password  8+ chars with an uppercase letter, a digit and one of !@#$%^&*
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return fld.Name
		})
		_ = v.RegisterValidation("ymd", func(fl validator.FieldLevel) bool {
			return scheduling.ValidDate(fl.Field().String())
		})
		_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			return scheduling.ValidTime(fl.Field().String())
		})
		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return ValidPhone(fl.Field().String())
		})
		_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			return StrongPassword(fl.Field().String())
		})
	})
}

// NormalizePhone strips an optional +91 prefix.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	return strings.TrimPrefix(phone, "+91")
}

// ValidPhone reports whether phone is a ten-digit mobile number starting 6-9.
func ValidPhone(phone string) bool {
	return phoneRe.MatchString(NormalizePhone(phone))
}

// E164Phone returns the stored form of a valid phone number.
func E164Phone(phone string) string {
	return "+91" + NormalizePhone(phone)
}

// StrongPassword reports whether pw satisfies the password policy.
func StrongPassword(pw string) bool {
	if len(pw) < 8 {
		return false
	}
	var upper, digit, special bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune("!@#$%^&*", r):
			special = true
		}
	}
	return upper && digit && special
}

var tagMessages = map[string]string{
	"required": "is required",
	"ymd":      "must be a YYYY-MM-DD date",
	"hhmm":     "must be an HH:MM time",
	"phone":    "must be a valid 10-digit mobile number",
	"password": "must be at least 8 characters with an uppercase letter, a number and a special character",
	"email":    "must be a valid email address",
	"oneof":    "has an unsupported value",
}

// FormatValidationError formats validation errors into a readable string.
func FormatValidationError(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		msg, ok := tagMessages[e.Tag()]
		if !ok {
			msg = fmt.Sprintf("failed on the '%s' rule", e.Tag())
		}
		messages = append(messages, e.Field()+" "+msg)
	}
	return strings.Join(messages, ", ")
}

// BindAndValidate binds the request body to a struct and validates it.
// If validation fails, it sends a BadRequest response and returns false.
func BindAndValidate(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		BadRequest(c, "Invalid request payload: "+FormatValidationError(err))
		return false
	}
	return true
}

// BindQuery is BindAndValidate for query strings.
func BindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		BadRequest(c, "Invalid query: "+FormatValidationError(err))
		return false
	}
	return true
}
