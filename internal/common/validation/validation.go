// Package validation configures go-playground/validator for request structs
// and converts its failures into VALIDATION_ERROR app errors.
package validation

import (
	stderrors "errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "giveaway-bot/internal/common/errors"
)

var (
	// public channel usernames: letters, digits, underscores, 5-32 characters
	channelUsernameRegex = regexp.MustCompile(`^@[a-zA-Z0-9_]{5,32}$`)
	// numeric chat ids, negative for groups and channels
	chatIDRegex = regexp.MustCompile(`^-?\d{1,20}$`)
)

// New returns a validator that names fields by their json tag and knows the
// channel_id rule.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("channel_id", func(fl validator.FieldLevel) bool {
		return ValidChannelID(fl.Field().String())
	})
	return v
}

// ValidChannelID accepts a numeric chat id or a public @username.
func ValidChannelID(id string) bool {
	return chatIDRegex.MatchString(id) || channelUsernameRegex.MatchString(id)
}

// AppError reports the first failing field of a validator error.
func AppError(err error) error {
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.NewValidationError(fe.Field(), describe(fe))
	}
	return apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid input")
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "http_url":
		return "must be an http(s) URL"
	case "channel_id":
		return "must be a numeric chat id or @username"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
