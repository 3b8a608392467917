// Package validation holds the form shapes posted by browsers and turns
// validator errors into per-field messages.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"grumblr/internal/utils"
)

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_.+-]{1,30}$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernameRegex.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("avatar", func(fl validator.FieldLevel) bool {
			return utils.IsValidAvatar(fl.Field().String())
		})
		_ = v.RegisterValidation("utf8", func(fl validator.FieldLevel) bool {
			return utf8.ValidString(fl.Field().String())
		})
	}
}

// MessageForm is posted to create a message. Body is trimmed before validation.
type MessageForm struct {
	Message string `form:"message" binding:"required,utf8,max=42"`
}

// CommentForm is posted to comment on a message.
type CommentForm struct {
	Content string `form:"content" binding:"required,utf8,max=42"`
}

type RegisterForm struct {
	FirstName       string `form:"first_name" binding:"required,utf8,max=30"`
	LastName        string `form:"last_name" binding:"required,utf8,max=30"`
	Email           string `form:"email" binding:"required,email,max=100"`
	Username        string `form:"username" binding:"required,username"`
	Password        string `form:"password" binding:"required,min=6,max=72"`
	PasswordConfirm string `form:"password_confirm" binding:"required,eqfield=Password"`
}

type LoginForm struct {
	Username string `form:"username" binding:"required,max=30"`
	Password string `form:"password" binding:"required"`
	Next     string `form:"next"`
}

// ProfileForm only carries the fields the user filled in; empty ones are left unchanged.
type ProfileForm struct {
	FirstName string `form:"first_name" binding:"omitempty,utf8,max=30"`
	LastName  string `form:"last_name" binding:"omitempty,utf8,max=30"`
	Email     string `form:"email" binding:"omitempty,email,max=100"`
	Signature string `form:"signature" binding:"omitempty,utf8,max=50"`
	Age       *int   `form:"age" binding:"omitempty,min=0,max=150"`
	Gender    string `form:"gender" binding:"omitempty,oneof=M F O"`
	Hometown  string `form:"hometown" binding:"omitempty,utf8,max=15"`
	Hobby     string `form:"hobby" binding:"omitempty,utf8,max=15"`
	Bio       string `form:"bio" binding:"omitempty,utf8,max=420"`
	Avatar    string `form:"avatar" binding:"omitempty,avatar"`
}

type PasswordForm struct {
	Password        string `form:"password" binding:"required,min=6,max=72"`
	PasswordConfirm string `form:"password_confirm" binding:"required,eqfield=Password"`
}

// Struct validates obj with gin's validator
func Struct(obj interface{}) error {
	return binding.Validator.ValidateStruct(obj)
}

// Normalize trims message and comment bodies in place.
func (f *MessageForm) Normalize() { f.Message = strings.TrimSpace(f.Message) }

func (f *CommentForm) Normalize() { f.Content = strings.TrimSpace(f.Content) }

// Fields maps a validation error to form field name -> human message.
// Errors that are not validator errors come back under the "form" key.
func Fields(err error) map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		if err != nil {
			out["form"] = err.Error()
		}
		return out
	}
	for _, fe := range verrs {
		out[fieldName(fe)] = message(fe)
	}
	return out
}

// IsValidation reports whether err came from the validator
func IsValidation(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs)
}

func fieldName(fe validator.FieldError) string {
	var b strings.Builder
	for i, r := range fe.Field() {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "eqfield":
		return "Passwords did not match."
	case "oneof":
		return "Select a valid choice."
	case "username":
		return "Letters, digits and _ . + - only, at most 30 characters."
	case "avatar":
		return "Pick an avatar from the list."
	case "utf8":
		return "Enter valid UTF-8 text."
	}
	return fmt.Sprintf("Invalid value (%s).", fe.Tag())
}
