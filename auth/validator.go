package auth

import (
	"chat-relay/errors"
	"fmt"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type RegisterRequest struct {
	Username string `validate:"required,min=3,max=32,alphanum"`
	Password string `validate:"required,min=8,max=72"`
}

// ValidateRegister checks the username and password rules before any hashing happens.
// The returned error wraps ErrInvalidUsername or ErrInvalidPassword.
func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		if fieldErrors, ok := err.(validator.ValidationErrors); ok && len(fieldErrors) > 0 {
			fe := fieldErrors[0]
			if fe.Field() == "Username" {
				return fmt.Errorf("%w: failed on %q", errors.ErrInvalidUsername, fe.Tag())
			}
			return fmt.Errorf("%w: failed on %q", errors.ErrInvalidPassword, fe.Tag())
		}
		return err
	}

	if !isPasswordComplex(req.Password) {
		return fmt.Errorf("%w: needs at least one letter and one digit", errors.ErrInvalidPassword)
	}
	return nil
}

func isPasswordComplex(s string) bool {
	var hasLetter, hasNumber bool
	for _, char := range s {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}
	return hasLetter && hasNumber
}
