package auth

import (
	"chat-relay/errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ProfileRequest is the payload completing or editing a user profile.
type ProfileRequest struct {
	Name  string  `json:"name" validate:"required,max=64"`
	Phone string  `json:"phone" validate:"required,e164"`
	Photo *string `json:"photo" validate:"omitempty,max=255"`
}

func ValidateProfile(req ProfileRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidProfile, err)
	}
	return nil
}

// ValidateStruct applies the `validate` tags of any inbound payload.
func ValidateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return nil
}
