// Package domain contains core concepts of the presence system.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"fmt"
	"presence-hub/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Identity is the authenticated user bound to a connection.
// It is immutable for the lifetime of the connection.
type Identity struct {
	ID          string `json:"id" validate:"required"`
	DisplayName string `json:"displayName" validate:"required"`
}

// ValidateIdentity rejects an identity missing its id or display name.
func ValidateIdentity(identity Identity) error {
	if err := validate.Struct(identity); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrIdentityRequired, err)
	}
	return nil
}
