package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// UserID identifies the owner of benchmark runs. It is the subject of the
// bearer token presented to the API.
type UserID uuid.UUID

func (id UserID) String() string { return uuid.UUID(id).String() }

// ParseUserID parses the textual form of a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, fmt.Errorf("invalid user id: %w", err)
	}

	return UserID(u), nil
}

// MarshalText encodes the ID in its canonical UUID form.
func (id UserID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

// UnmarshalText decodes a canonical UUID.
func (id *UserID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
