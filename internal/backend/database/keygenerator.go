package database

import (
	"github.com/google/uuid"
)

// NewSessionID returns a random (version 4) UUID string
func NewSessionID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
