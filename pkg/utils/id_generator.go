// Package utils provides small helpers shared by the services and commands.
package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a random (v4) UUID string. Used for request ids and
// index load ids that show up in logs.
func GenerateID() string {
	return uuid.New().String()
}

// ShortID returns the first 8 characters of a fresh id, for log lines where a
// full UUID is noise.
func ShortID() string {
	return GenerateID()[:8]
}
