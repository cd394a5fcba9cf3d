package model

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// NewHexID returns a fresh 32-character hex identifier, the canonical shape
// of internal ids and access credentials.
func NewHexID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
