package util

import (
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// NewID returns prefix followed by a fresh nanoid, e.g. "mem_V1StGXR8_Z5jdHi6B-myT".
// If the random source fails the id falls back to a timestamp so callers
// never have to handle an error for a label.
func NewID(prefix string) string {
	id, err := gonanoid.New()
	if err != nil {
		id = fmt.Sprintf("%d", time.Now().UnixNano())
	}
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
