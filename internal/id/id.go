package id

import (
	"strings"

	"github.com/google/uuid"
)

// New returns a random opaque entity id.
func New() string {
	return uuid.NewString()
}

// Stable returns an id derived from kind and name, so seeding the same
// default entity twice yields the same id.
// Stable("category", "Food") == Stable("category", " food ")
func Stable(kind, name string) string {
	key := kind + ":" + strings.ToLower(strings.TrimSpace(name))
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// Valid reports whether s parses as an id produced by this package.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// Short returns the first block of an id for compact display.
// "6ba7b810-9dad-11d1-80b4-00c04fd430c8" -> "6ba7b810"
func Short(s string) string {
	if i := strings.IndexByte(s, '-'); i > 0 {
		return s[:i]
	}
	return s
}
