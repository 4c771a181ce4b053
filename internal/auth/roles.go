package auth

import (
	"slices"

	"github.com/01moynul/taptosell-commerce/internal/models"
)

// Authorize reports whether a caller with role actual may use an operation
// that requires one of the given roles. An empty requirement allows anyone.
func Authorize(required []models.Role, actual models.Role) bool {
	if len(required) == 0 {
		return true
	}
	return slices.Contains(required, actual)
}
