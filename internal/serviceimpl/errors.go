package serviceimpl

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// isUniqueViolation detects duplicate-key failures across the supported
// drivers. gorm only translates the error when TranslateError is on, so
// the sqlite and postgres message shapes are matched as a fallback.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
