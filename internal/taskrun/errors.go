package taskrun

import (
	"errors"
	"strings"
)

var (
	ErrPoolClosed    = errors.New("task pool is closed")
	ErrDuplicateTask = errors.New("task already exists")
)

// SanitizeErrorMessage collapses msg to a single line; an empty message
// becomes "error".
func SanitizeErrorMessage(msg string) string {
	s := strings.Join(strings.Fields(msg), " ")
	if s == "" {
		return "error"
	}
	return s
}
