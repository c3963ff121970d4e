package validation

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseID validates a route parameter as a positive resource id.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	if id < 1 {
		return 0, fmt.Errorf("id must be positive")
	}
	return id, nil
}

// Keyword validates and normalizes a search keyword.
func Keyword(raw string) (string, error) {
	keyword := strings.TrimSpace(raw)
	if keyword == "" {
		return "", fmt.Errorf("keyword must not be empty")
	}
	return keyword, nil
}
