package utils

import (
	"crypto/md5"
	"fmt"
	"strings"
)

// HashFields produces a stable cache key from an ordered list of parts.
func HashFields(parts ...string) string {
	hash := md5.Sum([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%x", hash)
}
