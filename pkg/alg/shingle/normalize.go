package shingle

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize folds s to NFKC and lower case so that compatibility variants
// (full-width letters, ligatures, case) produce the same shingles.
func Normalize(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}
