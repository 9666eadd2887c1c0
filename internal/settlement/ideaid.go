package settlement

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

const ideaPrefix = "idea"

//nolint:gochecknoglobals // compiled once
var (
	ideaIDPattern  = regexp.MustCompile(`^idea([0-9]+)$`)
	trailingDigits = regexp.MustCompile(`([0-9]+)$`)
)

// ParseIdeaID extracts the on-chain id from an idea identifier of the form
// idea<N>. N must be a positive integer.
func ParseIdeaID(s string) (uint64, error) {
	m := ideaIDPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, invalidIdeaID(s, "expected the form idea<N>")
	}

	id, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, invalidIdeaID(s, "idea number is out of range")
	}
	if id == 0 {
		return 0, invalidIdeaID(s, "idea number must be positive")
	}
	return id, nil
}

// FormatIdeaID renders an on-chain id as an idea identifier.
func FormatIdeaID(id uint64) string {
	return fmt.Sprintf("%s%d", ideaPrefix, id)
}

func invalidIdeaID(s, reason string) error {
	err := ilerr.WithDetails(ilerr.ErrInvalidIdeaID, map[string]string{
		"idea":             s,
		ilerr.DetailReason: reason,
	})
	if suggestion := suggestIdeaID(s); suggestion != "" {
		err = ilerr.WithSuggestion(err, fmt.Sprintf("Did you mean %s?", suggestion))
	}
	return err
}

// suggestIdeaID guesses the identifier the user meant, such as idea6 for
// "Idea 6", "ieda6" or "6".
func suggestIdeaID(s string) string {
	trimmed := strings.TrimSpace(s)
	m := trailingDigits.FindStringSubmatch(trimmed)
	if m == nil {
		return ""
	}
	id, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil || id == 0 {
		return ""
	}

	prefix := strings.ToLower(strings.TrimRight(strings.TrimSuffix(trimmed, m[1]), " #-_"))
	if prefix != "" && levenshtein.ComputeDistance(prefix, ideaPrefix) > 2 {
		return ""
	}
	suggestion := FormatIdeaID(id)
	if suggestion == s {
		return ""
	}
	return suggestion
}
