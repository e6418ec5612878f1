package reconcile

import (
	"strconv"
	"strings"
)

// Candidate keys are tagged so a string interpretation never collides with
// a numeric one by accident: "s:" prefixes the literal string form, "n:"
// the parsed integer form. A value like "0042" therefore yields both
// "s:0042" and "n:42", and matches a backend that stored the order number
// as the integer 42.

// candidateKeys derives the tagged candidate key set for one raw reference
// value. Returns nil for absent or empty references.
func candidateKeys(ref any) []string {
	switch v := ref.(type) {
	case nil:
		return nil
	case string:
		return stringKeys(v)
	case float64:
		// JSON numbers decode as float64.
		if v == float64(int64(v)) {
			return []string{numKey(int64(v))}
		}
		return []string{"s:" + strconv.FormatFloat(v, 'f', -1, 64)}
	case int:
		return []string{numKey(int64(v))}
	case int64:
		return []string{numKey(v)}
	default:
		return nil
	}
}

// stringKeys derives keys for a string reference: the normalized literal
// form plus the integer form when the string is numeric-looking.
func stringKeys(s string) []string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}

	keys := []string{"s:" + strings.ToLower(trimmed)}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		keys = append(keys, numKey(n))
	}
	return keys
}

func numKey(n int64) string {
	return "n:" + strconv.FormatInt(n, 10)
}

// orderKeys derives the candidate key set of a work order from its
// canonical ID and every alternate identifier.
func orderKeys(id string, alternateIDs []string) []string {
	seen := make(map[string]struct{})
	var keys []string

	add := func(derived []string) {
		for _, k := range derived {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}

	add(stringKeys(id))
	for _, alt := range alternateIDs {
		add(stringKeys(alt))
	}
	return keys
}
