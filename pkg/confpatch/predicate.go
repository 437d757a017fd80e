package confpatch

import "strings"

// Predicate selects lines. Lines are passed without their terminator.
type Predicate func(line string) bool

// HasPrefix matches lines starting with prefix
func HasPrefix(prefix string) Predicate {
	return func(line string) bool {
		return strings.HasPrefix(line, prefix)
	}
}

// Contains matches lines containing substr
func Contains(substr string) Predicate {
	return func(line string) bool {
		return strings.Contains(line, substr)
	}
}

// Equals matches lines equal to s, ignoring trailing whitespace
func Equals(s string) Predicate {
	want := strings.TrimRight(s, " \t\r\n")
	return func(line string) bool {
		return strings.TrimRight(line, " \t\r") == want
	}
}

// Any matches lines matched by at least one of preds
func Any(preds ...Predicate) Predicate {
	return func(line string) bool {
		for _, p := range preds {
			if p(line) {
				return true
			}
		}
		return false
	}
}
