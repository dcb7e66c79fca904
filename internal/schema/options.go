// Package schema validates field definitions and keeps the per-category view
// of them in sync with the backend.
package schema

import "strings"

// OptionSeparator joins options for display and editing.
const OptionSeparator = ", "

// ParseOptions splits a comma-separated option list and trims each token.
// Empty tokens are kept so that ValidateOptions can reject them; blank input
// yields a single empty token.
func ParseOptions(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

// JoinOptions is the inverse of ParseOptions for well-formed option lists.
func JoinOptions(opts []string) string {
	return strings.Join(opts, OptionSeparator)
}

// ValidateOptions rejects an empty list and lists with empty tokens, as in
// "a,,b" or "a,".
func ValidateOptions(opts []string) error {
	if len(opts) == 0 || (len(opts) == 1 && opts[0] == "") {
		return invalid("options", "a Select field needs at least one option")
	}
	for i, o := range opts {
		if o == "" {
			return invalidf("options", "option %d is empty", i+1)
		}
	}
	return nil
}
