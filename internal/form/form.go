// ABOUTME: Form field normalization shared by the page handlers and the JSON API form bodies
// ABOUTME: Comma lists are trimmed and empty members dropped; malformed lists never error

package form

import (
	"fmt"
	"strconv"
	"strings"
)

// SplitList splits a comma-separated field into trimmed, non-empty members.
// The result is never nil.
func SplitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SplitGroups splits a field of ';'-separated groups of comma lists, e.g.
// "e1,e2; e3" becomes [[e1 e2] [e3]]. Empty groups are dropped.
func SplitGroups(s string) [][]string {
	out := [][]string{}
	for _, group := range strings.Split(s, ";") {
		if members := SplitList(group); len(members) > 0 {
			out = append(out, members)
		}
	}
	return out
}

// ParseInt parses a required integer form field.
func ParseInt(field, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %q", field, value)
	}
	return n, nil
}
