package domain

import (
	"regexp"
	"strings"
)

var (
	// Open-ID style identifiers as Feishu issues them (ou_/on_ prefix).
	openIDPattern = regexp.MustCompile(`^o[un]_[0-9a-f]+$`)
	// Numeric IDs with an optional platform prefix, e.g. "qq:12345" or "12345".
	numericIDPattern = regexp.MustCompile(`^(?:[^:\s]+:)?([0-9]+)$`)
)

// ResolveUserRef turns a command argument into a canonical user ID.
// A structured mention always wins over any textual ID in the same argument.
// The textual forms accepted are platform open IDs, "prefix:digits" and bare
// digits; an "@all" marker or anything else is unresolvable. The resolver
// never performs network lookups: whether the user is actually a member of
// some group is the calling engine's problem.
func ResolveUserRef(mentions []string, raw string) (string, bool) {
	if len(mentions) > 0 {
		return mentions[0], true
	}

	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "@all" || raw == "all" {
		return "", false
	}
	if openIDPattern.MatchString(raw) {
		return raw, true
	}
	if m := numericIDPattern.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	return "", false
}
