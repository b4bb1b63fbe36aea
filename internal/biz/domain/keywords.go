package domain

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const fullWidthComma = "，"

// ParseKeywords splits raw user input into trimmed keywords. Both the ASCII
// comma and the full-width comma separate keywords; `\,`, `\，` and `\\`
// embed literal separators and backslashes. Empty segments from doubled or
// leading/trailing separators are dropped silently. No deduplication happens
// here; the cache and store layers take care of that.
func ParseKeywords(input string) []string {
	if input == "" {
		return nil
	}

	// The escape pass temporarily replaces escaped characters with internal
	// markers. The markers must not collide with anything the user could
	// plausibly type, so they incorporate a per-call timestamp and a random
	// component rather than being fixed strings.
	base := fmt.Sprintf("\x00kw_%s_%s", strconv.FormatInt(time.Now().UnixNano(), 36), strconv.FormatUint(rand.Uint64(), 36))
	backslashMark := base + "_bslash\x00"
	commaMark := base + "_comma\x00"
	fwCommaMark := base + "_fwcomma\x00"

	s := strings.ReplaceAll(input, `\\`, backslashMark)
	s = strings.ReplaceAll(s, `\,`, commaMark)
	s = strings.ReplaceAll(s, `\`+fullWidthComma, fwCommaMark)

	// Remaining full-width commas are unescaped separators.
	s = strings.ReplaceAll(s, fullWidthComma, ",")

	var keywords []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ReplaceAll(part, fwCommaMark, fullWidthComma)
		part = strings.ReplaceAll(part, commaMark, ",")
		part = strings.ReplaceAll(part, backslashMark, `\`)
		part = strings.TrimSpace(part)
		if part != "" {
			keywords = append(keywords, part)
		}
	}
	return keywords
}
