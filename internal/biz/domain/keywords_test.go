package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKeywords(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty input", "", nil},
		{"single keyword", "deploy", []string{"deploy"}},
		{"comma separated", "deploy,rollback,alert", []string{"deploy", "rollback", "alert"}},
		{"full-width comma separator", "部署，回滚", []string{"部署", "回滚"}},
		{"mixed separators", "a,b，c", []string{"a", "b", "c"}},
		{"escaped ascii comma", `a\,b,c`, []string{"a,b", "c"}},
		{"escaped full-width comma", `你好\，世界,x`, []string{"你好，世界", "x"}},
		{"escaped backslash", `x\\y,z`, []string{`x\y`, "z"}},
		{"whitespace trimmed", "  deploy , rollback ", []string{"deploy", "rollback"}},
		{"empty segments dropped", ",,a,,b,", []string{"a", "b"}},
		{"only separators", ",,，,", nil},
		{"sentinel-looking input survives", "__KWR_abc_COMMA__", []string{"__KWR_abc_COMMA__"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseKeywords(tt.input))
		})
	}
}

func TestParseKeywordsRoundTrip(t *testing.T) {
	// Joining separator/backslash-free keywords with a comma and parsing
	// again must give back the original list in order.
	original := []string{"deploy", "紧急通知", "release v2", "a b c"}
	parsed := ParseKeywords(strings.Join(original, ","))
	assert.Equal(t, original, parsed)
}
