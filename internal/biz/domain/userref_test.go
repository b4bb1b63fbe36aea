package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveUserRef(t *testing.T) {
	tests := []struct {
		name     string
		mentions []string
		raw      string
		want     string
		ok       bool
	}{
		{"mention wins over text", []string{"ou_abc123"}, "999", "ou_abc123", true},
		{"first of several mentions", []string{"ou_first", "ou_second"}, "", "ou_first", true},
		{"bare digits", nil, "12345", "12345", true},
		{"prefixed digits", nil, "qq:12345", "12345", true},
		{"open id", nil, "ou_0a1b2c3d", "ou_0a1b2c3d", true},
		{"surrounding whitespace", nil, "  12345  ", "12345", true},
		{"at-all rejected", nil, "@all", "", false},
		{"empty rejected", nil, "", "", false},
		{"arbitrary name rejected", nil, "zhangsan", "", false},
		{"prefix without digits rejected", nil, "qq:", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveUserRef(tt.mentions, tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScopeKeyRoundTrip(t *testing.T) {
	group := GroupScope("oc_12345")
	assert.False(t, group.IsGlobal())
	assert.Equal(t, group, ScopeFromKey(group.Key()))

	global := GlobalScope()
	assert.True(t, global.IsGlobal())
	assert.Equal(t, "", global.GroupID())
	assert.Equal(t, global, ScopeFromKey(global.Key()))
}
