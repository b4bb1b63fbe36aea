package domain

// globalScopeKey is the reserved store encoding for the global scope.
// Feishu group chat IDs carry an "oc_" prefix, so the sentinel cannot
// collide with a real group identifier.
const globalScopeKey = "GLOBAL"

// Scope identifies where a reminder applies: either a single group chat or
// the global marker meaning "every group the owner and the bot share".
// The zero value is a group scope with an empty ID and is not valid.
type Scope struct {
	groupID string
	global  bool
}

// GlobalScope returns the global scope.
func GlobalScope() Scope {
	return Scope{global: true}
}

// GroupScope returns a scope bound to a single group chat.
func GroupScope(groupID string) Scope {
	return Scope{groupID: groupID}
}

// IsGlobal reports whether this is the global scope.
func (s Scope) IsGlobal() bool {
	return s.global
}

// GroupID returns the group chat ID, or "" for the global scope.
func (s Scope) GroupID() string {
	if s.global {
		return ""
	}
	return s.groupID
}

// Key returns the store encoding of the scope.
func (s Scope) Key() string {
	if s.global {
		return globalScopeKey
	}
	return s.groupID
}

// ScopeFromKey decodes a store encoding produced by Key.
func ScopeFromKey(key string) Scope {
	if key == globalScopeKey {
		return GlobalScope()
	}
	return GroupScope(key)
}

// String implements fmt.Stringer for logging.
func (s Scope) String() string {
	if s.global {
		return "global"
	}
	return s.groupID
}
