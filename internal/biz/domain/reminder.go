package domain

// Reminder is one user's subscription to one keyword in one scope.
// The (Scope, Owner, Keyword, Bot) tuple is the natural key; there is no
// surrogate ID. Reminders are partitioned per bot identity because one
// process may run several bot connections.
type Reminder struct {
	Scope   Scope
	Owner   string // user who registered the reminder
	Keyword string // exact substring to match
	Bot     string // bot identity the reminder is registered under
}

// IgnoreEntry is one bot's decision to suppress reminders triggered by one
// user. (Bot, IgnoredUser) is unique. Ignore entries are bot-wide, not
// per-group: a user ignored for one group is ignored everywhere that bot
// operates.
type IgnoreEntry struct {
	Bot         string
	IgnoredUser string
}

// Member is a group chat member.
type Member struct {
	UserID string
	Name   string
	IsBot  bool
}

// GroupInfo is basic information about a group chat.
type GroupInfo struct {
	GroupID string
	Name    string
}
