package repo

import (
	"context"

	"github.com/anthropics/feishu-keyword-watch/internal/biz/domain"
)

// ChatRepo is the messaging, roster and identity collaborator, backed by the
// Feishu API. All lookups hit the platform in real time; nothing is stored
// locally.
type ChatRepo interface {
	// SendPrivateMessage delivers a direct message to one user. Errors on
	// delivery failure (no permission, user blocked the bot, and so on).
	SendPrivateMessage(ctx context.Context, userID, text string) error

	// SendGroupMessage delivers a text message to a group chat.
	SendGroupMessage(ctx context.Context, groupID, text string) error

	// GetGroupMember returns the member, or nil when the user is not in
	// the group.
	GetGroupMember(ctx context.Context, groupID, userID string) (*domain.Member, error)

	// GetGroupMembers returns the full roster of a group.
	GetGroupMembers(ctx context.Context, groupID string) ([]domain.Member, error)

	// GetGroupList returns the groups the bot currently belongs to.
	GetGroupList(ctx context.Context) ([]domain.GroupInfo, error)

	// GetGroupInfo returns a group's display info.
	GetGroupInfo(ctx context.Context, groupID string) (*domain.GroupInfo, error)

	// GetUserName resolves a user's display name. Best-effort: callers
	// fall back to the raw ID on error.
	GetUserName(ctx context.Context, userID string) (string, error)
}
