package data

import (
	"context"

	"github.com/anthropics/feishu-keyword-watch/feishu"
	"github.com/anthropics/feishu-keyword-watch/internal/biz/domain"
	"github.com/anthropics/feishu-keyword-watch/internal/biz/repo"
)

// chatRepo implements the Chat repository on the Feishu client
type chatRepo struct {
	client *feishu.Client
}

// NewChatRepo creates a Feishu-backed Chat repository
func NewChatRepo(client *feishu.Client) repo.ChatRepo {
	return &chatRepo{client: client}
}

// SendPrivateMessage delivers a direct message to one user
func (r *chatRepo) SendPrivateMessage(ctx context.Context, userID, text string) error {
	return r.client.SendPrivateText(ctx, userID, text)
}

// SendGroupMessage delivers a text message to a group chat
func (r *chatRepo) SendGroupMessage(ctx context.Context, groupID, text string) error {
	return r.client.SendText(ctx, groupID, text)
}

// GetGroupMember returns the member, or nil when the user is not in the group.
// The Feishu API has no single-member lookup, so this scans the roster.
func (r *chatRepo) GetGroupMember(ctx context.Context, groupID, userID string) (*domain.Member, error) {
	members, err := r.client.GetChatMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.MemberID == userID {
			return &domain.Member{
				UserID: m.MemberID,
				Name:   m.Name,
				IsBot:  m.MemberType == "bot",
			}, nil
		}
	}
	return nil, nil
}

// GetGroupMembers returns the full roster of a group
func (r *chatRepo) GetGroupMembers(ctx context.Context, groupID string) ([]domain.Member, error) {
	members, err := r.client.GetChatMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	var result []domain.Member
	for _, m := range members {
		result = append(result, domain.Member{
			UserID: m.MemberID,
			Name:   m.Name,
			IsBot:  m.MemberType == "bot",
		})
	}
	return result, nil
}

// GetGroupList returns the groups the bot currently belongs to
func (r *chatRepo) GetGroupList(ctx context.Context) ([]domain.GroupInfo, error) {
	chats, err := r.client.ListChats(ctx)
	if err != nil {
		return nil, err
	}

	var result []domain.GroupInfo
	for _, chat := range chats {
		result = append(result, domain.GroupInfo{
			GroupID: chat.ChatID,
			Name:    chat.Name,
		})
	}
	return result, nil
}

// GetGroupInfo returns a group's display info
func (r *chatRepo) GetGroupInfo(ctx context.Context, groupID string) (*domain.GroupInfo, error) {
	info, err := r.client.GetChatInfo(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return &domain.GroupInfo{GroupID: info.ChatID, Name: info.Name}, nil
}

// GetUserName resolves a user's display name
func (r *chatRepo) GetUserName(ctx context.Context, userID string) (string, error) {
	return r.client.GetUserName(ctx, userID)
}
