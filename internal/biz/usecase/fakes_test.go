package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/anthropics/feishu-keyword-watch/internal/biz/domain"
	"github.com/anthropics/feishu-keyword-watch/internal/biz/repo"
)

// In-memory fakes implementing the repo interfaces.

type fakeReminderRepo struct {
	mu   sync.Mutex
	rows []*domain.Reminder
	err  error // when set, every operation fails with it
}

func newFakeReminderRepo() *fakeReminderRepo {
	return &fakeReminderRepo{}
}

func matches(r *domain.Reminder, f repo.ReminderFilter) bool {
	if f.Scope != nil && r.Scope != *f.Scope {
		return false
	}
	if len(f.Scopes) > 0 {
		found := false
		for _, s := range f.Scopes {
			if r.Scope == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Owner != "" && r.Owner != f.Owner {
		return false
	}
	if f.ExcludeOwner != "" && r.Owner == f.ExcludeOwner {
		return false
	}
	if f.Keyword != "" && r.Keyword != f.Keyword {
		return false
	}
	if len(f.Keywords) > 0 {
		found := false
		for _, kw := range f.Keywords {
			if r.Keyword == kw {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Bot != "" && r.Bot != f.Bot {
		return false
	}
	return true
}

func (m *fakeReminderRepo) Create(ctx context.Context, r *domain.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.rows {
		if *existing == *r {
			return repo.ErrConflict
		}
	}
	cp := *r
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *fakeReminderRepo) Upsert(ctx context.Context, rs []*domain.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, r := range rs {
		exists := false
		for _, existing := range m.rows {
			if *existing == *r {
				exists = true
				break
			}
		}
		if !exists {
			cp := *r
			m.rows = append(m.rows, &cp)
		}
	}
	return nil
}

func (m *fakeReminderRepo) Remove(ctx context.Context, f repo.ReminderFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var kept []*domain.Reminder
	var removed int64
	for _, r := range m.rows {
		if matches(r, f) {
			removed++
		} else {
			kept = append(kept, r)
		}
	}
	m.rows = kept
	return removed, nil
}

func (m *fakeReminderRepo) List(ctx context.Context, f repo.ReminderFilter) ([]*domain.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.Reminder
	for _, r := range m.rows {
		if matches(r, f) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *fakeReminderRepo) Scopes(ctx context.Context) ([]domain.Scope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	seen := map[domain.Scope]struct{}{}
	var scopes []domain.Scope
	for _, r := range m.rows {
		if _, ok := seen[r.Scope]; !ok {
			seen[r.Scope] = struct{}{}
			scopes = append(scopes, r.Scope)
		}
	}
	return scopes, nil
}

func (m *fakeReminderRepo) Close() error { return nil }

type fakeIgnoreRepo struct {
	mu      sync.Mutex
	entries []*domain.IgnoreEntry
	err     error
}

func newFakeIgnoreRepo() *fakeIgnoreRepo {
	return &fakeIgnoreRepo{}
}

func (m *fakeIgnoreRepo) Create(ctx context.Context, e *domain.IgnoreEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.entries {
		if *existing == *e {
			return repo.ErrConflict
		}
	}
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *fakeIgnoreRepo) Remove(ctx context.Context, bot, user string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var kept []*domain.IgnoreEntry
	var removed int64
	for _, e := range m.entries {
		if e.Bot == bot && e.IgnoredUser == user {
			removed++
		} else {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	return removed, nil
}

func (m *fakeIgnoreRepo) ListByBot(ctx context.Context, bot string) ([]*domain.IgnoreEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.IgnoreEntry
	for _, e := range m.entries {
		if e.Bot == bot {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *fakeIgnoreRepo) Close() error { return nil }

type sentMessage struct {
	UserID string
	Text   string
}

type fakeChatRepo struct {
	mu        sync.Mutex
	members   map[string]map[string]domain.Member // groupID -> userID -> member
	groups    []domain.GroupInfo
	names     map[string]string // userID -> display name
	sent      []sentMessage
	groupSent []sentMessage // GroupID in UserID field

	sendErr   map[string]error // userID -> forced delivery failure
	memberErr error            // forced GetGroupMember failure
	listErr   error            // forced GetGroupList failure
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		members: map[string]map[string]domain.Member{},
		names:   map[string]string{},
		sendErr: map[string]error{},
	}
}

func (m *fakeChatRepo) addMember(groupID, userID, name string) {
	if m.members[groupID] == nil {
		m.members[groupID] = map[string]domain.Member{}
	}
	m.members[groupID][userID] = domain.Member{UserID: userID, Name: name}
}

func (m *fakeChatRepo) SendPrivateMessage(ctx context.Context, userID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.sendErr[userID]; err != nil {
		return err
	}
	m.sent = append(m.sent, sentMessage{UserID: userID, Text: text})
	return nil
}

func (m *fakeChatRepo) SendGroupMessage(ctx context.Context, groupID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groupSent = append(m.groupSent, sentMessage{UserID: groupID, Text: text})
	return nil
}

func (m *fakeChatRepo) GetGroupMember(ctx context.Context, groupID, userID string) (*domain.Member, error) {
	if m.memberErr != nil {
		return nil, m.memberErr
	}
	member, ok := m.members[groupID][userID]
	if !ok {
		return nil, nil
	}
	return &member, nil
}

func (m *fakeChatRepo) GetGroupMembers(ctx context.Context, groupID string) ([]domain.Member, error) {
	group, ok := m.members[groupID]
	if !ok {
		return nil, errors.New("no such group")
	}
	var out []domain.Member
	for _, member := range group {
		out = append(out, member)
	}
	return out, nil
}

func (m *fakeChatRepo) GetGroupList(ctx context.Context) ([]domain.GroupInfo, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.groups, nil
}

func (m *fakeChatRepo) GetGroupInfo(ctx context.Context, groupID string) (*domain.GroupInfo, error) {
	for _, g := range m.groups {
		if g.GroupID == groupID {
			return &g, nil
		}
	}
	return &domain.GroupInfo{GroupID: groupID}, nil
}

func (m *fakeChatRepo) GetUserName(ctx context.Context, userID string) (string, error) {
	if name, ok := m.names[userID]; ok {
		return name, nil
	}
	return "", errors.New("unknown user")
}

func (m *fakeChatRepo) sentTo(userID string) []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMessage
	for _, s := range m.sent {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out
}
