package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anthropics/feishu-keyword-watch/internal/biz/domain"
	"github.com/anthropics/feishu-keyword-watch/internal/biz/usecase"
)

// WatchMCPServer exposes the reminder and ignore stores as MCP tools, for
// operators administering the watch bot from an agent session.
type WatchMCPServer struct {
	server     *mcp.Server
	reminderUC *usecase.ReminderUsecase
	ignoreUC   *usecase.IgnoreUsecase
	bot        string
}

// NewServer creates a new watch MCP server. bot scopes every operation to
// one bot identity.
func NewServer(reminderUC *usecase.ReminderUsecase, ignoreUC *usecase.IgnoreUsecase, bot string) *WatchMCPServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "keyword-watch-tools",
		Version: "v1.0.0",
	}, nil)

	s := &WatchMCPServer{
		server:     server,
		reminderUC: reminderUC,
		ignoreUC:   ignoreUC,
		bot:        bot,
	}
	s.registerTools()
	return s
}

func (s *WatchMCPServer) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "watch_list_reminders",
		Description: "List a user's keyword watches, grouped by keyword with the scopes they apply in.",
	}, s.handleListReminders)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "watch_add_reminder",
		Description: "Register a keyword watch for a user, either in one group (group_id) or globally.",
	}, s.handleAddReminder)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "watch_remove_reminder",
		Description: "Remove a user's keyword watch from one group (group_id) or from the global scope.",
	}, s.handleRemoveReminder)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "watch_list_ignored",
		Description: "List the users whose messages never trigger keyword alerts.",
	}, s.handleListIgnored)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "watch_ignore_user",
		Description: "Add a user to the ignore list; their messages stop triggering keyword alerts.",
	}, s.handleIgnoreUser)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "watch_unignore_user",
		Description: "Remove a user from the ignore list.",
	}, s.handleUnignoreUser)
}

// ListRemindersInput is the input for watch_list_reminders
type ListRemindersInput struct {
	Owner string `json:"owner" jsonschema:"description=The open_id of the user whose watches to list"`
}

// ReminderEntry is one keyword watch in a listing
type ReminderEntry struct {
	Keyword string   `json:"keyword"`
	Global  bool     `json:"global"`
	Groups  []string `json:"groups,omitempty"`
}

// ListRemindersOutput is the output for watch_list_reminders
type ListRemindersOutput struct {
	Reminders []ReminderEntry `json:"reminders"`
}

func (s *WatchMCPServer) handleListReminders(ctx context.Context, req *mcp.CallToolRequest, input ListRemindersInput) (*mcp.CallToolResult, ListRemindersOutput, error) {
	overviews, err := s.reminderUC.List(ctx, input.Owner, s.bot)
	if err != nil {
		return nil, ListRemindersOutput{}, err
	}

	out := ListRemindersOutput{}
	for _, ov := range overviews {
		out.Reminders = append(out.Reminders, ReminderEntry{
			Keyword: ov.Keyword,
			Global:  ov.Global,
			Groups:  ov.Groups,
		})
	}
	return nil, out, nil
}

// AddReminderInput is the input for watch_add_reminder
type AddReminderInput struct {
	Owner   string `json:"owner" jsonschema:"description=The open_id of the user the watch belongs to"`
	Keyword string `json:"keyword" jsonschema:"description=The substring to watch for"`
	GroupID string `json:"group_id,omitempty" jsonschema:"description=Group chat ID (oc_...); omit for a global watch"`
}

// MutationOutput reports the result of a store mutation
type MutationOutput struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
}

func (s *WatchMCPServer) handleAddReminder(ctx context.Context, req *mcp.CallToolRequest, input AddReminderInput) (*mcp.CallToolResult, MutationOutput, error) {
	scope, err := scopeFromInput(input.GroupID)
	if err != nil {
		return nil, MutationOutput{Success: false, Detail: err.Error()}, nil
	}

	result, err := s.reminderUC.Add(ctx, scope, input.Owner, input.Keyword, s.bot)
	if err != nil {
		return nil, MutationOutput{}, err
	}
	if result == usecase.AddExisted {
		return nil, MutationOutput{Success: true, Detail: "already registered"}, nil
	}
	return nil, MutationOutput{Success: true}, nil
}

// RemoveReminderInput is the input for watch_remove_reminder
type RemoveReminderInput struct {
	Owner   string `json:"owner" jsonschema:"description=The open_id of the user the watch belongs to"`
	Keyword string `json:"keyword" jsonschema:"description=The watched substring to remove"`
	GroupID string `json:"group_id,omitempty" jsonschema:"description=Group chat ID (oc_...); omit for the global scope"`
}

func (s *WatchMCPServer) handleRemoveReminder(ctx context.Context, req *mcp.CallToolRequest, input RemoveReminderInput) (*mcp.CallToolResult, MutationOutput, error) {
	scope, err := scopeFromInput(input.GroupID)
	if err != nil {
		return nil, MutationOutput{Success: false, Detail: err.Error()}, nil
	}

	removed, err := s.reminderUC.Remove(ctx, scope, input.Owner, []string{input.Keyword}, s.bot)
	if err != nil {
		return nil, MutationOutput{}, err
	}
	if removed == 0 {
		return nil, MutationOutput{Success: false, Detail: "no such watch"}, nil
	}
	return nil, MutationOutput{Success: true, Detail: fmt.Sprintf("removed %d", removed)}, nil
}

// ListIgnoredInput is the input for watch_list_ignored
type ListIgnoredInput struct{}

// ListIgnoredOutput is the output for watch_list_ignored
type ListIgnoredOutput struct {
	Users []string `json:"users"`
}

func (s *WatchMCPServer) handleListIgnored(ctx context.Context, req *mcp.CallToolRequest, input ListIgnoredInput) (*mcp.CallToolResult, ListIgnoredOutput, error) {
	users, err := s.ignoreUC.List(ctx, s.bot)
	if err != nil {
		return nil, ListIgnoredOutput{}, err
	}
	return nil, ListIgnoredOutput{Users: users}, nil
}

// IgnoreUserInput is the input for watch_ignore_user and watch_unignore_user
type IgnoreUserInput struct {
	UserID string `json:"user_id" jsonschema:"description=The open_id of the user"`
}

func (s *WatchMCPServer) handleIgnoreUser(ctx context.Context, req *mcp.CallToolRequest, input IgnoreUserInput) (*mcp.CallToolResult, MutationOutput, error) {
	added, err := s.ignoreUC.Add(ctx, s.bot, input.UserID)
	if err != nil {
		return nil, MutationOutput{}, err
	}
	if !added {
		return nil, MutationOutput{Success: true, Detail: "already ignored"}, nil
	}
	return nil, MutationOutput{Success: true}, nil
}

func (s *WatchMCPServer) handleUnignoreUser(ctx context.Context, req *mcp.CallToolRequest, input IgnoreUserInput) (*mcp.CallToolResult, MutationOutput, error) {
	removed, err := s.ignoreUC.Remove(ctx, s.bot, input.UserID)
	if err != nil {
		return nil, MutationOutput{}, err
	}
	if !removed {
		return nil, MutationOutput{Success: false, Detail: "not ignored"}, nil
	}
	return nil, MutationOutput{Success: true}, nil
}

func scopeFromInput(groupID string) (domain.Scope, error) {
	if groupID == "" {
		return domain.GlobalScope(), nil
	}
	if !strings.HasPrefix(groupID, "oc_") {
		return domain.Scope{}, fmt.Errorf("group_id must start with oc_, got %q", groupID)
	}
	return domain.GroupScope(groupID), nil
}

// Run starts the MCP server with stdio transport
func (s *WatchMCPServer) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
