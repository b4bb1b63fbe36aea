package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// MessagesConfig contains the user-facing reply texts, loaded from YAML so
// deployments can localize them without a rebuild.
type MessagesConfig struct {
	Command CommandMessages `yaml:"command"`
}

// CommandMessages contains the chat command reply templates. Placeholders
// use {{name}} syntax.
type CommandMessages struct {
	Added          string `yaml:"added"`           // {{keywords}}, {{scope}}
	AlreadyExists  string `yaml:"already_exists"`  // {{keywords}}, {{scope}}
	Removed        string `yaml:"removed"`         // {{keywords}}, {{scope}}
	NotFound       string `yaml:"not_found"`       // {{keywords}}, {{scope}}
	ListHeader     string `yaml:"list_header"`
	ListEmpty      string `yaml:"list_empty"`
	Ignored        string `yaml:"ignored"`         // {{user}}
	AlreadyIgnored string `yaml:"already_ignored"` // {{user}}
	Unignored      string `yaml:"unignored"`       // {{user}}
	NotIgnored     string `yaml:"not_ignored"`     // {{user}}
	IgnoreEmpty    string `yaml:"ignore_empty"`
	Help           string `yaml:"help"`
}

// LoadMessagesConfig loads reply texts from a YAML file. An empty path tries
// the conventional locations; when nothing is found the defaults apply.
func LoadMessagesConfig(configPath string) (*MessagesConfig, error) {
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/messages.yaml",
			"/etc/keyword-watch/messages.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "messages.yaml"))
		}
	}

	var data []byte
	for _, p := range paths {
		if p == "" {
			continue
		}
		if b, err := os.ReadFile(p); err == nil {
			data = b
			break
		}
	}
	if data == nil {
		return DefaultMessagesConfig(), nil
	}

	var config MessagesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse messages.yaml: %w", err)
	}
	config.fillDefaults()
	return &config, nil
}

// Format renders a template, substituting {{key}} placeholders.
func Format(template string, values map[string]string) string {
	result := template
	for key, value := range values {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return result
}

func (c *MessagesConfig) fillDefaults() {
	defaults := DefaultMessagesConfig()

	if c.Command.Added == "" {
		c.Command.Added = defaults.Command.Added
	}
	if c.Command.AlreadyExists == "" {
		c.Command.AlreadyExists = defaults.Command.AlreadyExists
	}
	if c.Command.Removed == "" {
		c.Command.Removed = defaults.Command.Removed
	}
	if c.Command.NotFound == "" {
		c.Command.NotFound = defaults.Command.NotFound
	}
	if c.Command.ListHeader == "" {
		c.Command.ListHeader = defaults.Command.ListHeader
	}
	if c.Command.ListEmpty == "" {
		c.Command.ListEmpty = defaults.Command.ListEmpty
	}
	if c.Command.Ignored == "" {
		c.Command.Ignored = defaults.Command.Ignored
	}
	if c.Command.AlreadyIgnored == "" {
		c.Command.AlreadyIgnored = defaults.Command.AlreadyIgnored
	}
	if c.Command.Unignored == "" {
		c.Command.Unignored = defaults.Command.Unignored
	}
	if c.Command.NotIgnored == "" {
		c.Command.NotIgnored = defaults.Command.NotIgnored
	}
	if c.Command.IgnoreEmpty == "" {
		c.Command.IgnoreEmpty = defaults.Command.IgnoreEmpty
	}
	if c.Command.Help == "" {
		c.Command.Help = defaults.Command.Help
	}
}

// DefaultMessagesConfig returns the built-in reply texts.
func DefaultMessagesConfig() *MessagesConfig {
	return &MessagesConfig{
		Command: CommandMessages{
			Added:          "Now watching {{keywords}} ({{scope}}).",
			AlreadyExists:  "Already watching {{keywords}} ({{scope}}).",
			Removed:        "Stopped watching {{keywords}} ({{scope}}).",
			NotFound:       "No watch found for {{keywords}} ({{scope}}).",
			ListHeader:     "Your keyword watches:",
			ListEmpty:      "You have no keyword watches.",
			Ignored:        "Messages from {{user}} will no longer trigger your alerts.",
			AlreadyIgnored: "{{user}} is already on the ignore list.",
			Unignored:      "Messages from {{user}} can trigger alerts again.",
			NotIgnored:     "{{user}} is not on the ignore list.",
			IgnoreEmpty:    "The ignore list is empty.",
			Help: strings.TrimSpace(`
Keyword watch commands:
  add <keywords> [group_id]      watch keywords in this group (or the given group)
  add -g <keywords>              watch keywords in every group we share
  remove <keywords> [group_id]   stop watching in this group (or the given group)
  remove -g <keywords>           stop watching everywhere
  list                           show your watches
  ignore <user>                  stop alerts triggered by a user
  unignore <user>                lift an ignore
  ignores                        show the ignore list
  help                           this message

Separate keywords with "," or "，"; escape a literal comma as "\,".
`),
		},
	}
}
