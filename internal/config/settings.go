package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	perrors "github.com/p-blackswan/trio/internal/errors"
)

// Default settings values.
const (
	DefaultModel           = "claude-sonnet-4-5-20250929"
	DefaultMaxOutputTokens = 1024
	DefaultTheme           = "light"
)

// Keys written by older versions of the settings file.
const (
	legacyAPIKey    = "anthropic_api_key"
	legacyMaxTokens = "max_tokens"
)

// Settings is the user-editable settings file. Keys this version does not know are kept
// in Extra and written back unchanged.
type Settings struct {
	APIKey          string `yaml:"api_key"`
	Model           string `yaml:"model"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
	Theme           string `yaml:"theme"`
	ExtractTasks    bool   `yaml:"extract_tasks"`

	Extra map[string]interface{} `yaml:",inline"`
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() *Settings {
	return &Settings{
		Model:           DefaultModel,
		MaxOutputTokens: DefaultMaxOutputTokens,
		Theme:           DefaultTheme,
	}
}

// LoadSettings reads the settings file at path. A missing file is created with defaults;
// a present file is overlaid on the defaults.
func LoadSettings(path string) (*Settings, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s := DefaultSettings()
		if err := s.Save(path); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	s, err := ParseSettings(raw)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return s, nil
}

// ParseSettings decodes settings from YAML (or JSON) bytes on top of the defaults.
func ParseSettings(data []byte) (*Settings, error) {
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, err
	}
	var present struct {
		APIKey          *string `yaml:"api_key"`
		MaxOutputTokens *int    `yaml:"max_output_tokens"`
	}
	if err := yaml.Unmarshal(data, &present); err != nil {
		return nil, err
	}
	s.adoptLegacyKeys(present.APIKey != nil, present.MaxOutputTokens != nil)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// adoptLegacyKeys moves old key names onto their current fields unless the current key
// was also present in the file.
func (s *Settings) adoptLegacyKeys(hasAPIKey, hasMaxOutputTokens bool) {
	if v, ok := s.Extra[legacyAPIKey].(string); ok {
		if !hasAPIKey {
			s.APIKey = v
		}
		delete(s.Extra, legacyAPIKey)
	}
	if v, ok := s.Extra[legacyMaxTokens].(int); ok {
		if !hasMaxOutputTokens {
			s.MaxOutputTokens = v
		}
		delete(s.Extra, legacyMaxTokens)
	}
	if len(s.Extra) == 0 {
		s.Extra = nil
	}
}

// Validate checks value ranges.
func (s *Settings) Validate() error {
	if s.MaxOutputTokens <= 0 {
		return perrors.Validationf("max_output_tokens must be positive, got %d", s.MaxOutputTokens)
	}
	if strings.TrimSpace(s.Model) == "" {
		return perrors.Validationf("model must not be empty")
	}
	return nil
}

// Save writes the settings to path with owner-only permissions.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// ResolvedAPIKey returns the API key with ${VAR} and $VAR references expanded.
func (s *Settings) ResolvedAPIKey() string {
	return strings.TrimSpace(expandEnvVars(s.APIKey))
}

// GatewayEnabled reports whether an API key is available.
func (s *Settings) GatewayEnabled() bool {
	return s.ResolvedAPIKey() != ""
}

// Set assigns a known key from its string form.
func (s *Settings) Set(key, value string) error {
	switch key {
	case "api_key":
		s.APIKey = value
	case "model":
		s.Model = value
	case "max_output_tokens":
		n, err := strconv.Atoi(value)
		if err != nil {
			return perrors.Validationf("max_output_tokens: %v", err)
		}
		s.MaxOutputTokens = n
	case "theme":
		s.Theme = value
	case "extract_tasks":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return perrors.Validationf("extract_tasks: %v", err)
		}
		s.ExtractTasks = b
	default:
		return perrors.Validationf("unknown setting %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	return s.Validate()
}

// Keys lists the settable keys in sorted order.
func Keys() []string {
	keys := []string{"api_key", "model", "max_output_tokens", "theme", "extract_tasks"}
	sort.Strings(keys)
	return keys
}

// Redacted returns a copy safe to print.
func (s *Settings) Redacted() *Settings {
	c := *s
	if c.APIKey != "" && !strings.HasPrefix(c.APIKey, "$") {
		c.APIKey = redact(c.APIKey)
	}
	return &c
}

func redact(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****" + secret[len(secret)-4:]
}

// envVarPattern matches ${VAR_NAME} and $VAR_NAME.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars replaces ${VAR} and $VAR with the corresponding environment
// variable value. Missing vars are replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimPrefix(match, "${")
		name = strings.TrimSuffix(name, "}")
		name = strings.TrimPrefix(name, "$")
		return os.Getenv(name)
	})
}
