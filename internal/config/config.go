// Package config provides configuration loading for docweave: TOML
// decode with environment-variable and tilde expansion,
// default-then-overlay loading, and a Validate/Clone pair.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the full docweave configuration.
type Config struct {
	Repo    RepoConfig    `toml:"repo"`
	Run     RunConfig     `toml:"run"`
	LLM     LLMConfig     `toml:"llm"`
	Logging LoggingConfig `toml:"logging"`
}

// RepoConfig locates the repository under analysis and its snapshot.
type RepoConfig struct {
	RepoPath           string   `toml:"repo_path"`
	ProjectHierarchy   string   `toml:"project_hierarchy"`
	MarkdownDocsFolder string   `toml:"markdown_docs_folder"`
	WhitelistPath      string   `toml:"whitelist_path"`
	IgnoreList         []string `toml:"ignore_list"`
}

// RunConfig controls the executor and generation budget.
type RunConfig struct {
	MaxThreadCount    int `toml:"max_thread_count"`
	MaxDocumentTokens int `toml:"max_document_tokens"`
}

// LLMConfig selects and configures the documentation backend.
type LLMConfig struct {
	Provider       string `toml:"provider"`
	OllamaHost     string `toml:"ollama_host"`
	OllamaModel    string `toml:"ollama_model"`
	GeminiModel    string `toml:"gemini_model"`
	GeminiAPIKey   string `toml:"gemini_api_key"`
	RequestTimeout int    `toml:"request_timeout"`
}

// LoggingConfig selects arbor's writer set and level.
type LoggingConfig struct {
	Level    string `toml:"level"`
	Output   string `toml:"output"` // "console" | "file" | "both"
	FilePath string `toml:"file_path"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Repo: RepoConfig{
			RepoPath:           ".",
			ProjectHierarchy:   ".docweave",
			MarkdownDocsFolder: "docs/generated",
			WhitelistPath:      "",
			IgnoreList:         []string{"vendor/", "testdata/"},
		},
		Run: RunConfig{
			MaxThreadCount:    4,
			MaxDocumentTokens: 1024,
		},
		LLM: LLMConfig{
			Provider:       "ollama",
			OllamaHost:     "http://localhost:11434",
			OllamaModel:    "qwen2.5-coder",
			GeminiModel:    "gemini-2.0-flash",
			GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
			RequestTimeout: 30,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "both",
			FilePath: "",
		},
	}
}

// DefaultConfigPath returns the conventional config path under the
// repository being documented.
func DefaultConfigPath(repoPath string) string {
	return filepath.Join(repoPath, ".docweave.toml")
}

// Load reads path, overlaying its values onto DefaultConfig; a missing
// file is not an error, it yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if _, err := toml.Decode(expanded, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.expandPaths()
	return cfg, nil
}

// LoadFromString behaves like Load but decodes an in-memory string,
// for tests and init-config previews.
func LoadFromString(tomlStr string) (*Config, error) {
	cfg := DefaultConfig()

	expanded := os.ExpandEnv(tomlStr)
	if _, err := toml.Decode(expanded, cfg); err != nil {
		return nil, fmt.Errorf("parse config string: %w", err)
	}

	cfg.expandPaths()
	return cfg, nil
}

func (c *Config) expandPaths() {
	home, _ := os.UserHomeDir()
	expandTilde := func(p string) string {
		if strings.HasPrefix(p, "~/") {
			return filepath.Join(home, p[2:])
		}
		return p
	}

	c.Repo.RepoPath = expandTilde(c.Repo.RepoPath)
	c.Repo.WhitelistPath = expandTilde(c.Repo.WhitelistPath)
	c.Logging.FilePath = expandTilde(c.Logging.FilePath)
}

// Save writes c to path in TOML format, creating parent directories
// as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

const exampleConfig = `[repo]
repo_path = "."
project_hierarchy = ".docweave"
markdown_docs_folder = "docs/generated"
whitelist_path = ""
ignore_list = ["vendor/", "testdata/"]

[run]
max_thread_count = 4
max_document_tokens = 1024

[llm]
provider = "ollama"          # "ollama" | "gemini"
ollama_host = "http://localhost:11434"
ollama_model = "qwen2.5-coder"
gemini_model = "gemini-2.0-flash"
request_timeout = 30

[logging]
level = "info"
output = "both"
file_path = ""
`

// WriteExampleConfig writes a commented example configuration to path.
func WriteExampleConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(exampleConfig), 0o644)
}

// Validate checks invariants Load cannot enforce by itself.
func (c *Config) Validate() error {
	if c.Run.MaxThreadCount < 1 {
		return fmt.Errorf("max_thread_count must be at least 1")
	}
	if c.Run.MaxDocumentTokens < 1 {
		return fmt.Errorf("max_document_tokens must be at least 1")
	}
	if c.Repo.WhitelistPath != "" {
		if _, err := os.Stat(c.Repo.WhitelistPath); err != nil {
			return fmt.Errorf("whitelist_path %q: %w", c.Repo.WhitelistPath, err)
		}
	}
	switch c.LLM.Provider {
	case "ollama", "gemini":
	default:
		return fmt.Errorf("llm.provider must be \"ollama\" or \"gemini\", got %q", c.LLM.Provider)
	}
	return nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Repo.IgnoreList = make([]string, len(c.Repo.IgnoreList))
	copy(clone.Repo.IgnoreList, c.Repo.IgnoreList)
	return &clone
}

// SnapshotPath returns the on-disk path of the project hierarchy
// snapshot file.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.Repo.RepoPath, c.Repo.ProjectHierarchy, "project_hierarchy.json")
}

// MarkdownDocsPath returns the rendered-output directory.
func (c *Config) MarkdownDocsPath() string {
	return filepath.Join(c.Repo.RepoPath, c.Repo.MarkdownDocsFolder)
}
