// Package main provides the entry point for docweave.
//
// docweave maintains per-symbol documentation for a tracked Go
// repository: it discovers documentable symbols, detects what changed
// since the last run, and drives a language-model backend to
// regenerate only the documentation that needs it.
//
// Usage:
//
//	docweave run              Generate/update documentation (default)
//	docweave init-config      Create an example configuration file
//	docweave version          Show version information
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/docweave/internal/config"
	"github.com/ternarybob/docweave/internal/logger"
	"github.com/ternarybob/docweave/pkg/runner"
)

// version is set via -ldflags at build time.
var version = "dev"

var validProfiles = map[string]bool{"default": true, "terse": true}

func main() {
	args := os.Args[1:]
	command, flags := parseArgs(args)

	var err error
	switch command {
	case "run", "":
		err = cmdRun(flags)
	case "init-config":
		err = cmdInitConfig(flags)
	case "version", "-v", "--version":
		cmdVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// flagSet carries the parsed global flags.
type flagSet struct {
	clear      bool
	profile    string
	repoPath   string
	configPath string
}

func parseArgs(args []string) (string, flagSet) {
	fs := flagSet{profile: "default"}
	command := ""

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--clear":
			fs.clear = true
		case arg == "--profile" && i+1 < len(args):
			fs.profile = args[i+1]
			i++
		case strings.HasPrefix(arg, "--profile="):
			fs.profile = strings.TrimPrefix(arg, "--profile=")
		case arg == "--repo-path" && i+1 < len(args):
			fs.repoPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "--repo-path="):
			fs.repoPath = strings.TrimPrefix(arg, "--repo-path=")
		case arg == "--config" && i+1 < len(args):
			fs.configPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			fs.configPath = strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "-"):
			// skip unrecognized flags
		case command == "":
			command = arg
		}
	}
	return command, fs
}

func printUsage() {
	fmt.Println(`docweave - automated per-symbol documentation maintenance

Usage:
  docweave [flags] [command]

Commands:
  run           Generate/update documentation (default)
  init-config   Create an example configuration file
  version       Show version information
  help          Show this help

Flags:
  --clear              Wipe the snapshot and rendered-output directories and start over
  --profile NAME        Prompt-template profile: "default" or "terse" (default "default")
  --repo-path PATH      Override the repository path from config
  --config PATH         Path to configuration file (default: ./.docweave.toml)

Environment:
  DOCWEAVE_CONFIG       Path to configuration file (alternative to --config)
  GEMINI_API_KEY        API key for the optional Gemini backend

Examples:
  docweave run                         Generate documentation with defaults
  docweave run --clear                 Start over, ignoring any prior snapshot
  docweave run --repo-path ../other     Document a different repository
  docweave init-config                 Create .docweave.toml in the current directory`)
}

func cmdVersion() {
	fmt.Printf("docweave version %s\n", version)
}

func getConfigPath(fs flagSet) string {
	if fs.configPath != "" {
		return fs.configPath
	}
	if envPath := os.Getenv("DOCWEAVE_CONFIG"); envPath != "" {
		return envPath
	}
	return config.DefaultConfigPath(".")
}

func cmdInitConfig(fs flagSet) error {
	path := getConfigPath(fs)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := config.WriteExampleConfig(path); err != nil {
		return err
	}
	fmt.Printf("Created example configuration: %s\n", path)
	return nil
}

func cmdRun(fs flagSet) error {
	if !validProfiles[fs.profile] {
		return fmt.Errorf("unknown profile %q (valid: default, terse)", fs.profile)
	}

	cfg, err := config.Load(getConfigPath(fs))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if fs.repoPath != "" {
		cfg.Repo.RepoPath = fs.repoPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := logger.SetupLogger(cfg)
	defer logger.Stop()

	ctx := context.Background()
	run, err := runner.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("construct runner: %w", err)
	}

	if fs.clear {
		log.Info().Msg("clearing snapshot and rendered-output directories")
		if err := run.Clear(); err != nil {
			return fmt.Errorf("clear: %w", err)
		}
	}

	log.Info().Str("repo_path", cfg.Repo.RepoPath).Str("profile", fs.profile).Msg("starting documentation run")

	stats, err := run.Run(ctx, fs.profile)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	log.Info().
		Int("symbols", stats.SymbolCount).
		Int("tasks_run", stats.TasksRun).
		Int("cycle_breaks", len(stats.CycleBreaks)).
		Int("deleted_items", len(stats.DeletedItems)).
		Msg("documentation run complete")

	fmt.Printf("docweave: %d symbol(s), %d documentation task(s) run, %d cycle(s) broken, %d item(s) deleted since the last snapshot\n",
		stats.SymbolCount, stats.TasksRun, len(stats.CycleBreaks), len(stats.DeletedItems))

	return nil
}
