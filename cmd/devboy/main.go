// Command devboy runs the devboy tool server and its companion CLI.
//
// Without a subcommand it prints usage. "serve" starts the JSON-RPC server
// on stdio (or a websocket listener with --ws); the remaining subcommands
// manage configuration and query providers directly for quick checks.
package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/devboy-tools/devboy/config"
	"github.com/devboy-tools/devboy/logx"
	"github.com/devboy-tools/devboy/server"
	"github.com/devboy-tools/devboy/storage"
	"github.com/devboy-tools/devboy/tools"
	"github.com/devboy-tools/devboy/types"
)

const (
	appName = "devboy"
	version = "0.3.0"
)

const usage = `devboy - unified issue tracker and code review tools

Usage:
  devboy serve [--ws ADDR] [--path PATH]   start the tool server (stdio by default)
  devboy issues [--state STATE] [--limit N] list issues from configured providers
  devboy mrs [--state STATE] [--limit N]    list merge requests
  devboy test PROVIDER                      check a provider connection
  devboy config set KEY VALUE               set a config value (e.g. github.owner)
  devboy config set-secret KEY VALUE        store a credential (e.g. github_token)
  devboy config get KEY                     read a config value
  devboy config list                        show the full configuration
  devboy config path                        print the config file location

Flags:
  -v, --verbose   enable debug logging
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := flag.NewFlagSet(appName, flag.ContinueOnError)
	verbose := flags.BoolP("verbose", "v", false, "enable debug logging")
	flags.SetInterspersed(false)
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := flags.Parse(args); err != nil {
		return err
	}

	level := logx.LevelInfo
	if *verbose {
		level = logx.LevelDebug
	}
	logger := logx.NewDefaultLoggerAt(level)

	rest := flags.Args()
	if len(rest) == 0 {
		flags.Usage()
		return nil
	}

	switch rest[0] {
	case "serve":
		return runServe(rest[1:], logger)
	case "issues":
		return runIssues(rest[1:], logger)
	case "mrs":
		return runMrs(rest[1:], logger)
	case "test":
		return runTest(rest[1:], logger)
	case "config":
		return runConfig(rest[1:])
	case "help", "--help", "-h":
		flags.Usage()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", rest[0])
	}
}

func runServe(args []string, logger types.Logger) error {
	flags := flag.NewFlagSet("serve", flag.ContinueOnError)
	wsAddr := flags.String("ws", "", "listen for websocket connections on this address instead of stdio")
	wsPath := flags.String("path", "/mcp", "websocket endpoint path")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	providers, err := buildProviders(cfg, storage.Default(), logger)
	if err != nil {
		return err
	}
	if len(providers) == 0 {
		logger.Warn("no providers configured, tool calls will fail; run devboy config set")
	}

	handler := tools.NewHandler(providers, tools.WithLogger(logger))
	ctx := context.Background()

	if *wsAddr != "" {
		return server.ServeWS(ctx, *wsAddr, *wsPath, appName, version, handler, logger)
	}

	transport := server.NewStdioTransport(os.Stdin, os.Stdout, nil)
	srv := server.New(appName, version, transport, handler, server.WithLogger(logger))
	return srv.Run(ctx)
}

func runConfig(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("config requires a subcommand: set, set-secret, get, list, path")
	}

	switch args[0] {
	case "set":
		if len(args) != 3 {
			return fmt.Errorf("usage: devboy config set KEY VALUE")
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.Set(args[1], args[2]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("Set %s\n", args[1])
		return nil

	case "set-secret":
		if len(args) != 3 {
			return fmt.Errorf("usage: devboy config set-secret KEY VALUE")
		}
		if err := storage.Default().Store(args[1], args[2]); err != nil {
			return err
		}
		fmt.Printf("Stored %s\n", args[1])
		return nil

	case "get":
		if len(args) != 2 {
			return fmt.Errorf("usage: devboy config get KEY")
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		value, ok, err := cfg.Get(args[1])
		if err != nil {
			return err
		}
		if ok {
			fmt.Println(value)
			return nil
		}
		// Fall back to the credential store for secret keys.
		if secret, found, err := storage.Default().Get(args[1]); err == nil && found {
			fmt.Printf("%s (secret)\n", maskSecret(secret))
			return nil
		}
		fmt.Println("(not set)")
		return nil

	case "list":
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		printConfig(cfg)
		return nil

	case "path":
		path, err := config.Path()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	default:
		return fmt.Errorf("unknown config subcommand: %s", args[0])
	}
}

func printConfig(cfg *config.Config) {
	if !cfg.HasAnyProvider() {
		fmt.Println("No providers configured.")
		return
	}
	if cfg.GitHub != nil {
		fmt.Println("[github]")
		fmt.Printf("  owner: %s\n", cfg.GitHub.Owner)
		fmt.Printf("  repo: %s\n", cfg.GitHub.Repo)
		if cfg.GitHub.BaseURL != "" {
			fmt.Printf("  base_url: %s\n", cfg.GitHub.BaseURL)
		}
	}
	if cfg.GitLab != nil {
		fmt.Println("[gitlab]")
		fmt.Printf("  url: %s\n", cfg.GitLab.URL)
		fmt.Printf("  project_id: %s\n", cfg.GitLab.ProjectID)
	}
	if cfg.ClickUp != nil {
		fmt.Println("[clickup]")
		fmt.Printf("  list_id: %s\n", cfg.ClickUp.ListID)
	}
	if cfg.Jira != nil {
		fmt.Println("[jira]")
		fmt.Printf("  url: %s\n", cfg.Jira.URL)
		fmt.Printf("  project_key: %s\n", cfg.Jira.ProjectKey)
		fmt.Printf("  email: %s\n", cfg.Jira.Email)
	}
}

// maskSecret hides the middle of a credential, keeping just enough to
// recognize it.
func maskSecret(value string) string {
	if len(value) <= 8 {
		masked := make([]byte, len(value))
		for i := range masked {
			masked[i] = '*'
		}
		return string(masked)
	}
	return value[:4] + "..." + value[len(value)-4:]
}
