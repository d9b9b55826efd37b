package main

import (
	"context"
	"fmt"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/devboy-tools/devboy/config"
	"github.com/devboy-tools/devboy/core"
	"github.com/devboy-tools/devboy/pipeline"
	"github.com/devboy-tools/devboy/providers/github"
	"github.com/devboy-tools/devboy/providers/gitlab"
	"github.com/devboy-tools/devboy/storage"
	"github.com/devboy-tools/devboy/types"
)

// buildProviders constructs one client per configured provider section.
// Sections without a stored credential are skipped with a warning rather
// than failing the whole startup.
func buildProviders(cfg *config.Config, store storage.CredentialStore, logger types.Logger) ([]core.Provider, error) {
	var providers []core.Provider

	if cfg.GitHub != nil {
		token, ok, err := store.Get("github_token")
		if err != nil {
			return nil, err
		}
		if !ok {
			logger.Warn("github is configured but no github_token is stored, skipping")
		} else {
			opts := []github.Option{github.WithLogger(logger)}
			if cfg.GitHub.BaseURL != "" {
				opts = append(opts, github.WithBaseURL(cfg.GitHub.BaseURL))
			}
			providers = append(providers, github.New(cfg.GitHub.Owner, cfg.GitHub.Repo, token, opts...))
		}
	}

	if cfg.GitLab != nil {
		token, ok, err := store.Get("gitlab_token")
		if err != nil {
			return nil, err
		}
		if !ok {
			logger.Warn("gitlab is configured but no gitlab_token is stored, skipping")
		} else {
			opts := []gitlab.Option{gitlab.WithLogger(logger)}
			if cfg.GitLab.URL != "" {
				opts = append(opts, gitlab.WithBaseURL(cfg.GitLab.URL))
			}
			providers = append(providers, gitlab.New(cfg.GitLab.ProjectID, token, opts...))
		}
	}

	if cfg.ClickUp != nil {
		logger.Warn("clickup is configured but not yet supported, skipping")
	}
	if cfg.Jira != nil {
		logger.Warn("jira is configured but not yet supported, skipping")
	}

	return providers, nil
}

func loadProviders(logger types.Logger) ([]core.Provider, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	providers, err := buildProviders(cfg, storage.Default(), logger)
	if err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers configured; run devboy config set first")
	}
	return providers, nil
}

func runIssues(args []string, logger types.Logger) error {
	flags := flag.NewFlagSet("issues", flag.ContinueOnError)
	state := flags.String("state", "open", "filter by state (open, closed, all)")
	limit := flags.Int("limit", 20, "maximum number of issues")
	if err := flags.Parse(args); err != nil {
		return err
	}

	providers, err := loadProviders(logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var all []core.Issue
	for _, p := range providers {
		issues, err := p.ListIssues(ctx, core.IssueFilter{State: *state, Limit: *limit})
		if err != nil {
			logger.Warn("error from %s: %v", p.Name(), err)
			continue
		}
		all = append(all, issues...)
	}

	cfg := pipeline.DefaultConfig()
	cfg.MaxItems = *limit
	cfg.IncludeHints = false
	out, err := pipeline.WithConfig(cfg).TransformIssues(all)
	if err != nil {
		return err
	}
	fmt.Println(out.Content)
	return nil
}

func runMrs(args []string, logger types.Logger) error {
	flags := flag.NewFlagSet("mrs", flag.ContinueOnError)
	state := flags.String("state", "open", "filter by state (open, closed, merged, all)")
	limit := flags.Int("limit", 20, "maximum number of merge requests")
	if err := flags.Parse(args); err != nil {
		return err
	}

	providers, err := loadProviders(logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var all []core.MergeRequest
	for _, p := range providers {
		mrs, err := p.ListMergeRequests(ctx, core.MrFilter{State: *state, Limit: *limit})
		if err != nil {
			logger.Warn("error from %s: %v", p.Name(), err)
			continue
		}
		all = append(all, mrs...)
	}

	cfg := pipeline.DefaultConfig()
	cfg.MaxItems = *limit
	cfg.IncludeHints = false
	out, err := pipeline.WithConfig(cfg).TransformMergeRequests(all)
	if err != nil {
		return err
	}
	fmt.Println(out.Content)
	return nil
}

func runTest(args []string, logger types.Logger) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: devboy test PROVIDER")
	}
	name := args[0]

	providers, err := loadProviders(logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, p := range providers {
		if p.Name() != name {
			continue
		}
		fmt.Printf("Testing %s connection...\n", name)
		user, err := p.CurrentUser(ctx)
		if err != nil {
			if core.IsAuthError(err) {
				return fmt.Errorf("%s authentication failed, check the stored token: %w", name, err)
			}
			return fmt.Errorf("%s connection failed: %w", name, err)
		}
		fmt.Printf("OK: authenticated as %s\n", user.Username)
		return nil
	}
	return fmt.Errorf("provider %s is not configured", name)
}
