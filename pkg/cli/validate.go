package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/cli/config"
	"github.com/secmon-lab/actiontrail/pkg/usecase"
	"github.com/secmon-lab/actiontrail/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// ErrValidationIssues is returned when the DB consistency check finds problems
var ErrValidationIssues = goerr.New("DB consistency check found issues")

func cmdValidate() *cli.Command {
	var appCfg config.AppConfig
	var repoCfg config.Repository
	var checkDB bool

	var flags []cli.Flag
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, &cli.BoolFlag{
		Name:        "check-db",
		Usage:       "Also check the stored users, actions and plans for consistency",
		Sources:     cli.EnvVars("ACTIONTRAIL_CHECK_DB"),
		Destination: &checkDB,
	})

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate the policy file and optionally check DB consistency",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx)

			cfg, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "configuration validation failed")
			}
			logger.Info("Configuration validation passed", "config", cfg)

			if !checkDB {
				logger.Info("DB consistency check not requested, skipping")
				return nil
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logger.Error("failed to close repository", "error", err.Error())
				}
			}()

			uc := usecase.New(repo, usecase.WithSettings(cfg.Settings()))
			result, err := uc.ValidateDB(ctx)
			if err != nil {
				return goerr.Wrap(err, "DB consistency check failed")
			}

			w := c.Root().Writer
			if w == nil {
				w = os.Stdout
			}
			printValidationReport(w, result)

			if result.HasIssues() {
				return goerr.Wrap(ErrValidationIssues, "validation failed", goerr.V("issues", len(result.Issues)))
			}
			return nil
		},
	}
}

func printValidationReport(w io.Writer, result *usecase.ValidationResult) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)

	_, _ = bold.Fprintln(w, "DB consistency report")
	_, _ = fmt.Fprintf(w, "  users:        %d (%d active)\n", result.Users, result.ActiveUsers)
	_, _ = fmt.Fprintf(w, "  actions:      %d\n", result.Actions)
	_, _ = fmt.Fprintf(w, "  action plans: %d\n", result.ActionPlans)

	if !result.HasIssues() {
		_, _ = green.Fprintln(w, "No issues found")
		return
	}

	_, _ = red.Fprintf(w, "%d issue(s) found\n", len(result.Issues))
	for _, issue := range result.Issues {
		_, _ = yellow.Fprintf(w, "  [%s] ", issue.Kind)
		_, _ = fmt.Fprintf(w, "%s: %s\n", issue.Subject, issue.Message)
	}
}
