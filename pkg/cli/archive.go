package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/cli/config"
	"github.com/secmon-lab/actiontrail/pkg/service/archive"
	"github.com/secmon-lab/actiontrail/pkg/usecase"
	"github.com/secmon-lab/actiontrail/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdArchive() *cli.Command {
	var appCfg config.AppConfig
	var repoCfg config.Repository
	var year int
	var output string

	var flags []cli.Flag
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags,
		&cli.IntFlag{
			Name:        "year",
			Usage:       "Calendar year to export (must be before the current year)",
			Required:    true,
			Destination: &year,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Destination: a local directory, a .jsonl file or gs://bucket/prefix",
			Value:       ".",
			Sources:     cli.EnvVars("ACTIONTRAIL_ARCHIVE_OUTPUT"),
			Destination: &output,
		},
	)

	return &cli.Command{
		Name:  "archive",
		Usage: "Export the immutable records of a past year as JSON Lines",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx)

			cfg, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load configuration")
			}

			dst, err := archive.Resolve(output, year)
			if err != nil {
				return goerr.Wrap(err, "invalid archive destination")
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

			w, err := archive.Open(ctx, dst)
			if err != nil {
				return goerr.Wrap(err, "failed to open archive destination")
			}

			n, err := uc.ArchiveYear(ctx, year, w)
			if err != nil {
				w.Abort()
				return goerr.Wrap(err, "failed to archive year", goerr.V("year", year))
			}
			if err := w.Close(); err != nil {
				return goerr.Wrap(err, "failed to finalize archive", goerr.V("destination", dst.String()))
			}

			logger.Info("Archive completed", "year", year, "records", n, "destination", dst.String())
			return nil
		},
	}
}
