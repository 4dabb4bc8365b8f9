package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/cli/config"
	httpctrl "github.com/secmon-lab/actiontrail/pkg/controller/http"
	"github.com/secmon-lab/actiontrail/pkg/service/worker"
	"github.com/secmon-lab/actiontrail/pkg/usecase"
	"github.com/secmon-lab/actiontrail/pkg/utils/async"
	"github.com/secmon-lab/actiontrail/pkg/utils/clock"
	"github.com/secmon-lab/actiontrail/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe(version string) *cli.Command {
	var addr string
	var trustProxy bool
	var bodyLimit int64
	var sweepInterval time.Duration
	var appCfg config.AppConfig
	var repoCfg config.Repository
	var authCfg config.Auth
	var slackCfg config.Slack
	var sentryCfg config.Sentry

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("ACTIONTRAIL_ADDR"),
			Destination: &addr,
		},
		&cli.BoolFlag{
			Name:        "trust-proxy",
			Usage:       "Take the client IP from X-Forwarded-For / X-Real-IP (behind a load balancer)",
			Sources:     cli.EnvVars("ACTIONTRAIL_TRUST_PROXY"),
			Destination: &trustProxy,
		},
		&cli.Int64Flag{
			Name:        "body-limit",
			Usage:       "Maximum request body size in bytes",
			Value:       10 << 20,
			Sources:     cli.EnvVars("ACTIONTRAIL_BODY_LIMIT"),
			Destination: &bodyLimit,
		},
		&cli.DurationFlag{
			Name:        "token-sweep-interval",
			Usage:       "Interval of removing expired token revocations",
			Value:       time.Hour,
			Sources:     cli.EnvVars("ACTIONTRAIL_TOKEN_SWEEP_INTERVAL"),
			Destination: &sweepInterval,
		},
	}

	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, authCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx)

			flush, err := sentryCfg.Configure(version)
			if err != nil {
				return goerr.Wrap(err, "failed to configure sentry")
			}
			defer flush()

			cfg, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load configuration")
			}

			authConfig, err := authCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure authentication")
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

			ucOpts := []usecase.Option{
				usecase.WithSettings(cfg.Settings()),
				usecase.WithAuth(authConfig),
			}

			notifier, err := slackCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure slack notifications")
			}
			if notifier != nil {
				ucOpts = append(ucOpts, usecase.WithNotifier(notifier))
				logger.Info("Slack plan notifications enabled", "slack", slackCfg)
			} else {
				logger.Info("Slack not configured, plan notifications disabled")
			}

			uc := usecase.New(repo, ucOpts...)

			// A store that is unreachable at boot must not keep the server down;
			// the bootstrap is retried on the next start.
			username, password := authCfg.AdminCredentials()
			created, err := uc.User.EnsureAdmin(ctx, username, password)
			switch {
			case err != nil:
				logger.Error("failed to bootstrap admin account", "error", err)
			case created:
				logger.Warn("Created bootstrap admin account, change its password", "username", username)
			}

			sweeper := worker.NewTokenSweepWorker(repo, clock.Now, sweepInterval)
			if err := sweeper.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start token sweep worker")
			}

			httpHandler := httpctrl.New(uc,
				httpctrl.WithAllowedOrigins(cfg.CORS.AllowedOrigins),
				httpctrl.WithRateLimit(cfg.RateLimit.Requests, cfg.RateWindow()),
				httpctrl.WithBodyLimit(bodyLimit),
				httpctrl.WithTrustProxy(trustProxy),
			)
			server := &http.Server{
				Addr:              addr,
				Handler:           httpHandler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server", "addr", addr, "config", cfg, "auth", authCfg)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				sweeper.Stop()
				return err
			case sig := <-sigCh:
				logger.Info("Received shutdown signal", "signal", sig)

				sweeper.Stop()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				// Plan notifications still in flight
				if err := async.Wait(shutdownCtx); err != nil {
					logger.Warn("background tasks did not finish before shutdown", "error", err)
				}

				logger.Info("Server shutdown completed")
				return nil
			}
		},
	}
}
