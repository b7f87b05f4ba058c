package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/everlift-app/everlift/pkg/cli/config"
	httpctrl "github.com/everlift-app/everlift/pkg/controller/http"
	"github.com/everlift-app/everlift/pkg/repository/session"
	"github.com/everlift-app/everlift/pkg/service/coach"
	"github.com/everlift-app/everlift/pkg/usecase"
	"github.com/everlift-app/everlift/pkg/utils/logging"
)

func cmdServe() *cli.Command {
	var addr string
	var repoCfg config.Repository
	var coachCfg config.Coach
	var needsCfg config.NeedsConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("EVERLIFT_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, coachCfg.Flags()...)
	flags = append(flags, needsCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			needs, err := needsCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load needs catalogue")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			backend, err := coachCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure coach backend")
			}
			gateway := coach.NewGateway(backend)

			// Session UI state and conversation plans are ephemeral by
			// contract, so the store is always in-memory.
			sessions := session.New()

			uc := usecase.New(repo, sessions, gateway,
				usecase.WithNeedsConfig(needs),
				usecase.WithCoachName(coachCfg.CoachName()),
			)

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
