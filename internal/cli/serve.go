package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/wafermap/internal/server"
	"github.com/matzehuels/wafermap/pkg/cache"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 10 * time.Second

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		redis   string
		noCache bool
		noStore bool
		sopts   storeOpts
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

POST /v1/overlay merges station maps sent inline. GET /v1/runs and
GET /v1/runs/{id} read the run archive. With --redis, decoded grids are
cached in Redis and shared between instances.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ropts := runnerOptions{
				noCache: noCache,
				redis:   redis,
				keyer:   cache.NewScopedKeyer(cache.NewDefaultKeyer(), "api:"),
			}
			if !noStore {
				sc, err := sopts.config()
				if err != nil {
					return err
				}
				ropts.store = sc
			}
			return c.runServe(cmd.Context(), addr, ropts)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	cmd.Flags().StringVar(&redis, "redis", "", "Redis address (host:port) for the shared cache")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&noStore, "no-archive", false, "disable the run archive")
	sopts.register(cmd)

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, ropts runnerOptions) error {
	runner, err := c.newRunner(ctx, ropts)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(runner, runner.Store, c.Logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	printSuccess("Listening on %s", StyleHighlight.Render(addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	c.Logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
