package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kingrea/mortgage-portal/internal/config"
	"github.com/kingrea/mortgage-portal/internal/logging"
	"github.com/kingrea/mortgage-portal/internal/stubserver"
)

func stubCmd() *cobra.Command {
	var (
		addr string
		seed bool
		dir  string
	)
	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Serve an in-memory fake of the decisioning services",
		Long: `Serve every endpoint the portal calls from one process.

Examples:
  portal stub --addr 127.0.0.1:8080
  portal --borrower-url http://127.0.0.1:8080 --underwriter-url http://127.0.0.1:8080 --letter-url http://127.0.0.1:8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			workDir, err := resolveDir(dir)
			if err != nil {
				return err
			}
			if err := config.InitPortalDir(workDir); err != nil {
				return err
			}
			cfg, err := config.NewConfig(workDir)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogsDir())
			if err != nil {
				return err
			}
			defer logger.Close()

			store := stubserver.NewStore()
			if seed {
				store.Seed()
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := stubserver.New(store, stubserver.WithLogger(logger))
			if err := srv.Start(ctx, addr); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stub backend listening on %s (ctrl+c to stop)\n", srv.BaseURL())
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().BoolVar(&seed, "seed", true, "load demo accounts and applications")
	cmd.Flags().StringVar(&dir, "dir", "", "directory holding .portal/ for the request log")
	return cmd
}
