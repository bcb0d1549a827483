package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/backlog/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the store to agents over MCP on stdio",
		Long: `Run a Model Context Protocol server on stdin and stdout. Logs go to
stderr. The server stops on SIGINT, SIGTERM, or when stdin closes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *session) error {
				ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				srv := server.New(s.store, Version)
				s.logger.Info("mcp server starting", "data_dir", s.dataDir)
				return server.Serve(ctx, srv, cmd.InOrStdin(), cmd.OutOrStdout(), s.logger)
			})
		},
	}
}
