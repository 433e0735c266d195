package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"projectreview/internal/api"
	"projectreview/internal/config"
	"projectreview/internal/session"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, *configPath)
		},
	}
}

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx, stop := signal.NotifyContext(background(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reviewer, err := newReviewer(ctx, cfg)
	if err != nil {
		return err
	}
	sessions := session.NewStore(cfg.SessionIdle())
	sessions.StartSweeper(ctx, session.DefaultSweepInterval)

	router := gin.Default()
	api.NewHandler(reviewer, sessions, cfg.BasicConfig.StaticDir).RegisterRoutes(router)

	log.Printf("using %s model %s, listening on %s", cfg.Provider, cfg.ActiveProvider().Model, cfg.BasicConfig.ServerAddress)
	return router.Run(cfg.BasicConfig.ServerAddress)
}

// background is used when a command runs outside Execute, as in tests.
func background(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
