package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harunnryd/tabi/internal/config"
	"github.com/harunnryd/tabi/internal/daemon"
	"github.com/harunnryd/tabi/internal/daemon/components"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Tabi daemon",
	Long:  `Starts the conversation store, chat orchestrator, HTTP API, chat adapters and retention pruner under component lifecycle orchestration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		forceClean, _ := cmd.Flags().GetBool("force-clean-locks")

		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		daemonMgr, err := buildDaemon(cfg)
		if err != nil {
			return err
		}
		daemonMgr.SetForceCleanup(forceClean)

		slog.Info("Tabi daemon starting up...", "port", cfg.Server.Port, "store", cfg.Store.Path)
		err = daemonMgr.Start(commandContext(cmd))
		if err != nil {
			// Cancellation via signal/context is a graceful shutdown case for CLI.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("Tabi daemon stopped gracefully")
				return nil
			}
			return fmt.Errorf("daemon failed: %w", err)
		}

		slog.Info("Tabi daemon stopped gracefully")
		return nil
	},
}

func buildDaemon(cfg *config.Config) (*daemon.Daemon, error) {
	daemonMgr, err := daemon.NewDaemon(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create daemon manager: %w", err)
	}

	storeComp := components.NewConversationStoreComponent(&cfg.Store)
	chatComp := components.NewChatComponent(cfg, storeComp)

	daemonMgr.AddComponent(storeComp)
	daemonMgr.AddComponent(chatComp)
	daemonMgr.AddComponent(components.NewRetentionComponent(&cfg.Retention, storeComp))
	daemonMgr.AddComponent(components.NewAdaptersComponent(cfg, chatComp))
	daemonMgr.AddComponent(components.NewHTTPServerComponent(daemonMgr, &cfg.Server, chatComp, storeComp))
	return daemonMgr, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("force-clean-locks", false, "Force cleanup of stale lock files (default: warn-only)")
}
