package main

import (
	"context"

	"github.com/harunnryd/tabi/internal/config"
	"github.com/harunnryd/tabi/internal/conversation"

	"github.com/spf13/cobra"
)

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func loadConfigForCommand(cmd *cobra.Command) (*config.Config, error) {
	if cfg != nil {
		return cfg, nil
	}
	return config.Load(cmd)
}

// withStore opens the local conversation store for the duration of fn. It
// fails while a running daemon holds the store lock.
func withStore(cmd *cobra.Command, fn func(*conversation.Store) error) error {
	loadedCfg, err := loadConfigForCommand(cmd)
	if err != nil {
		return err
	}

	store, err := conversation.Open(loadedCfg.Store.Path, conversation.RuntimeConfig{
		LockTimeout:  config.MustDuration(loadedCfg.Store.LockTimeout, config.DefaultStoreLockTimeout),
		LockRetry:    config.MustDuration(loadedCfg.Store.LockRetry, config.DefaultStoreLockRetry),
		LockMaxRetry: loadedCfg.Store.LockMaxRetry,
		InboxSize:    loadedCfg.Store.InboxSize,
	})
	if err != nil {
		return err
	}
	store.Start()
	defer store.Stop()

	return fn(store)
}
