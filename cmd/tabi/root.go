package main

import (
	"fmt"
	"os"

	"github.com/harunnryd/tabi/internal/config"
	"github.com/harunnryd/tabi/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:          "tabi",
	Short:        "Tabi travel assistant",
	Long:         `Tabi is a travel chat assistant that answers with flight, hotel, place, restaurant and weather widgets.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return err
		}

		logger.Setup(cfg.Server.LogLevel, cfg.Server.LogFormat)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tabi/config.yaml)")
	rootCmd.PersistentFlags().String("server.log_level", config.DefaultServerLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("server.log_format", config.DefaultServerLogFormat, "log format (text, json)")
	rootCmd.PersistentFlags().Int("server.port", config.DefaultServerPort, "server port")
}
