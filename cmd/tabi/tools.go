package main

import (
	"encoding/json"
	"fmt"

	"github.com/harunnryd/tabi/internal/tooling"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the tool schemas offered to the model",
	RunE: func(cmd *cobra.Command, args []string) error {
		loadedCfg, err := loadConfigForCommand(cmd)
		if err != nil {
			return err
		}

		built, err := tooling.Build(loadedCfg)
		if err != nil {
			return fmt.Errorf("failed to build tools: %w", err)
		}
		defer built.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(built.Registry.GetDescriptors())
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}
