package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rg/sedbot/internal/config"
)

func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sedbot",
		Short:         "Telegram bot that rewrites replied-to messages with s/search/replace/flags",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A missing .env is normal outside development.
			_ = godotenv.Load(".env")
		},
	}

	cmd.PersistentFlags().String("config", "", "Config file path (defaults to $CONFIG_PATH or "+config.DefaultPath+"; optional).")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newApplyCmd())
	cmd.AddCommand(newRunsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}
