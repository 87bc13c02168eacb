package main

import (
	"github.com/rickchristie/director/internal/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "director",
		Short: "Model-driven dynamic difficulty for game AI",
		Long: "director asks a language model to tune enemy difficulty from periodic world " +
			"snapshots and pushes the result to subscribed gameplay agents.\n\n" +
			"Settings come from the optional YAML file, then " + config.EnvPrefix + "* environment variables.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")

	cmd.AddCommand(
		newRunCmd(opts),
		newConsoleCmd(opts),
	)
	return cmd
}

func (o *rootOptions) load() (config.Config, error) {
	return config.Load(o.configPath)
}
