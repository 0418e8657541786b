// Package cmd 命令行入口：serve 启动服务，其余子命令用于运维排查.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeisme/staticmd/pkg/configs"
)

var (
	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:           configs.AppName,
		Short:         "Content-addressed image host with short links and galleries",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd == serveCmd || !cmd.HasParent() {
				return nil
			}

			return configs.InitConfig(configPath)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd.RunE(cmd, args)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml/json/toml/env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose output")

	registerServeCommand()
	registerConfigsCommands()
	registerBackendCommands()
	registerJobsCommands()
	registerVersionCommand()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
