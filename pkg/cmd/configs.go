package cmd

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/staticmd/pkg/configs"
)

var showSecrets bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "inspect the effective configuration",
}

func init() {
	dump := &cobra.Command{
		Use:   "debug",
		Short: "print the effective config as JSON with secrets masked, --debug also dumps viper state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				configs.GetViper().Debug()
			}

			c := *configs.GetConfig()
			if !showSecrets {
				c = c.Redacted()
			}

			b, err := sonic.ConfigStd.MarshalIndent(c, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(b))

			return nil
		},
	}
	dump.Flags().BoolVar(&showSecrets, "show-secrets", false, "print passwords and tokens in clear text")

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "print the config file in use",
			Run: func(cmd *cobra.Command, args []string) {
				if f := configs.GetViper().ConfigFileUsed(); f != "" {
					fmt.Fprintln(cmd.OutOrStdout(), f)
					return
				}

				fmt.Fprintln(cmd.OutOrStdout(), "no config file, defaults and "+configs.EnvPrefix+"_* env only")
			},
		},
		dump,
		&cobra.Command{
			Use:   "validate",
			Short: "check the upload and server sections",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := configs.GetConfig().Validate(); err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), "config ok")

				return nil
			},
		},
	)
}

// registerConfigsCommands 注册 config 子命令.
func registerConfigsCommands() {
	rootCmd.AddCommand(configCmd)
}
