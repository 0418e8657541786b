package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/staticmd/pkg/configs"
	"github.com/yeisme/staticmd/pkg/internal/jobs"
	"github.com/yeisme/staticmd/pkg/internal/service"
	"github.com/yeisme/staticmd/pkg/internal/storage"
)

var (
	jobsCmd = &cobra.Command{
		Use:   "jobs",
		Short: "maintenance job commands",
	}

	jobsListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list job names",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range []string{jobs.JobTokensReap, jobs.JobTagsBackfill} {
				fmt.Fprintln(cmd.OutOrStdout(), " - "+name)
			}
		},
	}

	jobsRunCmd = &cobra.Command{
		Use:   "run <name>",
		Short: "run a job once against the configured storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configs.GetConfig()

			mgr, err := storage.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer mgr.Close()

			if err := jobs.NewRunner(service.FromManager(mgr, cfg), cfg).Run(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "job %s completed\n", args[0])

			return nil
		},
	}
)

// registerJobsCommands 注册维护任务命令.
func registerJobsCommands() {
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsRunCmd)

	rootCmd.AddCommand(jobsCmd)
}
