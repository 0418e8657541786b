package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/staticmd/pkg/configs"
	"github.com/yeisme/staticmd/pkg/internal/model"
	"github.com/yeisme/staticmd/pkg/internal/storage/db"
)

// dbMigrateCmd 挂在 db 子命令下.
var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "create or update the photos, links, galleries and upload_tokens tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := db.New(cmd.Context(), configs.GetConfig().DB)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.Migrate(cmd.Context(), model.All()...); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "migration completed")

		return nil
	},
}
