package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/yeisme/staticmd/pkg/configs"
	"github.com/yeisme/staticmd/pkg/internal/storage/db"
	"github.com/yeisme/staticmd/pkg/internal/storage/kv"
	"github.com/yeisme/staticmd/pkg/internal/storage/mq"
)

// backend 一类可插拔存储后端，list 返回编译进二进制的实现.
type backend struct {
	name    string
	aliases []string
	short   string
	list    func() []string
	current func(c *configs.AppConfig) string
	extra   []*cobra.Command
}

func typeNames[T ~string](types []T) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}

	slices.Sort(out)

	return out
}

var backends = []backend{
	{
		name:    "db",
		short:   "Document store backends",
		list:    func() []string { return typeNames(db.GetRegisteredDBTypes()) },
		current: func(c *configs.AppConfig) string { return string(c.DB.Type) },
		extra:   []*cobra.Command{dbMigrateCmd},
	},
	{
		name:    "kv",
		aliases: []string{"keyvalue"},
		short:   "Link cache backends",
		list:    func() []string { return typeNames(kv.GetRegisteredKVTypes()) },
		current: func(c *configs.AppConfig) string { return string(c.KV.Type) },
	},
	{
		name:    "mq",
		aliases: []string{"messagequeue"},
		short:   "Event bus backends",
		list:    func() []string { return typeNames(mq.GetRegisteredMQTypes()) },
		current: func(c *configs.AppConfig) string { return string(c.MQ.Type) },
	},
}

func (b backend) command() *cobra.Command {
	parent := &cobra.Command{
		Use:     b.name,
		Short:   b.short,
		Aliases: b.aliases,
	}

	parent.AddCommand(&cobra.Command{
		Use:     "ls",
		Short:   "list registered " + b.name + " types, * marks the configured one",
		Aliases: []string{"list", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			current := b.current(configs.GetConfig())
			for _, t := range b.list() {
				mark := " "
				if t == current {
					mark = "*"
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", mark, t)
			}
		},
	})

	parent.AddCommand(b.extra...)

	return parent
}

// registerBackendCommands 注册 db、kv、mq 子命令.
func registerBackendCommands() {
	for _, b := range backends {
		rootCmd.AddCommand(b.command())
	}
}
