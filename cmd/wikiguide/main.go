package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/small-frappuccino/wikiguide/pkg/app"
	"github.com/small-frappuccino/wikiguide/pkg/config"
	"github.com/small-frappuccino/wikiguide/pkg/log"
	"github.com/small-frappuccino/wikiguide/pkg/registry"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.ErrorLoggerRaw().Error("Fatal", "error", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           app.AppName,
		Short:         "Discord bot that answers channel messages with Wikipedia summaries",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(&cobra.Command{
		Use:   "bindings",
		Short: "List the persisted guild to channel bindings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listBindings(cmd.Context(), configPath, cmd.OutOrStdout())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", app.AppName, app.AppVersion())
		},
	})
	return root
}

func listBindings(ctx context.Context, configPath string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, err := app.OpenStore(cfg.Registry)
	if err != nil {
		return err
	}
	defer store.Close()

	reg := registry.New(store)
	reg.Load(ctx)
	bindings := reg.Bindings()
	if len(bindings) == 0 {
		fmt.Fprintln(out, "no channel bindings")
		return nil
	}
	for _, b := range bindings {
		fmt.Fprintf(out, "%s\t%s\n", b.GuildID, b.ChannelID)
	}
	return nil
}
