package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/korengpro/internal"
	"codeberg.org/snonux/korengpro/internal/app"
	"codeberg.org/snonux/korengpro/internal/audio"
	"codeberg.org/snonux/korengpro/internal/cli"
)

func main() {
	flags := cli.NewFlags()

	rootCmd := cli.CreateRootCommand(flags)
	cli.AddServeFlags(rootCmd, flags)

	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	serveCmd := cli.CreateServeCommand(flags)
	playCmd := cli.CreatePlayCommand(flags)
	sectionsCmd := cli.CreateSectionsCommand()
	sayCmd := cli.CreateSayCommand(flags)
	importCmd := cli.CreateImportCommand(flags)
	modelsCmd := cli.CreateModelsCommand()
	exportCmd := cli.CreateExportCommand(flags)

	serve := func(cmd *cobra.Command, _ []string) error {
		cli.BindServeFlags(cmd)
		return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
			return a.Serve(ctx)
		})
	}
	rootCmd.RunE = serve
	serveCmd.RunE = serve

	playCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
			return a.Play(ctx, args[0], app.PlayOptions{Repeat: flags.Repeat, From: flags.From, Silent: flags.Silent}, cmd.OutOrStdout())
		})
	}
	sectionsCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, flags, func(_ context.Context, a *app.App) error {
			return a.Sections(cmd.OutOrStdout())
		})
	}
	sayCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
			return a.Say(ctx, args[0], audio.Language(flags.Lang), flags.Output)
		})
	}
	importCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
			result, err := a.Import(ctx, args[0], flags.Section, flags.Translate)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Appended %d rows to %s starting at row %d\n",
				result.Rows, flags.Section, result.FirstRow)
			return nil
		})
	}

	modelsCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
			return a.Models(ctx, cmd.OutOrStdout())
		})
	}

	exportCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
			deck, err := a.Export(ctx, args[0], app.ExportOptions{Output: flags.ExportOutput, NoAudio: flags.NoAudio})
			if err != nil {
				return err
			}
			cards, clips := deck.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d cards with %d clips to %s\n", cards, clips, flags.ExportOutput)
			return nil
		})
	}

	rootCmd.AddCommand(serveCmd, playCmd, sectionsCmd, sayCmd, importCmd, modelsCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// withApp resolves the configuration, builds the App and runs fn with a
// context cancelled on SIGINT or SIGTERM.
func withApp(cmd *cobra.Command, flags *cli.Flags, fn func(context.Context, *app.App) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := internal.NewLogger(os.Stderr, viper.GetString("log_level"))
	a, err := app.New(ctx, cli.ResolveConfig(flags), logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}
