package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/richinex/prompter/cli"
	"github.com/richinex/prompter/config"
	"github.com/richinex/prompter/model"
	"github.com/richinex/prompter/storage"
)

func openApp(settings config.Settings) (*cli.App, error) {
	app, err := cli.NewApp(settings, os.Stdout, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return app, nil
}

func runInteractive(ctx context.Context, settings config.Settings) error {
	app, err := openApp(settings)
	if err != nil {
		return err
	}
	defer app.Close()

	app.Output.Print(cli.Banner(settings, app.Output.PrinterEnabled()))
	app.Loop.LoadHistory(ctx)

	in := cli.NewStdinReader()
	defer in.Close()

	return app.Loop.Run(ctx, in)
}

func runOnce(ctx context.Context, settings config.Settings, prompt string) error {
	app, err := openApp(settings)
	if err != nil {
		return err
	}
	defer app.Close()

	if settings.Chat.Mode == model.ModeChat {
		app.Loop.LoadHistory(ctx)
	}
	logger.Debug("one-shot prompt", zap.Int("searches", len(searches)))
	return app.Loop.RunOnce(ctx, prompt, searches)
}

func modelsCmd() *cobra.Command {
	var choose bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models available on the server",
		Long: `List the models the server can load and show the one currently loaded.
With --select, pick a model by number and load it with the configured preset.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := resolveSettings(cmd)
			if err != nil {
				return err
			}
			app, err := openApp(settings)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.Admin == nil {
				return fmt.Errorf("provider %q does not support model management", settings.API.Provider)
			}
			return cli.Models(cmd.Context(), app.Admin, os.Stdin, os.Stdout, choose, settings.API.Preset)
		},
	}
	cmd.Flags().BoolVarP(&choose, "select", "s", false, "Choose a model and load it")
	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or clear the saved conversation",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the saved conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := historyApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			history, err := app.Store.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}
			if len(history) == 0 {
				fmt.Println("No saved conversation.")
				return nil
			}
			for i, turn := range history {
				fmt.Printf("[%d] You: %s\n\n%s\n\n", i+1, turn.Question, turn.Answer)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete the saved conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := historyApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Store.Save(cmd.Context(), model.History{}); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			fmt.Printf("Cleared %s\n", app.Settings.History.Path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "sessions",
		Short: "List the sessions stored in a SQLite history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := historyApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			db, ok := app.Store.(*storage.SqliteStore)
			if !ok {
				return fmt.Errorf("%s is not a SQLite history", app.Settings.History.Path)
			}
			sessions, err := db.ListSessions(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			for _, name := range sessions {
				marker := " "
				if name == db.Session() {
					marker = "*"
				}
				fmt.Printf("%s %s\n", marker, name)
			}
			return nil
		},
	})

	return cmd
}

func historyApp(cmd *cobra.Command) (*cli.App, error) {
	settings, err := resolveSettings(cmd)
	if err != nil {
		return nil, err
	}
	if !settings.HistoryEnabled() {
		return nil, errors.New("history is disabled")
	}
	return openApp(settings)
}
