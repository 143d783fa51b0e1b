package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zapstore/releastr/internal/domain/entities"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List apps configured in the app file",
	RunE:  runList,
}

var listPlatform string

func init() {
	listCmd.Flags().StringVar(&listPlatform, "platform", "", "Filter by platform (e.g., android)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	logger, err := newLogger(s, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx := context.Background()
	repo := appRepository(s, logger)

	var apps []*entities.AppConfig
	if listPlatform != "" {
		apps, err = repo.ListAppsByPlatform(ctx, listPlatform)
	} else {
		apps, err = repo.ListApps(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to list apps: %w", err)
	}

	out := cmd.OutOrStdout()
	if listPlatform != "" {
		fmt.Fprintf(out, "Apps for platform %s (%d total):\n\n", listPlatform, len(apps))
	} else {
		fmt.Fprintf(out, "Configured apps (%d total):\n\n", len(apps))
	}
	for _, app := range apps {
		source := app.Repository
		if source == "" {
			source = "(local package only)"
		}
		fmt.Fprintf(out, "  %-20s %-8s %s\n", app.Alias, app.Platform, source)
	}
	return nil
}
