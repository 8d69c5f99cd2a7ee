package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store size and model availability",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx, cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	health := a.service.Health(ctx)

	if statusJSON {
		data, err := json.MarshalIndent(health, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	out := cmd.OutOrStdout()
	statusColor := color.New(color.FgGreen)
	if health.Status != "healthy" {
		statusColor = color.New(color.FgRed)
	}
	statusColor.Fprintf(out, "Status:    %s\n", health.Status)
	fmt.Fprintf(out, "Store:     %s (%d chunks)\n", a.cfg.Store.Backend, health.DocumentCount)

	generator := color.New(color.FgGreen).Sprint("available")
	if !health.GeneratorAvailable {
		generator = color.New(color.FgRed).Sprint("unavailable")
	}
	fmt.Fprintf(out, "Generator: %s/%s %s\n", a.cfg.LLM.Provider, a.cfg.LLM.Model, generator)
	return nil
}
