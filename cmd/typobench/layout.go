package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/typobench/internal/layout"
	"github.com/verte-zerg/typobench/internal/report"
)

var layoutLayer int

func newLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout [file]",
		Short: "Print the keys of a keyboard layout",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLayoutCmd,
	}
	cmd.Flags().IntVar(&layoutLayer, "layer", layout.LayerLowercase, "layer to print")
	return cmd
}

func runLayoutCmd(cmd *cobra.Command, args []string) error {
	l := layout.Default()
	if len(args) == 1 {
		loaded, err := layout.Load(args[0])
		if err != nil {
			return fmt.Errorf("failed to load layout: %w", err)
		}
		l = loaded
	}
	if err := report.RenderLayout(cmd.OutOrStdout(), l, layoutLayer); err != nil {
		return fmt.Errorf("failed to print layout: %w", err)
	}
	return nil
}
