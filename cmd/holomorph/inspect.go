package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/holomorph/pkg/expr"
	"github.com/lemonberrylabs/holomorph/pkg/preset"
)

var parseCmd = &cobra.Command{
	Use:   "parse FUNCTION",
	Short: "Parse a function and print its canonical form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		node, err := expr.Parse(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if tree, _ := cmd.Flags().GetBool("tree"); tree {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(expr.Describe(node))
		}
		fmt.Fprintf(out, "%s\t(%d nodes)\n", expr.Format(node), expr.NodeCount(node))
		return nil
	},
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "Validate and list presets from a YAML file or directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		if path == "" {
			return fmt.Errorf("--file or PRESETS is required")
		}
		presets, err := preset.LoadPath(path)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tKIND\tEXPRESSION\tDESCRIPTION")
		for _, p := range presets {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, p.Kind, expr.Format(p.Tree), p.Description)
		}
		return tw.Flush()
	},
}

var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "List built-in functions and named resolutions",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Functions:")
		for _, name := range expr.FuncNames() {
			fmt.Fprintf(out, "  %s(z)\n", name)
		}
		fmt.Fprintln(out, "\nResolutions:")
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, r := range preset.Resolutions() {
			fmt.Fprintf(tw, "  %s\t%dx%d\n", r.Name, r.Width, r.Height)
		}
		tw.Flush()
	},
}

func init() {
	parseCmd.Flags().Bool("tree", false, "Print the syntax tree as JSON")

	presetsCmd.Flags().String("file", envOrDefault("PRESETS", ""), "Preset YAML file or directory (env PRESETS)")
}
