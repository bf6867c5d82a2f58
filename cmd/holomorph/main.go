// Package main is the entry point for the holomorph command line tool.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "holomorph",
	Short: "Remap images and video frames through complex functions",
	Long: `holomorph treats every pixel as a complex number z, evaluates f(z) and
samples the source image at the result. Expressions use z, real numbers,
+ - * / ^, parentheses and functions such as sin, exp, log and conj.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version + " (commit=" + commit + ", built=" + date + ")"
	rootCmd.SetVersionTemplate("holomorph version {{.Version}}\n")

	rootCmd.AddCommand(applyCmd, parseCmd, streamCmd, serveCmd, presetsCmd, functionsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
