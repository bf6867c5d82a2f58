package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/holomorph/pkg/expr"
	"github.com/lemonberrylabs/holomorph/pkg/imageio"
	"github.com/lemonberrylabs/holomorph/pkg/preset"
	"github.com/lemonberrylabs/holomorph/pkg/remap"
	"github.com/lemonberrylabs/holomorph/pkg/types"
)

var applyCmd = &cobra.Command{
	Use:   "apply FUNCTION",
	Short: "Apply a complex function to an image file",
	Long: `Apply FUNCTION to an image and write the result as a new file.

Without --output the result is written to --out-dir as
<name>_<function>_<timestamp>.jpeg. FUNCTION may also name a preset when
--presets is given.`,
	Example: `  holomorph apply "z^2" --image cat.png
  holomorph apply "1/z" --image cat.png --output inverted.png --lookup`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().String("image", "", "Input image (png, jpeg, gif or webp)")
	applyCmd.Flags().String("out-dir", "images/output", "Directory for generated output files")
	applyCmd.Flags().String("output", "", "Write the result to this path instead (format from extension)")
	applyCmd.Flags().Bool("lookup", false, "Precompute a lookup table and sample nearest pixels")
	applyCmd.Flags().String("size", "", "Resize the input to WxH before remapping")
	applyCmd.Flags().Int("quality", 90, "JPEG quality (1-100)")
	applyCmd.Flags().Int("workers", 0, "Worker goroutines (default GOMAXPROCS)")
	applyCmd.Flags().String("presets", "", "Preset YAML file or directory to resolve FUNCTION against")
	_ = applyCmd.MarkFlagRequired("image")
}

func runApply(cmd *cobra.Command, args []string) error {
	imagePath, _ := cmd.Flags().GetString("image")
	outDir, _ := cmd.Flags().GetString("out-dir")
	output, _ := cmd.Flags().GetString("output")
	useLookup, _ := cmd.Flags().GetBool("lookup")
	size, _ := cmd.Flags().GetString("size")
	quality, _ := cmd.Flags().GetInt("quality")
	workers, _ := cmd.Flags().GetInt("workers")
	presetsPath, _ := cmd.Flags().GetString("presets")

	node, err := resolveFunction(args[0], presetsPath)
	if err != nil {
		return err
	}

	img, format, err := imageio.DecodeFile(imagePath)
	if err != nil {
		return err
	}
	log.Printf("Loaded %s (%s, %dx%d)", imagePath, format, img.Width, img.Height)

	if size != "" {
		w, h, err := preset.ParseDimensions(size)
		if err != nil {
			return fmt.Errorf("invalid --size: %w", err)
		}
		if img, err = imageio.Resize(img, w, h); err != nil {
			return err
		}
	}

	start := time.Now()
	var out *types.Image
	opts := workerOptions(workers)
	if useLookup {
		table, err := remap.BuildLookup(node, img.Width, img.Height, opts...)
		if err != nil {
			return err
		}
		if n := table.FallbackCount(); n > 0 {
			log.Printf("%d pixels hit a singularity", n)
		}
		if out, err = table.Apply(img, opts...); err != nil {
			return err
		}
	} else {
		out = remap.Transform(img, node, opts...)
	}
	log.Printf("Applied %s in %s", expr.Format(node), time.Since(start).Round(time.Millisecond))

	if output == "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		output = filepath.Join(outDir, imageio.OutputName(imagePath, args[0], time.Now()))
	}
	if err := imageio.EncodeFile(output, out, quality); err != nil {
		return err
	}
	log.Printf("Wrote %s", output)
	return nil
}

// resolveFunction returns the tree for a preset named fn when presetsPath is
// set and defines it, and otherwise parses fn as an expression.
func resolveFunction(fn, presetsPath string) (expr.Node, error) {
	if presetsPath != "" {
		presets, err := preset.LoadPath(presetsPath)
		if err != nil {
			return nil, fmt.Errorf("loading presets: %w", err)
		}
		for _, p := range presets {
			if p.Name == fn {
				return p.Tree, nil
			}
		}
	}
	node, err := expr.Parse(fn)
	if err != nil {
		return nil, fmt.Errorf("invalid function %q: %w", fn, err)
	}
	return node, nil
}

// workerOptions leaves the GOMAXPROCS default in place unless n is set.
func workerOptions(n int) []remap.Option {
	if n <= 0 {
		return nil
	}
	return []remap.Option{remap.WithWorkers(n)}
}
