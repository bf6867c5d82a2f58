package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/holomorph/pkg/expr"
	"github.com/lemonberrylabs/holomorph/pkg/preset"
	"github.com/lemonberrylabs/holomorph/pkg/remap"
	"github.com/lemonberrylabs/holomorph/pkg/stream"
)

var streamCmd = &cobra.Command{
	Use:   "stream FUNCTION",
	Short: "Remap raw rgb24 frames from stdin to stdout",
	Long: `Read raw rgb24 frames from stdin, remap each through a lookup table built
for FUNCTION and write them to stdout.

With --control, every line written to the given file or named pipe is
parsed as a new function and takes effect from the next frame.`,
	Example: `  ffmpeg -i in.mp4 -f rawvideo -pix_fmt rgb24 -s 640x480 - |
    holomorph stream "z^2" --resolution sd |
    ffplay -f rawvideo -pixel_format rgb24 -video_size 640x480 -`,
	Args: cobra.ExactArgs(1),
	RunE: runStream,
}

func init() {
	streamCmd.Flags().String("resolution", "", fmt.Sprintf("Named resolution (default %s)", preset.DefaultResolution.Name))
	streamCmd.Flags().String("dimensions", "", "Frame dimensions as W,H")
	streamCmd.Flags().Int("workers", 0, "Worker goroutines (default GOMAXPROCS)")
	streamCmd.Flags().String("presets", "", "Preset YAML file or directory to resolve FUNCTION against")
	streamCmd.Flags().String("control", "", "File or named pipe to read replacement functions from")
	streamCmd.MarkFlagsMutuallyExclusive("resolution", "dimensions")
}

func runStream(cmd *cobra.Command, args []string) error {
	resolution, _ := cmd.Flags().GetString("resolution")
	dimensions, _ := cmd.Flags().GetString("dimensions")
	workers, _ := cmd.Flags().GetInt("workers")
	presetsPath, _ := cmd.Flags().GetString("presets")
	control, _ := cmd.Flags().GetString("control")

	width, height := preset.DefaultResolution.Width, preset.DefaultResolution.Height
	switch {
	case resolution != "":
		r, err := preset.LookupResolution(resolution)
		if err != nil {
			return err
		}
		width, height = r.Width, r.Height
	case dimensions != "":
		w, h, err := preset.ParseDimensions(dimensions)
		if err != nil {
			return fmt.Errorf("invalid --dimensions: %w", err)
		}
		width, height = w, h
	}

	node, err := resolveFunction(args[0], presetsPath)
	if err != nil {
		return err
	}

	opts := workerOptions(workers)
	start := time.Now()
	table, err := remap.BuildLookup(node, width, height, opts...)
	if err != nil {
		return err
	}
	log.Printf("Built %dx%d lookup table for %s in %s", width, height, expr.Format(node), time.Since(start).Round(time.Millisecond))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	proc := stream.NewProcessor(table, opts...)
	if control != "" {
		go watchControl(ctx, control, proc, opts)
	}

	in := bufio.NewReaderSize(os.Stdin, proc.FrameSize())
	frames, err := proc.Run(ctx, in, os.Stdout)
	log.Printf("Processed %d frames", frames)
	if err == context.Canceled {
		return nil
	}
	return err
}

// watchControl reads functions line by line from path and swaps a freshly
// built table into proc for each one. Bad lines are logged and skipped.
func watchControl(ctx context.Context, path string, proc *stream.Processor, opts []remap.Option) {
	for ctx.Err() == nil {
		f, err := os.Open(path)
		if err != nil {
			log.Printf("Warning: control file disabled: %v", err)
			return
		}
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			node, err := expr.Parse(line)
			if err != nil {
				log.Printf("Warning: ignoring %q: %v", line, err)
				continue
			}
			cur := proc.Table()
			t, err := remap.BuildLookup(node, cur.Width, cur.Height, opts...)
			if err != nil {
				log.Printf("Warning: ignoring %q: %v", line, err)
				continue
			}
			if err := proc.Swap(t); err != nil {
				log.Printf("Warning: %v", err)
				continue
			}
			log.Printf("Switched to %s", expr.Format(node))
		}
		f.Close()
		// A named pipe reaches EOF when its writer closes; reopen and wait
		// for the next one. Regular files are read once.
		if fi, err := os.Stat(path); err != nil || fi.Mode()&os.ModeNamedPipe == 0 {
			return
		}
	}
}
