package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/holomorph/pkg/api"
	grpcapi "github.com/lemonberrylabs/holomorph/pkg/api/grpc"
	"github.com/lemonberrylabs/holomorph/pkg/preset"
	"github.com/lemonberrylabs/holomorph/pkg/store"
	"github.com/lemonberrylabs/holomorph/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, web UI and gRPC server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP server port (default 8787, env PORT)")
	serveCmd.Flags().Int("grpc-port", 0, "gRPC server port (default 8788, env GRPC_PORT)")
	serveCmd.Flags().String("host", "", "Bind address (default 0.0.0.0, env HOST)")
	serveCmd.Flags().String("presets", "", "Preset YAML file or directory to load at startup (env PRESETS)")
	serveCmd.Flags().Int("table-cache", 0, fmt.Sprintf("Lookup tables to keep cached (default %d, env TABLE_CACHE)", store.DefaultTableCapacity))
	serveCmd.Flags().Bool("quiet", false, "Disable HTTP request logging")
}

func runServe(cmd *cobra.Command, args []string) error {
	port := envOrDefault("PORT", "8787")
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		port = fmt.Sprintf("%d", v)
	}

	grpcPort := envOrDefault("GRPC_PORT", "8788")
	if v, _ := cmd.Flags().GetInt("grpc-port"); v != 0 {
		grpcPort = fmt.Sprintf("%d", v)
	}

	host := envOrDefault("HOST", "0.0.0.0")
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		host = v
	}

	presetsPath := os.Getenv("PRESETS")
	if v, _ := cmd.Flags().GetString("presets"); v != "" {
		presetsPath = v
	}

	tableCache := store.DefaultTableCapacity
	if v := os.Getenv("TABLE_CACHE"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &tableCache); err != nil {
			log.Printf("Warning: ignoring invalid TABLE_CACHE %q", v)
			tableCache = store.DefaultTableCapacity
		}
	}
	if v, _ := cmd.Flags().GetInt("table-cache"); v != 0 {
		tableCache = v
	}
	quiet, _ := cmd.Flags().GetBool("quiet")

	addr := fmt.Sprintf("%s:%s", host, port)
	grpcAddr := fmt.Sprintf("%s:%s", host, grpcPort)

	s := store.New(store.WithTableCapacity(tableCache))
	server := api.New(s, quiet)

	if presetsPath != "" {
		log.Printf("Loading presets from %s", presetsPath)
		presets, err := preset.LoadPath(presetsPath)
		if err != nil {
			return fmt.Errorf("loading presets: %w", err)
		}
		if err := server.LoadPresets(presets); err != nil {
			return fmt.Errorf("installing presets: %w", err)
		}
	}

	// Register the web UI (non-fatal if template parsing fails)
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Warning: web UI disabled due to template error: %v", r)
			}
		}()
		ui := web.New(s)
		ui.Register(server.App())
	}()

	// Start gRPC server
	grpcServer := grpcapi.New(s)
	go func() {
		log.Printf("gRPC server listening on %s", grpcAddr)
		if err := grpcServer.Serve(grpcAddr); err != nil {
			log.Fatalf("gRPC server error: %v", err)
		}
	}()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down holomorph...")
		grpcServer.GracefulStop()
		if err := server.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("Holomorph %s listening on %s (table cache=%d)", version, addr, tableCache)
	return server.Listen(addr)
}
