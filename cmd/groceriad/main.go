// Command groceriad boots a single grocery-store simulation session and
// serves it over a network port: a websocket relays snapshots out and
// runtime commands in. On configuration parse failure it prints a
// diagnostic and exits non-zero; on a clean shutdown (SIGINT/SIGTERM, or
// the session finishing on its own) it exits 0, having already written the
// post-run analytics CSVs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"groceria/analytics"
	"groceria/gridworld"
	"groceria/mapfile"
	"groceria/server"
	"groceria/session"
)

const shutdownGrace = 5 * time.Second

func main() {
	host := flag.String("host", "", "host interface to bind")
	port := flag.String("port", "8080", "port to listen on")
	configPath := flag.String("config", "./config.yaml", "path to the session config YAML file")
	mapPath := flag.String("map", "", "path to a map-file; when unset, the reference store layout is used")
	symbolsPath := flag.String("symbols", "./symbols.yaml", "path to the map-file's symbol table (only used with -map)")
	analyticsDir := flag.String("analytics-dir", "./simulation_results", "directory to write post-run analytics CSVs into")
	withConsole := flag.Bool("console", false, "include a textual grid rendering in every emitted snapshot")
	flag.Parse()

	if err := run(*host, *port, *configPath, *mapPath, *symbolsPath, *analyticsDir, *withConsole); err != nil {
		fmt.Fprintln(os.Stderr, "groceriad:", err)
		os.Exit(1)
	}
}

func run(host, port, configPath, mapPath, symbolsPath, analyticsDir string, withConsole bool) error {
	cfg, err := session.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	grid, err := buildGrid(cfg.Rows, cfg.Cols, mapPath, symbolsPath)
	if err != nil {
		return fmt.Errorf("building store: %w", err)
	}

	ctrl := session.New(cfg, grid)
	addr := host + ":" + port
	srv := server.NewServer(addr, ctrl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := make(chan error, 1)
	go func() {
		runErr <- srv.Run(ctx, withConsole)
	}()

	go func() {
		<-runErr
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Println("groceriad: shutdown:", err)
		}
	}()

	if err := srv.Serve(); err != nil {
		return err
	}

	if err := analytics.WriteBundle(analyticsDir, ctrl.Analytics()); err != nil {
		log.Println("groceriad: analytics export failed:", err)
	}
	return nil
}

// buildGrid loads a map-file-described store when mapPath is set, or else
// falls back to the programmatic reference layout sized to rows/cols.
func buildGrid(rows, cols int, mapPath, symbolsPath string) (*gridworld.Grid, error) {
	if mapPath == "" {
		return gridworld.BuildReferenceStore(rows, cols), nil
	}
	table, err := mapfile.LoadSymbolTable(symbolsPath)
	if err != nil {
		return nil, err
	}
	return mapfile.LoadFromFile(mapPath, table)
}
