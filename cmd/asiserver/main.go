// Package main provides the ASI scoring server: a standalone HTTP process
// serving POST /asi over a SQLite-backed archetype bigram store.
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

	"github.com/ramonehamilton/asi-engine/internal/api"
	"github.com/ramonehamilton/asi-engine/internal/asi/format"
	"github.com/ramonehamilton/asi-engine/internal/asi/hyper"
	"github.com/ramonehamilton/asi-engine/internal/asi/scoring"
	"github.com/ramonehamilton/asi-engine/internal/config"
	"github.com/ramonehamilton/asi-engine/internal/store"
	"github.com/ramonehamilton/asi-engine/internal/store/reload"
	"github.com/ramonehamilton/asi-engine/internal/store/sqlite"
)

var (
	configPath   = flag.String("config", "", "Path to TOML config file (default: built-in defaults)")
	port         = flag.Int("port", 0, "API server port (overrides config)")
	dbPath       = flag.String("db-path", "", "Bigram database path (overrides config)")
	loadFixtures = flag.String("load-fixtures", "", "Path to SQL fixtures file to load on startup")
	markerPath   = flag.String("reload-marker", "", "Path to a marker file; writes to it trigger a bigram store reload")
)

func main() {
	flag.Parse()

	fmt.Println("ASI Engine - Archetype Similarity Index Server")
	fmt.Println("===============================================")
	fmt.Println()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Store.DBPath = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	fmt.Printf("Database: %s\n", cfg.Store.DBPath)

	openStore := func() (store.BigramStore, error) {
		dbConfig := sqlite.DefaultConfig(cfg.Store.DBPath)
		dbConfig.AutoMigrate = cfg.Store.AutoMigrate
		st, err := sqlite.Open(dbConfig)
		if err != nil {
			return nil, fmt.Errorf("open bigram database: %w", err)
		}
		return st, nil
	}

	var bigramStore store.BigramStore
	var watcher *reload.Watcher

	if *markerPath != "" {
		watcher, err = reload.New(*markerPath, openStore)
		if err != nil {
			log.Fatalf("Failed to start bigram store watcher: %v", err)
		}
		bigramStore = watcher
		defer func() {
			if err := watcher.Close(); err != nil {
				log.Printf("Error closing bigram store watcher: %v", err)
			}
		}()
	} else {
		bigramStore, err = openStore()
		if err != nil {
			log.Fatalf("Failed to open bigram database: %v", err)
		}
	}

	if *loadFixtures != "" {
		fmt.Printf("Loading fixtures from: %s\n", *loadFixtures)
		if err := loadFixturesFromFile(cfg.Store.DBPath, *loadFixtures); err != nil {
			log.Fatalf("Failed to load fixtures: %v", err)
		}
		fmt.Println("Fixtures loaded successfully")
	}

	registry := format.NewRegistryWith(formatsOf(cfg.Store.Formats)...)
	engine := scoring.New(hyper.Default())

	readTimeout, err := cfg.ReadTimeoutDuration()
	if err != nil {
		log.Fatalf("Invalid read timeout: %v", err)
	}
	writeTimeout, err := cfg.WriteTimeoutDuration()
	if err != nil {
		log.Fatalf("Invalid write timeout: %v", err)
	}

	serverConfig := &api.Config{
		Port:            cfg.Server.Port,
		ReadTimeout:     readTimeout,
		WriteTimeout:    writeTimeout,
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
	}
	server := api.NewServer(serverConfig, bigramStore, engine, registry)
	server.Start()

	fmt.Println()
	fmt.Printf("ASI server running at http://localhost:%d\n", server.Port())
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println()
	fmt.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	fmt.Println("ASI server stopped.")
}

func formatsOf(names []string) []format.Format {
	out := make([]format.Format, len(names))
	for i, n := range names {
		out[i] = format.Format(n)
	}
	return out
}

// loadFixturesFromFile opens a direct connection to the bigram database and
// executes a SQL fixtures file against it, for seeding test archetype data.
func loadFixturesFromFile(dbPath, filePath string) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read fixtures file: %w", err)
	}

	dbConfig := sqlite.DefaultConfig(dbPath)
	dbConfig.AutoMigrate = true
	dbConfig.ReadOnly = false
	st, err := sqlite.Open(dbConfig)
	if err != nil {
		return fmt.Errorf("open database for fixtures: %w", err)
	}
	defer st.Close()

	if _, err := st.Conn().Exec(string(content)); err != nil {
		return fmt.Errorf("execute fixtures: %w", err)
	}
	return nil
}
