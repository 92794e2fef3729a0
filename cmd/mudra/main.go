package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/pipeline"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	fmt.Println("Mudra - Hand Gesture Semantic Event Engine")

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	dbPath := cfg.Store.Path
	if dbPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to get home directory: %v", err)
		}
		dbDir := filepath.Join(homeDir, ".mudra")
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
		dbPath = filepath.Join(dbDir, "mudra.db")
	}

	st, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	newPipeline := func() *pipeline.Pipeline {
		registry := gesture.DefaultRegistry()
		classifier, err := config.BuildClassifier(cfg.Classifier, registry)
		if err != nil {
			log.Fatalf("Failed to build classifier: %v", err)
		}
		p := pipeline.New(pipeline.Config{
			Registry:        registry,
			Classifier:      classifier,
			SmoothingWindow: cfg.Smoothing.Window,
			Cooldown:        cfg.Smoothing.Cooldown(),
		})
		if err := config.ApplyDefinitions(p, cfg.Definitions); err != nil {
			log.Fatalf("Failed to load definitions: %v", err)
		}
		return p
	}

	srv := server.New(server.Config{
		Pipeline:    newPipeline(),
		NewPipeline: newPipeline,
		Store:       st,
	})

	fmt.Printf("Starting server on %s\n", cfg.Server.Addr)
	if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
