package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"umpire-rules-rag/internal/app"
	"umpire-rules-rag/internal/config"
	"umpire-rules-rag/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	addr := flag.String("addr", "", "Listen address (overrides server.addr)")
	release := flag.Bool("release", false, "Run gin in release mode")
	flag.Parse()

	_ = godotenv.Load()

	if *release {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	log.Printf("Using %s embeddings, %s generation, %s index",
		cfg.Embedding.Provider, cfg.LLM.Provider, cfg.Index.Backend)

	srv := server.New(a.Service, a.Retriever)
	if err := srv.Run(ctx, cfg.Server.Addr); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
