package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"umpire-rules-rag/internal/app"
	"umpire-rules-rag/internal/config"
	"umpire-rules-rag/internal/database"

	"github.com/hack-pad/hackpadfs"
	hackos "github.com/hack-pad/hackpadfs/os"
	"github.com/joho/godotenv"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	dbPath := flag.String("db", "", "Interaction log database (overrides log.db_path)")
	outDir := flag.String("out", "", "Backup directory (overrides log.backup_dir)")
	interval := flag.Duration("interval", 0, "Repeat the export on this interval until interrupted (0 runs once)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dbPath != "" {
		cfg.Log.DBPath = *dbPath
	}
	if *outDir != "" {
		cfg.Log.BackupDir = *outDir
	}

	interactions, err := app.OpenLog(cfg.Log.DBPath)
	if err != nil {
		log.Fatalf("Failed to open interaction log: %v", err)
	}
	defer interactions.Close()

	fsys := hackos.NewFS()
	abs, err := filepath.Abs(cfg.Log.BackupDir)
	if err != nil {
		log.Fatalf("Invalid backup directory: %v", err)
	}
	dir, err := fsys.FromOSPath(abs)
	if err != nil {
		log.Fatalf("Invalid backup directory: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := backup(ctx, interactions, fsys, dir); err != nil {
		log.Fatalf("Backup failed: %v", err)
	}
	if *interval <= 0 {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	log.Printf("Exporting every %v", *interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("Stopping export")
			return
		case <-ticker.C:
			if err := backup(ctx, interactions, fsys, dir); err != nil {
				log.Printf("Backup failed: %v", err)
			}
		}
	}
}

func backup(ctx context.Context, interactions *database.InteractionLog, fsys hackpadfs.FS, dir string) error {
	path, n, err := interactions.ExportFile(ctx, fsys, dir, time.Now())
	if err != nil {
		return err
	}
	log.Printf("Exported %d rows to %s", n, path)
	return nil
}
