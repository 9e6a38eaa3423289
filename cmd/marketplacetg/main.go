package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplacetg/internal/config"
	apphttp "marketplacetg/internal/http"
	"marketplacetg/internal/http/handlers"
	"marketplacetg/internal/repos"
	"marketplacetg/internal/storage"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			defer f.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN, cfg.SeedDemo)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	blobs, err := storage.New(ctx, storage.Config{
		Backend:     cfg.BlobBackend,
		MediaDir:    cfg.MediaDir,
		PublicURL:   cfg.PublicMediaURL,
		S3Bucket:    cfg.S3Bucket,
		S3Region:    cfg.S3Region,
		S3Endpoint:  cfg.S3Endpoint,
		S3PublicURL: cfg.S3PublicURL,
	})
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("[storage] backend=%s", cfg.BlobBackend)

	app := apphttp.New(apphttp.Options{
		Deps:         handlers.NewDeps(db, cfg, blobs, nil),
		CookieSecure: cfg.CookieSecure,
		AccessLog:    true,
	})

	go func() {
		<-ctx.Done()
		log.Printf("[server] shutting down")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
