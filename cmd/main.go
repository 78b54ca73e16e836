package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/victornm/scholarway/internal/config"
	"github.com/victornm/scholarway/internal/server"
)

// defaultConfigPath is used when CONFIG_PATH is not set.
const defaultConfigPath = "configs/local.yaml"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("scholarway: load .env failed: %v", err)
	}

	p, c, err := loadConfig()
	if err != nil {
		log.Fatalf("scholarway: load config failed: %v", err)
	}

	slog.Info("scholarway: starting",
		"config", p,
		"storage", c.Storage.Driver,
		"http_port", c.HTTP.Port,
		"grpc_port", c.GRPC.Port,
	)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGTERM, os.Interrupt)

	s, err := server.Init(c)
	if err != nil {
		log.Fatalf("scholarway: init server failed: %v", err)
	}

	go s.Start()

	sig := <-shutdown
	slog.Info("scholarway: shutting down", "signal", sig.String())
	s.Shutdown()
}

func loadConfig() (string, server.Config, error) {
	c := server.DefaultConfig()

	p := os.Getenv("CONFIG_PATH")
	if p == "" {
		if _, err := os.Stat(defaultConfigPath); err != nil {
			return "", c, fmt.Errorf("CONFIG_PATH not set and %s not found; point CONFIG_PATH at a scholarway config file", defaultConfigPath)
		}
		p = defaultConfigPath
	}

	if err := config.Load(p, &c); err != nil {
		return p, c, fmt.Errorf("load %s: %w", p, err)
	}

	return p, c, nil
}
