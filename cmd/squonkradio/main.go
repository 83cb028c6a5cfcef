package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/m3rciful/squonkradio/internal/app"
	"github.com/m3rciful/squonkradio/internal/config"
)

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = config.DefaultPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, path); err != nil {
		log.Fatal(err)
	}
}
