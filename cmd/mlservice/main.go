package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The model is loaded while wiring, so a load failure exits here before
	// the listener is opened.
	app, err := initializeApp(ctx)
	if err != nil {
		log.Fatalf("failed to start mlservice: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("mlservice stopped with error: %v", err)
	}
}
