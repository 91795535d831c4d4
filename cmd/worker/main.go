package main

import (
	"context"
	"log"
	"os"

	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/app/bootstrap"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/default.yaml"
	}
	ctx := context.Background()
	runtime, err := bootstrap.NewRuntime(ctx, configPath)
	if err != nil {
		log.Fatalf("bootstrap settlement worker: %v", err)
	}
	if err := runtime.RunWorker(ctx); err != nil {
		log.Fatalf("run settlement worker: %v", err)
	}
}
