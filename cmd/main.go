package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/edusight-backend/internal/app"
	"github.com/yungbote/edusight-backend/internal/platform/shutdown"
)

const drainTimeout = 30 * time.Second

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	a.Start()
	<-ctx.Done()
	a.Log.Info("Shutting down...")

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	a.Close(drainCtx)
}
