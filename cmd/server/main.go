package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"

	"github.com/smartpark/occupancy-service/internal/config"
)

func main() {
	// Look for a .env file in the working directory and its parents;
	// absence is fine in containers where the environment is injected.
	envPaths := []string{".env"}
	if workDir, err := os.Getwd(); err == nil {
		parentDir := filepath.Dir(workDir)
		envPaths = append(envPaths,
			filepath.Join(parentDir, ".env"),
			filepath.Join(filepath.Dir(parentDir), ".env"),
		)
	}

	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err == nil {
				fmt.Printf("Loaded environment from: %s\n", envPath)
				break
			}
		}
	}

	app := fx.New(
		fx.Provide(
			config.Load,
			newLogger,
			ProvideDBPool,
			ProvideRepository,
			ProvideStores,
			ProvideHub,
			ProvideBroadcaster,
			ProvideWSHandler,
			ProvideOccupancyService,
			ProvideTracker,
			ProvideMQConnection,
			ProvidePublisher,
			ProvideNotificationPublisher,
			ProvideDispatcher,
			ProvideClock,
			ProvideHandlers,
			ProvideRouter,
		),
		fx.Invoke(
			startHTTPServer,
			startSensorConsumer,
			startSchedulers,
		),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()
	if err := app.Start(startCtx); err != nil {
		panic(err)
	}

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Println("error stopping app:", err)
	}
}
