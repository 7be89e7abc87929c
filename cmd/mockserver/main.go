package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"edulycee-client/internal/config"
	"edulycee-client/internal/pkg/logger"
	"edulycee-client/internal/server"
	"edulycee-client/internal/tracer"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer("edulycee-mock")
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer sysLogger.Sync()

	// 2. Initialize Server
	srv := server.New(server.Options{
		JwtSecret:    cfg.Mock.JwtSecret,
		SeedDemoUser: true,
	}, sysLogger)

	// 3. Shut down on interrupt
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down stub service...")
		if err := srv.Shutdown(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("Demo account: %s / %s", server.DemoEmail, server.DemoPassword)

	// 4. Run Server
	if err := srv.Run(cfg.Mock.Port); err != nil {
		log.Fatal(err)
	}
}
