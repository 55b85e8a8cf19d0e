package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"led-service/internal/core"
	"led-service/internal/hardware"
	"led-service/internal/led"
	"led-service/internal/logger"
	"led-service/internal/messaging"
)

func main() {
	var serviceLogLevel int
	var redisHost string
	var redisPort int
	var tickMs int
	flag.IntVar(&serviceLogLevel, "log", 3, "Service log level (0=NONE, 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG)")
	flag.StringVar(&redisHost, "redis-host", "127.0.0.1", "Redis server host")
	flag.IntVar(&redisPort, "redis-port", 6379, "Redis server port")
	flag.IntVar(&tickMs, "tick-ms", 100, "LED handler tick period in milliseconds")

	flag.Parse()

	// Create standard logger with appropriate format
	var stdLogger *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		// Running under systemd, use minimal format
		stdLogger = log.New(os.Stdout, "", 0)
	} else {
		// Running interactively, use timestamps
		stdLogger = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
	}

	// Create leveled logger
	l := logger.NewLogger(stdLogger, logger.LogLevel(serviceLogLevel))

	l.Infof("Starting LED service...")

	if tickMs <= 0 {
		l.Fatalf("Invalid tick period: %dms", tickMs)
	}
	tickPeriod := time.Duration(tickMs) * time.Millisecond

	table := hardware.LedTable
	drv := hardware.NewLinuxDriver(table, l.WithTag("hardware"))
	ctrl, err := led.NewController(table, tickPeriod.Seconds(), drv, l.WithTag("led"))
	if err != nil {
		l.Fatalf("Failed to create LED controller: %v", err)
	}

	redis := messaging.NewRedisClient(redisHost, redisPort, l.WithTag("redis"))
	system := core.NewLedSystem(ctrl, table, redis, tickPeriod, l.WithTag("core"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := system.Start(ctx); err != nil {
		l.Fatalf("Failed to start system: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	l.Infof("Received signal %v, shutting down...", sig)
	system.Shutdown()
	l.Infof("Shutdown complete")
}
