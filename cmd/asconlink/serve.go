package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lightpq/asconlink/pkg/echo"
	"github.com/lightpq/asconlink/pkg/metrics"
)

func runServe(addr, profileName, cipher, obsAddr, logLevel, logFormat, tracing string) {
	collector, logger, err := setupObservability(logLevel, logFormat, tracing)
	if err != nil {
		fatal(err)
	}

	prof, err := selectProfile(profileName)
	if err != nil {
		fatal(err)
	}
	if err := applyCipher(prof, cipher); err != nil {
		fatal(err)
	}

	linkCfg := prof.LinkConfig()
	linkCfg.Observer = metrics.NewLinkObserver(metrics.LinkObserverConfig{
		Collector: collector,
		Logger:    logger,
	})

	server, err := echo.NewServer(echo.ServerConfig{
		Addr:          addr,
		Link:          linkCfg,
		Logger:        logger,
		MaxMessage:    prof.MaxMessage,
		SingleSession: prof.SingleSession,
	})
	if err != nil {
		fatal(err)
	}
	defer server.Close()

	fmt.Printf("asconlink echo server (%s profile, %s)\n", prof.Name, prof.KEMProfile)
	fmt.Printf("Listening on %s\n", server.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if obsAddr != "" {
		health := metrics.NewHealthCheck(collector, getVersion())
		obs := metrics.NewObservabilityServer(obsAddr, collector, health, "asconlink")
		go func() {
			if err := obs.Start(); err != nil {
				logger.Error("observability server error", metrics.Fields{"error": err.Error()})
			}
		}()
		defer func() { _ = obs.Shutdown(context.Background()) }()
		fmt.Printf("Observability server on %s (/metrics, /healthz)\n", obsAddr)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
		_ = server.Close()
	}()

	if err := server.Serve(ctx); err != nil && ctx.Err() == nil {
		fatal(err)
	}
}
