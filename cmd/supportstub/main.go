// Command supportstub runs the in-memory dashboard backend stub for local
// development: canned /ai/chat answers and an in-memory ticket table with a
// periodic fake admin reply.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Granville-Christopher/granalysis-sub000/internal/backend/backendtest"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	addr := flag.String("addr", ":8090", "listen address")
	autoReply := flag.Duration("auto-reply", 0, "fake an admin reply on every ticket at this interval (0 = off)")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", *addr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stub := backendtest.New()
	stub.Answer = func(q string) string {
		return "stub answer: I looked at \"" + q + "\" and everything seems fine."
	}

	if *autoReply > 0 {
		go func() {
			ticker := time.NewTicker(*autoReply)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					for _, t := range stub.Tickets() {
						stub.AddAdminMessage(t.ID, "automated support follow-up")
					}
				}
			}
		}()
	}

	srv := &http.Server{Addr: *addr, Handler: stub.Router()}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", *addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
