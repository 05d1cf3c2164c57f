// Command stub-api serves an in-memory Healthcare Analytics API for local
// development of the portal.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/vitaldash/internal/domain/model"
	"github.com/okian/vitaldash/internal/stubapi"
	"github.com/okian/vitaldash/pkg/logger"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	var (
		addr      = flag.String("addr", ":8000", "Listen address")
		secret    = flag.String("secret", "", "HS256 token secret (default: random per process)")
		tokenTTL  = flag.Duration("token-ttl", 30*time.Minute, "Access token lifetime")
		demoEmail = flag.String("demo-email", "demo@example.com", "Seeded demo account email (empty to skip)")
		demoPass  = flag.String("demo-password", "demo", "Seeded demo account password")
		logFormat = flag.String("log-format", logger.FormatTint, "Log format: text, json, tint")
	)
	flag.Parse()

	if err := logger.InitWithFormat(*logFormat, os.Stdout); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Named("stub-api")

	opts := []stubapi.Option{
		stubapi.WithSecret(*secret),
		stubapi.WithTokenTTL(*tokenTTL),
		stubapi.WithLogger(log),
	}
	if *demoEmail != "" {
		opts = append(opts, stubapi.WithUser(model.Registration{
			Email:     *demoEmail,
			Password:  *demoPass,
			FirstName: "Demo",
			LastName:  "User",
		}))
	}
	stub, err := stubapi.New(opts...)
	if err != nil {
		os.Stderr.WriteString("failed to create stub API: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           stub.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		log.Info(ctx, "starting stub API", logger.String("addr", *addr), logger.String("demoEmail", *demoEmail))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "stub API failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "stub API shutdown failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "stub API stopped")
}
