// Package main provides the entry point for the conversions forwarder.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"capi-forwarder/internal/capi"
	"capi-forwarder/internal/config"
	"capi-forwarder/internal/handler"
	"capi-forwarder/internal/logger"
)

// Run is the testable entrypoint for the application.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Env)
	log.Info("Starting conversions forwarder", zap.String("pixel_id", cfg.PixelID))

	client, err := capi.New(cfg, log)
	if err != nil {
		log.Error("conversions client unavailable", zap.Error(err))
		return err
	}

	validate := validator.New()
	_ = validate.RegisterValidation("phonedigits", handler.PhoneDigitsValidator)

	h := handler.New(log, client, validate, cfg.DedupTTL)
	r := chi.NewRouter()
	r.Get("/healthz", h.Healthz)
	r.Route("/track", func(r chi.Router) {
		r.Post("/pageview", h.PageView)
		r.Post("/view-content", h.ViewContent)
		r.Post("/add-to-cart", h.AddToCart)
		r.Post("/initiate-checkout", h.InitiateCheckout)
		r.Post("/purchase", h.Purchase)
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down server")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := Run(ctx); err != nil {
		os.Exit(1)
	}
}
