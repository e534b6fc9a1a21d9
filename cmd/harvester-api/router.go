// Package main provides the API router setup.
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kostadindraganov/amazon-extractor/cmd/harvester-api/handlers"
	"github.com/kostadindraganov/amazon-extractor/cmd/harvester-api/middleware"
	"github.com/kostadindraganov/amazon-extractor/internal/config"
	"github.com/kostadindraganov/amazon-extractor/internal/harvest"
	"github.com/kostadindraganov/amazon-extractor/internal/observability"
)

// NewRouter creates the API router over one shared harvest session.
func NewRouter(logger *observability.Logger, cfg *config.Config, session *harvest.Session) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(chimiddleware.Timeout(cfg.Server.WriteTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"amazon-extractor"}`))
	})

	sheetHandler := handlers.NewSheetHandler(logger, session)
	extractionHandler := handlers.NewExtractionHandler(logger, session)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sheet", func(r chi.Router) {
			r.Post("/", sheetHandler.Load)
			r.Get("/", sheetHandler.State)
			r.Put("/link-column", sheetHandler.SetLinkColumn)
		})

		r.Get("/products", sheetHandler.Products)

		r.Route("/extractions", func(r chi.Router) {
			r.Post("/", extractionHandler.Start)
			r.Get("/", extractionHandler.Status)
			r.Delete("/", extractionHandler.Stop)
		})
	})

	return r
}
