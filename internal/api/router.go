/**
 * @description
 * This file sets up the HTTP router for the wallet-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies
 * middleware for logging, panic recovery, CORS, and authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Routes creates and returns the router for the wallet service.
func Routes(h *WalletHandlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/signup", h.SignupHandler)
		r.Post("/login", h.LoginHandler)

		// Group routes that require authentication.
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(jwtSecret))

			r.Post("/wallet/fund", h.FundWalletHandler)
			r.Post("/wallet/withdraw", h.WithdrawHandler)
			r.Post("/wallet/transfer", h.TransferHandler)
			r.Get("/wallet/balance/{accountNumber}", h.BalanceHandler)
			r.Get("/wallet/transactions/{userID}", h.TransactionHistoryHandler)
		})
	})

	return r
}
