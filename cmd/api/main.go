package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"lexflow/auth"
	"lexflow/blog"
	"lexflow/config"
	"lexflow/consultation"
	"lexflow/db"
	"lexflow/lawyer"
	"lexflow/payment"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("bootstrap database pool: %v", err)
	}
	defer pool.Close()

	server := &Server{
		authService:         auth.NewService(auth.NewRepository(pool), cfg.JWTSecret),
		consultationService: consultation.NewService(consultation.NewRepository(pool), cfg.StoreTimeout),
		paymentService:      payment.NewService(payment.NewRepository(pool), cfg.StoreTimeout),
		lawyerService:       lawyer.NewService(lawyer.NewRepository(pool)),
		blogService:         blog.NewService(blog.NewRepository(pool)),
		baseURL:             cfg.BaseURL,
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.StoreTimeout + 5*time.Second,
	}

	log.Printf("listening on %s", cfg.HTTPAddr)
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
