// Package main runs the payment gateway: an HTTP server receiving
// signed Solana transfer webhooks and driving them through the
// verification pipeline.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"solana-payment-gateway/internal/chain"
	"solana-payment-gateway/internal/notify"
	"solana-payment-gateway/internal/observability"
	"solana-payment-gateway/internal/pipeline"
	"solana-payment-gateway/internal/policy"
	"solana-payment-gateway/internal/solana"
	"solana-payment-gateway/internal/storage"
	chstore "solana-payment-gateway/internal/storage/clickhouse"
	"solana-payment-gateway/internal/storage/memory"
	"solana-payment-gateway/internal/storage/migrations"
	pgstore "solana-payment-gateway/internal/storage/postgres"
)

// maxBodyBytes bounds a webhook delivery. Transfer payloads are small;
// anything larger is abuse.
const maxBodyBytes = 1 << 20

// signatureHeader carries the HMAC of the delivery body.
const signatureHeader = "X-Webhook-Signature"

// Server holds the gateway components.
type Server struct {
	processor *pipeline.Processor
	hub       *notify.Hub
	events    storage.WebhookEventStore
	logger    *log.Logger

	// alwaysOK makes rejected deliveries answer 200 so the provider
	// stops redelivering payloads we will never accept.
	alwaysOK bool

	mu        sync.Mutex
	started   time.Time
	delivered int
}

func main() {
	// Load .env if present; system env vars win.
	godotenv.Load()

	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	webhookSecret := flag.String("webhook-secret", os.Getenv("WEBHOOK_SECRET"), "Shared secret for webhook HMAC verification")
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	treasury := flag.String("treasury", os.Getenv("TREASURY_ADDRESS"), "Accepted payment destination address")
	minAmount := flag.Int64("min-amount", 0, "Minimum accepted amount in minor units (0 = default)")
	denylist := flag.String("denylist", os.Getenv("ADDRESS_DENYLIST"), "Comma-separated address denylist regexps")
	vettedMints := flag.String("vetted-mints", os.Getenv("VETTED_MINTS"), "Comma-separated token mints cleared for payment")
	confirmTimeout := flag.Duration("confirm-timeout", chain.DefaultConfirmTimeout, "Chain confirmation timeout per delivery")
	alwaysOK := flag.Bool("always-ok", false, "Answer 200 for rejected deliveries instead of 4xx")

	flag.Parse()

	logger := log.New(os.Stdout, "[gateway] ", log.LstdFlags|log.Lshortfile)

	if *webhookSecret == "" {
		logger.Fatal("--webhook-secret is required")
	}
	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	engine, err := policy.NewEngine(policy.Config{
		TreasuryAddress:     *treasury,
		MinAmountMinorUnits: *minAmount,
		DenylistPatterns:    splitList(*denylist),
		VettedMints:         splitList(*vettedMints),
	}, stores.Payments, stores.History, logger)
	if err != nil {
		logger.Fatalf("Failed to build policy engine: %v", err)
	}

	rpc := solana.NewHTTPClient(*rpcEndpoint)
	verifier := chain.NewRPCVerifier(rpc).WithTimeout(*confirmTimeout)

	hub := notify.NewHub(logger)
	notifier := notify.NewMultiNotifier(notify.NewLogNotifier(logger), hub)

	server := &Server{
		processor: pipeline.NewProcessor(stores, verifier, engine, notifier, *webhookSecret, logger),
		hub:       hub,
		events:    stores.WebhookEvents,
		logger:    logger,
		alwaysOK:  *alwaysOK,
		started:   time.Now(),
	}

	httpServer := &http.Server{
		Addr:              *listenAddr,
		Handler:           server.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.DefaultMetrics.UptimeSeconds.Inc()
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)

		// A second signal skips the drain.
		go func() {
			<-sigCh
			logger.Println("Second signal, exiting immediately")
			os.Exit(1)
		}()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
		hub.Close()
		cancel()
	}()

	logger.Printf("Listening on %s", *listenAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// routes builds the HTTP mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhooks/solana", s.handleWebhook)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /ws", s.hub.ServeWS)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /deliveries", s.handleDeliveries)
	return mux
}

// handleWebhook drives one delivery through the pipeline and maps the
// result onto a response.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	result := s.processor.Process(r.Context(), body, r.Header.Get(signatureHeader))

	s.mu.Lock()
	s.delivered++
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(s.statusFor(result))
	json.NewEncoder(w).Encode(result)
}

// statusFor maps a pipeline result onto an HTTP status code.
//
// Processed decisions answer 200 whatever the verdict: a FAILED payment
// is a completed delivery, and a retry would only replay it. Storage
// outages answer 503 so the provider keeps redelivering; alwaysOK does
// not apply there, since redelivery is the recovery path. Other
// rejections answer 4xx unless alwaysOK suppresses redelivery.
func (s *Server) statusFor(result *pipeline.Result) int {
	if result.Success || result.Processed {
		return http.StatusOK
	}
	if result.StorageUnavailable() {
		return http.StatusServiceUnavailable
	}
	if s.alwaysOK {
		return http.StatusOK
	}
	if result.Error == pipeline.ErrInvalidSignature.Error() {
		return http.StatusUnauthorized
	}
	return http.StatusBadRequest
}

// handleStatus returns gateway status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":     "running",
		"uptime":     time.Since(s.started).String(),
		"deliveries": s.delivered,
	})
}

// handleDeliveries returns the most recent raw delivery records.
func (s *Server) handleDeliveries(w http.ResponseWriter, r *http.Request) {
	recent, err := s.events.GetRecent(r.Context(), 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(recent)
}

// createStores wires the persistence layer and applies migrations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (pipeline.Stores, func(), error) {
	if useMemory {
		stores := pipeline.Stores{
			Payments:      memory.NewPaymentStore(),
			Attempts:      memory.NewAttemptStore(),
			Metadata:      memory.NewMetadataStore(),
			WebhookEvents: memory.NewWebhookEventStore(),
			AuditLog:      memory.NewAuditLogStore(),
			History:       memory.NewTransferHistoryStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return pipeline.Stores{}, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return pipeline.Stores{}, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	stores := pipeline.Stores{
		Payments:      pgstore.NewPaymentStore(pool),
		Attempts:      pgstore.NewAttemptStore(pool),
		Metadata:      pgstore.NewMetadataStore(pool),
		WebhookEvents: pgstore.NewWebhookEventStore(pool),
	}

	// ClickHouse carries the audit trail and velocity counters. It is
	// optional: without it those writes are skipped and the velocity
	// rules see no history.
	if clickhouseDSN == "" {
		return stores, pool.Close, nil
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return pipeline.Stores{}, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}
	stores.AuditLog = chstore.NewAuditLogStore(chConn)
	stores.History = chstore.NewTransferHistoryStore(chConn)

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// envOr returns the env var value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitList splits a comma-separated flag value.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
