// Package main replays stored webhook deliveries through the pipeline
// against in-memory stores. Useful for validating policy configuration
// changes against real traffic without touching the ledger or the
// chain: confirmation is stubbed as finalized.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"solana-payment-gateway/internal/chain"
	"solana-payment-gateway/internal/domain"
	"solana-payment-gateway/internal/notify"
	"solana-payment-gateway/internal/pipeline"
	"solana-payment-gateway/internal/policy"
	"solana-payment-gateway/internal/solana"
	"solana-payment-gateway/internal/storage/memory"
	pgstore "solana-payment-gateway/internal/storage/postgres"
	"solana-payment-gateway/internal/webhook"
)

func main() {
	godotenv.Load()

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (delivery source)")
	inputFile := flag.String("input", "", "JSON file with stored deliveries (alternative to --postgres-dsn)")
	limit := flag.Int("limit", 500, "Maximum number of deliveries to replay")
	treasury := flag.String("treasury", os.Getenv("TREASURY_ADDRESS"), "Accepted payment destination address")
	minAmount := flag.Int64("min-amount", 0, "Minimum accepted amount in minor units (0 = default)")
	denylist := flag.String("denylist", os.Getenv("ADDRESS_DENYLIST"), "Comma-separated address denylist regexps")
	verbose := flag.Bool("v", false, "Log every delivery result")

	flag.Parse()

	logger := log.New(os.Stdout, "[replay] ", log.LstdFlags)

	deliveries, err := loadDeliveries(*postgresDSN, *inputFile, *limit)
	if err != nil {
		logger.Fatalf("Failed to load deliveries: %v", err)
	}
	if len(deliveries) == 0 {
		logger.Fatal("No deliveries to replay")
	}
	logger.Printf("Replaying %d deliveries", len(deliveries))

	payments := memory.NewPaymentStore()
	history := memory.NewTransferHistoryStore()

	engine, err := policy.NewEngine(policy.Config{
		TreasuryAddress:     *treasury,
		MinAmountMinorUnits: *minAmount,
		DenylistPatterns:    splitList(*denylist),
	}, payments, history, logger)
	if err != nil {
		logger.Fatalf("Failed to build policy engine: %v", err)
	}

	stores := pipeline.Stores{
		Payments:      payments,
		Attempts:      memory.NewAttemptStore(),
		Metadata:      memory.NewMetadataStore(),
		WebhookEvents: memory.NewWebhookEventStore(),
		AuditLog:      memory.NewAuditLogStore(),
		History:       history,
	}

	// Transactions already reached storage once, so finality is assumed.
	verifier := &chain.StaticVerifier{Result: chain.Confirmation{IsValid: true, Status: solana.CommitmentFinalized}}

	const replaySecret = "replay"
	processor := pipeline.NewProcessor(stores, verifier, engine, notify.NewLogNotifier(logger), replaySecret, logger)

	ctx := context.Background()
	var verified, failed, duplicate, rejected int
	for _, d := range deliveries {
		body := []byte(d.EventData)
		result := processor.Process(ctx, body, webhook.ComputeSignature(body, replaySecret))

		switch {
		case result.Duplicate:
			duplicate++
		case result.Processed && result.Success:
			verified++
		case result.Processed:
			failed++
		default:
			rejected++
		}

		if *verbose {
			logger.Printf("delivery %s: success=%v processed=%v duplicate=%v error=%q",
				d.ID, result.Success, result.Processed, result.Duplicate, result.Error)
		}
	}

	fmt.Printf("\nReplay summary\n")
	fmt.Printf("  deliveries: %d\n", len(deliveries))
	fmt.Printf("  verified:   %d\n", verified)
	fmt.Printf("  failed:     %d\n", failed)
	fmt.Printf("  duplicate:  %d\n", duplicate)
	fmt.Printf("  rejected:   %d\n", rejected)
}

// loadDeliveries reads stored deliveries from Postgres or a JSON file.
func loadDeliveries(postgresDSN, inputFile string, limit int) ([]*domain.WebhookEventLog, error) {
	switch {
	case inputFile != "":
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return nil, err
		}
		var deliveries []*domain.WebhookEventLog
		if err := json.Unmarshal(data, &deliveries); err != nil {
			return nil, fmt.Errorf("parse %s: %w", inputFile, err)
		}
		return deliveries, nil

	case postgresDSN != "":
		ctx := context.Background()
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, err
		}
		defer pool.Close()
		return pgstore.NewWebhookEventStore(pool).GetRecent(ctx, limit)

	default:
		return nil, fmt.Errorf("either --postgres-dsn or --input is required")
	}
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
