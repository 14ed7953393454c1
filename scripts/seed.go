// Seed script for loading curated answers into the doubt solver.
// Run with: go run ./scripts/seed.go [path/to/answers.json]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/Harshitk-cp/doubtsolver/internal/api"
	"github.com/Harshitk-cp/doubtsolver/internal/config"
	"github.com/Harshitk-cp/doubtsolver/internal/service"
	"go.uber.org/zap"
)

// curatedEntry is one verified question/answer pair in the seed file.
type curatedEntry struct {
	Query     string `json:"query"`
	Answer    string `json:"answer"`
	Context   string `json:"context"`
	CourseID  string `json:"course_id"`
	ContentID string `json:"content_id"`
}

func main() {
	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	path := "scripts/seed_data.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}
	var entries []curatedEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.Fatalf("Failed to parse %s: %v", path, err)
	}

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	stores, closeStores, err := api.OpenStores(ctx, logger)
	if err != nil {
		log.Fatalf("Failed to open knowledge backend: %v", err)
	}
	defer closeStores()
	fmt.Printf("Connected to %s backend\n", stores.Backend)

	app, err := api.NewApp(ctx, stores, logger)
	if err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	var admitted, skipped int
	for _, e := range entries {
		ok, confidence, err := app.Doubts.AdmitCurated(ctx, service.CuratedAnswer{
			Query:     e.Query,
			Answer:    e.Answer,
			Context:   e.Context,
			CourseID:  e.CourseID,
			ContentID: e.ContentID,
		})
		if err != nil {
			log.Printf("Warning: Failed to admit %q: %v", truncate(e.Query, 50), err)
			skipped++
			continue
		}
		if !ok {
			fmt.Printf("Cached only (confidence %d): %s\n", confidence, truncate(e.Query, 50))
			skipped++
			continue
		}
		fmt.Printf("Admitted: %s\n", truncate(e.Query, 50))
		admitted++
	}

	stats, err := app.Doubts.Stats(ctx)
	if err != nil {
		log.Printf("Warning: Failed to read knowledge stats: %v", err)
	}

	fmt.Println("\n=== Seed Complete ===")
	fmt.Printf("Admitted %d, skipped %d\n", admitted, skipped)
	if stats != nil {
		fmt.Printf("Knowledge graph: %d questions, %d answers, %d concepts, %d doubts\n",
			stats.Questions, stats.Answers, stats.Concepts, stats.Doubts)
	}
	fmt.Println("\nTo try a cached answer:")
	if len(entries) > 0 {
		body, _ := json.Marshal(map[string]string{"query": entries[0].Query})
		fmt.Printf("curl -X POST -d '%s' http://localhost:8080/v1/doubts/resolve\n", body)
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
