// Command review runs one verification job from a JSON file and writes the
// issue register, without a server or database. Intended for template
// authoring and offline re-runs; it still needs the retrieval backends and
// oracle from the environment.
// Usage: go run ./cmd/review -job job.json -out issues.csv [-format csv|json|xlsx]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/checks"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/classifier"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/config"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/embed"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/export"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/index"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/index/opensearch"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/index/qdrant"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/oracle"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/reconciler"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/service"
)

// jobFile is the on-disk shape of one verification job.
type jobFile struct {
	TemplateID string                     `json:"template_id"`
	Toggles    domain.Toggles             `json:"toggles"`
	Elements   []domain.Element           `json:"elements"`
	Clauses    []domain.ClauseRequirement `json:"clauses"`
	Fields     domain.POFields            `json:"fields"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	jobPath := flag.String("job", "", "path to the job JSON file")
	outPath := flag.String("out", "issues.csv", "path for the issue register")
	format := flag.String("format", "csv", "issue register format: csv, json, or xlsx")
	flag.Parse()

	if *jobPath == "" {
		flag.Usage()
		return fmt.Errorf("missing -job")
	}

	data, err := os.ReadFile(*jobPath)
	if err != nil {
		return fmt.Errorf("reading job file: %w", err)
	}
	var job jobFile
	if err := json.Unmarshal(data, &job); err != nil {
		return fmt.Errorf("parsing job file: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	embedder := embed.NewClient(&cfg.Embedder)
	osClient := opensearch.NewClient(&cfg.Index)
	qdClient := qdrant.NewClient(&cfg.Index)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := qdClient.EnsureCollection(ctx, embedder.Dimension()); err != nil {
		log.Printf("review: qdrant collection unavailable, running degraded: %v", err)
	}
	hybrid := index.NewHybrid(osClient, qdClient, embedder)

	// Offline runs skip the relevance model; every candidate reaches the oracle.
	filter := classifier.NewFilter(nil, embedder, cfg.Classifier.ThresholdHigh, cfg.Classifier.ThresholdLow)
	judge := oracle.NewAdapter(oracle.NewClient(&cfg.Oracle), cfg.Oracle.MaxRetries)
	rec := reconciler.New(cfg.Oracle.ConfidenceThreshold)

	svc := service.NewReviewService(cfg, hybrid, filter, checks.NewDefaultRegistry(), judge, rec, nil, nil, nil)

	out, degraded, err := svc.RunSync(ctx, service.SubmitInput{
		TemplateID: job.TemplateID,
		Toggles:    job.Toggles,
		Elements:   job.Elements,
		Clauses:    job.Clauses,
		Fields:     job.Fields,
	})
	if err != nil {
		return fmt.Errorf("running review: %w", err)
	}

	f, err := os.Create(*outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer func() { _ = f.Close() }()

	switch *format {
	case "csv":
		err = export.WriteCSV(f, out.Verdicts)
	case "json":
		err = export.WriteJSON(f, out.Verdicts)
	case "xlsx":
		err = export.WriteXLSX(f, out.Verdicts)
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
	if err != nil {
		return fmt.Errorf("writing issue register: %w", err)
	}

	log.Printf("review: %d verdicts written to %s (degraded=%v)", len(out.Verdicts), *outPath, degraded)
	return nil
}
