package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"time"

	"github.com/slack-go/slack"
)

func main() {
	cfg := LoadConfig()
	appliedHTTPTimeout := ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf(
		"Config loaded. Engine=%s AuditTimeout=%ds Concurrency=%d Provider=%s Categories=%d ExternalHTTPTimeout=%s",
		cfg.AuditEngineURL, cfg.AuditTimeoutSeconds, cfg.Concurrency, cfg.LLMProvider, len(cfg.Categories), appliedHTTPTimeout,
	)

	db, err := InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	if at, found, err := LatestRunAt(db); err == nil && found {
		log.Printf("Previous run finished %s", at.Format("2006-01-02 15:04"))
	}

	os.MkdirAll(cfg.OutputDir, 0755)

	var api *slack.Client
	if cfg.SlackBotToken != "" {
		api = slack.New(cfg.SlackBotToken)
	}

	if cfg.AuditSchedule != "" {
		RunScheduledAudits(cfg, db, api)
		return
	}

	if err := RunOnce(cfg, db, api); err != nil {
		log.Fatalf("Audit run error: %v", err)
	}
}

// RunOnce executes one full batch: read items, audit and classify each one,
// write the artifact, record the run, notify. A sink failure is the run's
// terminal error; everything upstream degrades per item instead of failing.
func RunOnce(cfg Config, db *sql.DB, api *slack.Client) error {
	items, err := ReadItems(cfg.InputPath, cfg)
	if err != nil {
		return err
	}

	pipeline := &Pipeline{
		Auditor:     NewAuditEngine(cfg),
		Classifier:  NewClassifier(cfg),
		Concurrency: cfg.Concurrency,
	}
	records, stats := pipeline.RunBatch(context.Background(), items)

	reportPath, err := WriteReport(records, cfg.OutputDir, time.Now())
	if err != nil {
		return err
	}

	runID, err := InsertRun(db, stats, reportPath)
	if err != nil {
		log.Printf("run history insert error: %v", err)
	} else if _, err := InsertSiteResults(db, runID, records); err != nil {
		log.Printf("site results insert error: %v", err)
	}

	if api != nil && cfg.SlackChannelID != "" {
		var deltas []ScoreDelta
		if runID > 0 {
			deltas, err = ScoreDeltas(db, runID, records)
			if err != nil {
				log.Printf("score delta lookup error: %v", err)
			}
		}
		PostRunSummary(api, cfg.SlackChannelID, stats, reportPath, deltas)
	}

	return nil
}
