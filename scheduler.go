package main

import (
	"database/sql"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
)

// RunScheduledAudits blocks and re-runs the batch on the configured cron
// schedule. The schedule is a standard 5-field cron expression
// (minute hour day-of-month month day-of-week).
// Examples: "0 3 * * *" (daily 3am), "0 3 * * 1" (Mondays 3am).
func RunScheduledAudits(cfg Config, db *sql.DB, api *slack.Client) {
	schedule := strings.TrimSpace(cfg.AuditSchedule)

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Fatalf("Invalid audit_schedule '%s': %v", schedule, err)
	}
	log.Printf("Scheduled audits enabled (cron: %s)", schedule)

	for {
		now := time.Now()
		next := sched.Next(now)
		wait := next.Sub(now)
		log.Printf("Next audit run at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

		time.Sleep(wait)

		if err := RunOnce(cfg, db, api); err != nil {
			log.Printf("Scheduled audit run error: %v", err)
		}
	}
}
