package main

import (
	"database/sql"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at   DATETIME NOT NULL,
		finished_at  DATETIME NOT NULL,
		total        INTEGER NOT NULL,
		audited      INTEGER NOT NULL,
		audit_failed INTEGER NOT NULL,
		skipped      INTEGER NOT NULL,
		report_path  TEXT DEFAULT '',
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS site_results (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      INTEGER NOT NULL,
		identifier  TEXT NOT NULL,
		score       REAL,
		issue_count INTEGER NOT NULL DEFAULT 0,
		category    TEXT DEFAULT '',
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_site_results_run ON site_results(run_id);
	CREATE INDEX IF NOT EXISTS idx_site_results_identifier ON site_results(identifier);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// InsertRun records one completed batch and returns its row id.
func InsertRun(db *sql.DB, stats BatchStats, reportPath string) (int64, error) {
	res, err := db.Exec(
		`INSERT INTO runs (started_at, finished_at, total, audited, audit_failed, skipped, report_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stats.StartedAt, stats.FinishedAt, stats.Total, stats.Audited, stats.AuditFailed, stats.Skipped, reportPath,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertSiteResults stores every record of a run in one transaction.
func InsertSiteResults(db *sql.DB, runID int64, records []ResultRecord) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO site_results (run_id, identifier, score, issue_count, category)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range records {
		var score any
		if rec.Score != nil {
			score = *rec.Score
		}
		if _, err := stmt.Exec(runID, rec.Identifier, score, len(rec.Issues), rec.Category); err != nil {
			return inserted, err
		}
		inserted++
	}

	return inserted, tx.Commit()
}

// PreviousScore returns the site's score from the latest run before runID.
// found is false when the site has no earlier scored result.
func PreviousScore(db *sql.DB, runID int64, identifier string) (float64, bool, error) {
	var score sql.NullFloat64
	err := db.QueryRow(
		`SELECT score FROM site_results
		 WHERE identifier = ? AND run_id < ? AND score IS NOT NULL
		 ORDER BY run_id DESC LIMIT 1`,
		identifier, runID,
	).Scan(&score)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return score.Float64, score.Valid, nil
}

// ScoreDelta is one site's movement between its latest two scored runs.
type ScoreDelta struct {
	Identifier string
	Score      float64
	Previous   float64
	Delta      float64
}

// ScoreDeltas compares a run's scored results against each site's previous
// score, most negative movement first.
func ScoreDeltas(db *sql.DB, runID int64, records []ResultRecord) ([]ScoreDelta, error) {
	var deltas []ScoreDelta
	for _, rec := range records {
		if rec.Score == nil {
			continue
		}
		prev, found, err := PreviousScore(db, runID, rec.Identifier)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		deltas = append(deltas, ScoreDelta{
			Identifier: rec.Identifier,
			Score:      *rec.Score,
			Previous:   prev,
			Delta:      *rec.Score - prev,
		})
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Delta < deltas[j].Delta })
	return deltas, nil
}

// LatestRunAt returns the finish time of the most recent run, if any.
func LatestRunAt(db *sql.DB) (time.Time, bool, error) {
	var finished time.Time
	err := db.QueryRow(`SELECT finished_at FROM runs ORDER BY id DESC LIMIT 1`).Scan(&finished)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return finished, true, nil
}
