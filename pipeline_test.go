package main

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
)

type fakeAuditor struct {
	calls    int32
	outcomes map[string]AuditOutcome
	errOn    map[string]error
}

func (f *fakeAuditor) Audit(ctx context.Context, target string) (AuditOutcome, error) {
	atomic.AddInt32(&f.calls, 1)
	if err, ok := f.errOn[target]; ok {
		return AuditOutcome{}, err
	}
	if outcome, ok := f.outcomes[target]; ok {
		return outcome, nil
	}
	return AuditOutcome{Failed: true, ErrorDetail: "no fixture for " + target}, nil
}

type fakeClassifier struct {
	calls    int32
	category string
}

func (f *fakeClassifier) Classify(ctx context.Context, description string) string {
	if strings.TrimSpace(description) == "" {
		return CategoryUncategorized
	}
	atomic.AddInt32(&f.calls, 1)
	return f.category
}

func scored(v float64) AuditOutcome {
	return AuditOutcome{Score: &v}
}

func TestRunBatchPreservesSourceOrder(t *testing.T) {
	auditor := &fakeAuditor{outcomes: map[string]AuditOutcome{
		"https://a.be": scored(90),
		"https://b.be": {Failed: true, ErrorDetail: "engine timeout"},
		"https://c.be": scored(70),
	}}
	p := &Pipeline{Auditor: auditor, Classifier: &fakeClassifier{category: "Other"}}

	records, stats := p.RunBatch(context.Background(), []Item{
		{Identifier: "a.be", Description: "first"},
		{Identifier: "b.be", Description: "second"},
		{Identifier: "c.be", Description: "third"},
	})

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, want := range []string{"a.be", "b.be", "c.be"} {
		if records[i].Identifier != want {
			t.Fatalf("record %d: expected %s, got %s", i, want, records[i].Identifier)
		}
	}
	if stats.Audited != 2 || stats.AuditFailed != 1 || stats.Skipped != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRunBatchFailedAuditStillProducesRecord(t *testing.T) {
	auditor := &fakeAuditor{outcomes: map[string]AuditOutcome{
		"https://broken.be": {Failed: true, ErrorDetail: "engine timeout"},
	}}
	p := &Pipeline{Auditor: auditor, Classifier: &fakeClassifier{category: "News"}}

	records, _ := p.RunBatch(context.Background(), []Item{
		{Identifier: "broken.be", Description: ""},
	})

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Score != nil {
		t.Fatalf("expected nil score for failed audit, got %v", *rec.Score)
	}
	if len(rec.Issues) != 0 {
		t.Fatalf("expected no issues for failed audit, got %d", len(rec.Issues))
	}
	if rec.Category != CategoryUncategorized {
		t.Fatalf("expected %s for empty description, got %s", CategoryUncategorized, rec.Category)
	}
}

func TestRunBatchEmptyDescriptionSkipsClassifierCall(t *testing.T) {
	auditor := &fakeAuditor{outcomes: map[string]AuditOutcome{"https://a.be": scored(50)}}
	classifier := &fakeClassifier{category: "Blog"}
	p := &Pipeline{Auditor: auditor, Classifier: classifier}

	records, _ := p.RunBatch(context.Background(), []Item{
		{Identifier: "a.be", Description: "   "},
	})

	if classifier.calls != 0 {
		t.Fatalf("expected no classifier calls for empty description, got %d", classifier.calls)
	}
	if records[0].Category != CategoryUncategorized {
		t.Fatalf("expected %s, got %s", CategoryUncategorized, records[0].Category)
	}
}

func TestRunBatchSkipIsolatesNeighbors(t *testing.T) {
	auditor := &fakeAuditor{
		outcomes: map[string]AuditOutcome{
			"https://before.be": scored(80),
			"https://after.be":  scored(60),
		},
		errOn: map[string]error{
			"https://bad.be": fmt.Errorf("session state corrupted"),
		},
	}
	p := &Pipeline{Auditor: auditor, Classifier: &fakeClassifier{category: "Other"}}

	records, stats := p.RunBatch(context.Background(), []Item{
		{Identifier: "before.be", Description: "x"},
		{Identifier: "bad.be", Description: "x"},
		{Identifier: "after.be", Description: "x"},
	})

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Identifier != "before.be" || records[1].Identifier != "after.be" {
		t.Fatalf("unexpected surviving records: %s, %s", records[0].Identifier, records[1].Identifier)
	}
	if stats.Skipped != 1 {
		t.Fatalf("expected 1 skipped, got %d", stats.Skipped)
	}
}

func TestRunBatchPooledKeepsOrder(t *testing.T) {
	outcomes := make(map[string]AuditOutcome)
	var items []Item
	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("site%02d.be", i)
		outcomes["https://"+id] = scored(float64(i))
		items = append(items, Item{Identifier: id, Description: "d"})
	}
	p := &Pipeline{
		Auditor:     &fakeAuditor{outcomes: outcomes},
		Classifier:  &fakeClassifier{category: "Other"},
		Concurrency: 4,
	}

	records, stats := p.RunBatch(context.Background(), items)

	if len(records) != 25 {
		t.Fatalf("expected 25 records, got %d", len(records))
	}
	for i, rec := range records {
		if rec.Identifier != items[i].Identifier {
			t.Fatalf("record %d out of order: expected %s, got %s", i, items[i].Identifier, rec.Identifier)
		}
		if rec.Score == nil || *rec.Score != float64(i) {
			t.Fatalf("record %d carries wrong score: %v", i, rec.Score)
		}
	}
	if stats.Audited != 25 {
		t.Fatalf("expected 25 audited, got %d", stats.Audited)
	}
}

func TestNormalizeTargetURL(t *testing.T) {
	cases := map[string]string{
		"example.be":          "https://example.be",
		"http://example.be":   "http://example.be",
		"https://example.be/": "https://example.be/",
	}
	for in, want := range cases {
		if got := NormalizeTargetURL(in); got != want {
			t.Fatalf("NormalizeTargetURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRunBatchRecordFallsBackToIdentifierTitle(t *testing.T) {
	auditor := &fakeAuditor{outcomes: map[string]AuditOutcome{"https://a.be": scored(10)}}
	p := &Pipeline{Auditor: auditor, Classifier: &fakeClassifier{category: "Other"}}

	records, _ := p.RunBatch(context.Background(), []Item{{Identifier: "a.be"}})

	if records[0].Title != "a.be" {
		t.Fatalf("expected title fallback to identifier, got %q", records[0].Title)
	}
}
