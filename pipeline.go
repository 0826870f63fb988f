package main

import (
	"context"
	"log"
	"sync"
	"time"
)

// Auditor runs one audit. A Failed outcome with a nil error is the normal
// shape for engine trouble; a non-nil error means the call never produced an
// outcome and the item is skipped.
type Auditor interface {
	Audit(ctx context.Context, target string) (AuditOutcome, error)
}

// CategoryClassifier resolves a description to a category. Failures degrade to
// Uncategorized inside the adapter, so there is no error return.
type CategoryClassifier interface {
	Classify(ctx context.Context, description string) string
}

// Pipeline drives a batch of items through the audit and classification
// adapters, one record per item that completes. The classifier handle is
// long-lived and shared across items; audit sessions are scoped per call
// inside the adapter.
type Pipeline struct {
	Auditor     Auditor
	Classifier  CategoryClassifier
	Concurrency int
}

// itemSlot is one item's terminal state. A nil record means the item was
// skipped on an adapter contract error and must not appear in the report.
type itemSlot struct {
	record *ResultRecord
}

// RunBatch processes items in source order and returns one ResultRecord per
// item that was not skipped, in the original order. Adapter-level failures are
// captured into the record (nil score, Uncategorized); only an error escaping
// the audit adapter's own normalization skips an item. A single item's failure
// never interrupts the batch, and there is no whole-batch cancellation.
func (p *Pipeline) RunBatch(ctx context.Context, items []Item) ([]ResultRecord, BatchStats) {
	stats := BatchStats{Total: len(items), StartedAt: time.Now()}

	slots := make([]itemSlot, len(items))
	if p.Concurrency > 1 {
		p.runPooled(ctx, items, slots)
	} else {
		for i, item := range items {
			slots[i] = p.processItem(ctx, item)
		}
	}

	records := make([]ResultRecord, 0, len(items))
	for _, slot := range slots {
		if slot.record == nil {
			stats.Skipped++
			continue
		}
		rec := *slot.record
		if rec.Score != nil {
			stats.Audited++
		} else {
			stats.AuditFailed++
		}
		if rec.Category != CategoryUncategorized {
			stats.Classified++
		} else {
			stats.Uncategorized++
		}
		records = append(records, rec)
	}
	stats.FinishedAt = time.Now()

	log.Printf("batch done total=%d audited=%d audit_failed=%d classified=%d uncategorized=%d skipped=%d duration=%s",
		stats.Total, stats.Audited, stats.AuditFailed, stats.Classified, stats.Uncategorized, stats.Skipped, stats.Duration().Round(time.Second))
	return records, stats
}

// runPooled fans items out over a bounded worker pool. Each worker writes only
// its own index, so the slot slice needs no lock and the final order stays
// positional.
func (p *Pipeline) runPooled(ctx context.Context, items []Item, slots []itemSlot) {
	sem := make(chan struct{}, p.Concurrency)
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, item Item) {
			defer wg.Done()
			defer func() { <-sem }()
			slots[idx] = p.processItem(ctx, item)
		}(i, item)
	}
	wg.Wait()
}

// processItem takes one item through audit then classification. The two calls
// are independent: a failed audit still gets a classified record.
func (p *Pipeline) processItem(ctx context.Context, item Item) itemSlot {
	target := NormalizeTargetURL(item.Identifier)

	outcome, err := p.Auditor.Audit(ctx, target)
	if err != nil {
		log.Printf("batch skipped item=%s: %v", item.Identifier, err)
		return itemSlot{}
	}
	if outcome.Failed {
		log.Printf("audit item=%s failed detail=%q", item.Identifier, outcome.ErrorDetail)
	} else if outcome.Score != nil {
		log.Printf("audit item=%s score=%.0f issues=%d", item.Identifier, *outcome.Score, len(outcome.Issues))
	}

	category := p.Classifier.Classify(ctx, item.Description)

	title := item.Title
	if title == "" {
		title = item.Identifier
	}
	return itemSlot{record: &ResultRecord{
		Identifier:  item.Identifier,
		Title:       title,
		Description: item.Description,
		Score:       outcome.Score,
		Issues:      outcome.Issues,
		Category:    category,
	}}
}
