package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// AuditEngine talks to the external audit engine over HTTP. Every Audit call
// acquires its own engine session and releases it on every exit path,
// including timeout; the engine allows one live audit per session.
type AuditEngine struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

func NewAuditEngine(cfg Config) *AuditEngine {
	return &AuditEngine{
		baseURL: strings.TrimRight(cfg.AuditEngineURL, "/"),
		timeout: time.Duration(cfg.AuditTimeoutSeconds) * time.Second,
		// Engine calls outlive the shared external client's timeout, so the
		// adapter owns its own client and the per-call context sets the ceiling.
		client: &http.Client{},
	}
}

type auditRequest struct {
	URL        string   `json:"url"`
	Categories []string `json:"categories"`
	TimeoutMs  int64    `json:"timeout_ms"`
}

type auditReport struct {
	Categories map[string]struct {
		Score *float64 `json:"score"`
	} `json:"categories"`
	Audits map[string]struct {
		Score       *float64 `json:"score"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Details     *struct {
			Items []map[string]any `json:"items"`
		} `json:"details"`
	} `json:"audits"`
}

// Audit runs one accessibility-only audit against target. Engine failures,
// malformed reports and timeouts come back as AuditOutcome{Failed:true} with a
// nil error; the error return is reserved for calls that are invalid before
// the engine is ever reached (a malformed target URL).
func (e *AuditEngine) Audit(ctx context.Context, target string) (AuditOutcome, error) {
	if _, err := url.ParseRequestURI(target); err != nil {
		return AuditOutcome{}, fmt.Errorf("invalid audit target %q: %w", target, err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	sessionID, err := e.acquireSession(ctx)
	if err != nil {
		return failedOutcome(fmt.Sprintf("acquiring engine session: %v", err)), nil
	}
	defer e.releaseSession(sessionID)

	report, err := e.invoke(ctx, sessionID, target)
	if err != nil {
		return failedOutcome(fmt.Sprintf("audit %s: %v", target, err)), nil
	}

	return parseAuditReport(report), nil
}

func (e *AuditEngine) acquireSession(ctx context.Context) (string, error) {
	body, err := e.doJSON(ctx, "POST", e.baseURL+"/session", nil)
	if err != nil {
		return "", err
	}
	var session struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &session); err != nil {
		return "", fmt.Errorf("parsing session response: %w", err)
	}
	if session.ID == "" {
		return "", fmt.Errorf("engine returned empty session id")
	}
	return session.ID, nil
}

// releaseSession must succeed independently of the audit's fate, so it uses a
// fresh short deadline rather than the (possibly expired) call context.
func (e *AuditEngine) releaseSession(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "DELETE", e.baseURL+"/session/"+url.PathEscape(sessionID), nil)
	if err != nil {
		log.Printf("audit release session=%s error: %v", sessionID, err)
		return
	}
	resp, err := e.client.Do(req)
	if err != nil {
		log.Printf("audit release session=%s error: %v", sessionID, err)
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func (e *AuditEngine) invoke(ctx context.Context, sessionID, target string) (*auditReport, error) {
	reqBody := auditRequest{
		URL:        target,
		Categories: []string{"accessibility"},
		TimeoutMs:  e.timeout.Milliseconds(),
	}
	body, err := e.doJSON(ctx, "POST", e.baseURL+"/session/"+url.PathEscape(sessionID)+"/audit", reqBody)
	if err != nil {
		return nil, err
	}
	var report auditReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("parsing audit report: %w", err)
	}
	return &report, nil
}

func (e *AuditEngine) doJSON(ctx context.Context, method, apiURL string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("engine returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// parseAuditReport turns the engine report into an outcome: the accessibility
// category score scaled to 0-100, plus every audit that is not a perfect pass
// and carries detail rows.
func parseAuditReport(report *auditReport) AuditOutcome {
	var outcome AuditOutcome
	if cat, ok := report.Categories["accessibility"]; ok && cat.Score != nil {
		score := *cat.Score * 100
		outcome.Score = &score
	}
	for id, audit := range report.Audits {
		if audit.Score != nil && *audit.Score == 1 {
			continue
		}
		if audit.Details == nil {
			continue
		}
		outcome.Issues = append(outcome.Issues, Issue{
			ID:          id,
			Title:       audit.Title,
			Description: audit.Description,
			Details:     audit.Details.Items,
		})
	}
	sortIssues(outcome.Issues)
	return outcome
}

// sortIssues keeps issue order stable across runs; the engine report keys the
// audits by id, which carries no order of its own.
func sortIssues(issues []Issue) {
	sort.Slice(issues, func(i, j int) bool { return issues[i].ID < issues[j].ID })
}

func failedOutcome(detail string) AuditOutcome {
	return AuditOutcome{Failed: true, ErrorDetail: detail}
}

// NormalizeTargetURL prefixes https:// when the identifier has no scheme.
func NormalizeTargetURL(identifier string) string {
	if strings.Contains(identifier, "://") {
		return identifier
	}
	return "https://" + identifier
}
