package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

// PostRunSummary posts a short summary of a finished run to the configured
// channel. Notification failures are logged, never fatal: the artifact is
// already on disk by the time this runs.
func PostRunSummary(api *slack.Client, channelID string, stats BatchStats, reportPath string, deltas []ScoreDelta) {
	var b strings.Builder
	fmt.Fprintf(&b, "*Accessibility audit finished* (%s)\n", stats.Duration().Round(time.Second))
	fmt.Fprintf(&b, "Sites: %d | audited: %d | audit failed: %d | skipped: %d\n", stats.Total, stats.Audited, stats.AuditFailed, stats.Skipped)
	fmt.Fprintf(&b, "Classified: %d | uncategorized: %d\n", stats.Classified, stats.Uncategorized)
	fmt.Fprintf(&b, "Report: `%s`", reportPath)

	drops := 0
	for _, d := range deltas {
		if d.Delta >= 0 || drops == 3 {
			break
		}
		if drops == 0 {
			b.WriteString("\nBiggest score drops:")
		}
		fmt.Fprintf(&b, "\n• %s: %.0f → %.0f (%.0f)", d.Identifier, d.Previous, d.Score, d.Delta)
		drops++
	}

	_, _, err := api.PostMessage(channelID, slack.MsgOptionText(b.String(), false))
	if err != nil {
		log.Printf("slack post error: %v", err)
		return
	}
	log.Printf("slack summary posted channel=%s", channelID)
}
