// Package report summarizes a research run.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/FranksOps/scout/internal/marketplace"
	"github.com/google/uuid"
)

// Summary contains aggregated counts about one research run.
type Summary struct {
	RunID          string         `json:"run_id"`
	Variant        string         `json:"variant"`
	Processed      int            `json:"processed"`
	Skipped        int            `json:"skipped"`
	Failed         int            `json:"failed"`
	Blocked        int            `json:"blocked"`
	TotalItems     int            `json:"total_items"`
	FailuresByKind map[string]int `json:"failures_by_kind,omitempty"`
	FailedKeywords []string       `json:"failed_keywords,omitempty"`
	Written        bool           `json:"written"`
	StartTime      time.Time      `json:"start_time"`
	EndTime        time.Time      `json:"end_time"`
	Duration       time.Duration  `json:"duration"`
}

// New starts a summary with a fresh run ID.
func New(variant string, start time.Time) *Summary {
	return &Summary{
		RunID:          uuid.NewString(),
		Variant:        variant,
		FailuresByKind: make(map[string]int),
		StartTime:      start,
	}
}

// Record counts one searched keyword.
func (s *Summary) Record(keyword string, res marketplace.SearchResult) {
	s.Processed++
	s.TotalItems += len(res.Items)
	if !res.Failed() {
		return
	}
	s.Failed++
	s.FailedKeywords = append(s.FailedKeywords, keyword)
	if errors.Is(res.Err, marketplace.ErrBlocked) {
		s.Blocked++
	}
	if s.FailuresByKind == nil {
		s.FailuresByKind = make(map[string]int)
	}
	s.FailuresByKind[Kind(res.Err)]++
}

// Finish stamps the end of the run.
func (s *Summary) Finish(end time.Time) {
	s.EndTime = end
	s.Duration = end.Sub(s.StartTime)
}

// Kind buckets a search error for reporting.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, marketplace.ErrBlocked):
		return "blocked"
	case errors.Is(err, marketplace.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, marketplace.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, marketplace.ErrUnexpectedStatus):
		return "http_status"
	default:
		return "network"
	}
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary *Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

const textTmpl = `Scout Research Summary
----------------------
Run:           {{.RunID}} ({{.Variant}})
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Items:         {{.TotalItems}}
Skipped:       {{.Skipped}} blank keywords
Failed:        {{.Failed}}
{{- range $kind, $count := .FailuresByKind}}
  {{$kind}}: {{$count}}
{{- end}}
{{- if .FailedKeywords}}
Failed keywords:
{{- range .FailedKeywords}}
  {{.}}
{{- end}}
{{- end}}

Research completed. Processed {{.Processed}} keywords.
`

var text = template.Must(template.New("textReport").Parse(textTmpl))

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary *Summary) error {
	if err := text.Execute(w, summary); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// Write renders summary in format ("text" or "json").
func Write(w io.Writer, format string, summary *Summary) error {
	switch format {
	case "", "text":
		return WriteText(w, summary)
	case "json":
		return WriteJSON(w, summary)
	default:
		return fmt.Errorf("report: unknown format %q", format)
	}
}
