package observability

import (
	"fmt"
	"strings"
	"time"
)

// Summary aggregates audit events over a time window.
type Summary struct {
	EventCount  int            `json:"event_count" yaml:"event_count"`
	ByEntity    map[string]int `json:"by_entity" yaml:"by_entity"`
	ByType      map[string]int `json:"by_type" yaml:"by_type"`
	Denied      int            `json:"denied" yaml:"denied"`
	OldestEvent *time.Time     `json:"oldest_event,omitempty" yaml:"oldest_event,omitempty"`
	NewestEvent *time.Time     `json:"newest_event,omitempty" yaml:"newest_event,omitempty"`
}

// Summarizer derives a Summary from the audit log.
type Summarizer interface {
	Summarize(since time.Time) (*Summary, error)
}

type auditSummarizer struct {
	log AuditLog
}

// NewSummarizer creates a Summarizer that reads from the given AuditLog.
func NewSummarizer(log AuditLog) Summarizer {
	return &auditSummarizer{log: log}
}

// Summarize reads all events since the given time and counts them by entity
// (the part of the type before the first dot) and by full type.
func (s *auditSummarizer) Summarize(since time.Time) (*Summary, error) {
	events, err := s.log.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for summary: %w", err)
	}

	sum := &Summary{
		ByEntity: make(map[string]int),
		ByType:   make(map[string]int),
	}
	sum.EventCount = len(events)

	for i, event := range events {
		t := event.Time
		if i == 0 {
			sum.OldestEvent = &t
		}
		sum.NewestEvent = &t

		sum.ByType[event.Type]++
		if event.Type == "permission.denied" {
			sum.Denied++
			continue
		}
		entity, _, _ := strings.Cut(event.Type, ".")
		sum.ByEntity[entity]++
	}

	return sum, nil
}

// ParseSince parses a human-friendly window like "7d", "30d" or "24h" into
// the corresponding time in the past.
func ParseSince(s string, now time.Time) (time.Time, error) {
	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]
	var num int
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
