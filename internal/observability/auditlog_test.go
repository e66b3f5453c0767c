package observability

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAuditLog_WriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := NewJSONLAuditLog(path)
	if err != nil {
		t.Fatalf("NewJSONLAuditLog: %v", err)
	}
	defer func() { _ = log.Close() }()

	now := time.Now().UTC()
	events := []Event{
		{Time: now.Add(-2 * time.Hour), Type: "person.created", Message: "created person 7"},
		{Time: now.Add(-1 * time.Hour), Type: "project.sprint_updated", Message: "sprint 3", Data: map[string]any{"project_id": float64(2)}},
		{Time: now, Level: LevelWarn, Type: "permission.denied", Message: "delete project"},
	}
	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	all, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Read returned %d events, want 3", len(all))
	}
	if all[0].Level != LevelInfo {
		t.Errorf("default level = %q, want %q", all[0].Level, LevelInfo)
	}
	if got := all[1].Data["project_id"]; got != float64(2) {
		t.Errorf("data project_id = %v, want 2", got)
	}
}

func TestAuditLog_Filters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := NewJSONLAuditLog(path)
	if err != nil {
		t.Fatalf("NewJSONLAuditLog: %v", err)
	}
	defer func() { _ = log.Close() }()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_ = log.Write(Event{Time: base, Type: "task.created"})
	_ = log.Write(Event{Time: base.Add(time.Hour), Type: "task.deleted"})
	_ = log.Write(Event{Time: base.Add(2 * time.Hour), Level: LevelWarn, Type: "permission.denied"})

	since := base.Add(30 * time.Minute)
	until := base.Add(90 * time.Minute)

	tests := []struct {
		name   string
		filter EventFilter
		want   int
	}{
		{"since", EventFilter{Since: &since}, 2},
		{"until", EventFilter{Until: &until}, 2},
		{"window", EventFilter{Since: &since, Until: &until}, 1},
		{"type", EventFilter{Type: "task.created"}, 1},
		{"level", EventFilter{Level: LevelWarn}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := log.Read(tt.filter)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d events, want %d", len(got), tt.want)
			}
		})
	}
}

func TestAuditLog_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	content := `{"time":"2026-01-01T00:00:00Z","level":"INFO","type":"person.updated","msg":"ok"}
not json
{"time":"2026-01-01T00:00:01Z","level":"INFO","type":"person.deleted","msg":"ok"}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	log, err := NewJSONLAuditLog(path)
	if err != nil {
		t.Fatalf("NewJSONLAuditLog: %v", err)
	}
	defer func() { _ = log.Close() }()

	got, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d events, want 2", len(got))
	}
}

func TestSummarizer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := NewJSONLAuditLog(path)
	if err != nil {
		t.Fatalf("NewJSONLAuditLog: %v", err)
	}
	defer func() { _ = log.Close() }()

	now := time.Now().UTC()
	_ = log.Write(Event{Time: now.Add(-48 * time.Hour), Type: "person.created"})
	_ = log.Write(Event{Time: now.Add(-time.Hour), Type: "person.updated"})
	_ = log.Write(Event{Time: now.Add(-time.Hour), Type: "task.status_updated"})
	_ = log.Write(Event{Time: now, Type: "permission.denied"})

	sum, err := NewSummarizer(log).Summarize(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.EventCount != 3 {
		t.Errorf("EventCount = %d, want 3", sum.EventCount)
	}
	if sum.ByEntity["person"] != 1 || sum.ByEntity["task"] != 1 {
		t.Errorf("ByEntity = %v", sum.ByEntity)
	}
	if sum.Denied != 1 {
		t.Errorf("Denied = %d, want 1", sum.Denied)
	}
	if sum.OldestEvent == nil || sum.NewestEvent == nil {
		t.Fatal("expected oldest/newest timestamps")
	}
}

func TestParseSince(t *testing.T) {
	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"7d", now.AddDate(0, 0, -7), false},
		{"24h", now.Add(-24 * time.Hour), false},
		{"3w", time.Time{}, true},
		{"d", time.Time{}, true},
		{"xd", time.Time{}, true},
	}
	for _, tt := range tests {
		got, err := ParseSince(tt.in, now)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSince(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !got.Equal(tt.want) {
			t.Errorf("ParseSince(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
