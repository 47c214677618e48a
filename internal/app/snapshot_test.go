package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSnapshotRoundTripJSONAndYAML(t *testing.T) {
	svc, _ := newSeededService(t, ServiceConfig{})
	snap, err := svc.ExportSnapshot(context.Background())
	if err != nil {
		t.Fatalf("ExportSnapshot() error = %v", err)
	}
	if snap.Version != SnapshotVersion || len(snap.Projects) != 1 || len(snap.Journal) != 3 {
		t.Fatalf("unexpected export %#v", snap)
	}
	if snap.Journal[0].ID != "e3" {
		t.Fatalf("expected journal sorted by date, got first %q", snap.Journal[0].ID)
	}

	for _, format := range []SnapshotFormat{SnapshotFormatJSON, SnapshotFormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := EncodeSnapshot(&buf, snap, format); err != nil {
				t.Fatalf("EncodeSnapshot() error = %v", err)
			}
			decoded, err := DecodeSnapshot(&buf, format)
			if err != nil {
				t.Fatalf("DecodeSnapshot() error = %v", err)
			}
			target := NewService(newFakeRepo(), nil, fixedClock, ServiceConfig{})
			if err := target.ImportSnapshot(context.Background(), decoded); err != nil {
				t.Fatalf("ImportSnapshot() error = %v", err)
			}
			again, err := target.ExportSnapshot(context.Background())
			if err != nil {
				t.Fatalf("ExportSnapshot() error = %v", err)
			}
			var want, got bytes.Buffer
			_ = EncodeSnapshot(&want, snap, SnapshotFormatJSON)
			_ = EncodeSnapshot(&got, again, SnapshotFormatJSON)
			if want.String() != got.String() {
				t.Fatalf("round trip mismatch\nwant:\n%s\ngot:\n%s", want.String(), got.String())
			}
		})
	}
}

func TestDecodeSnapshotSchemaFailures(t *testing.T) {
	cases := []struct {
		name   string
		format SnapshotFormat
		input  string
		path   string
	}{
		{name: "missing projects", format: SnapshotFormatJSON, input: `{"version":"statusdesk.snapshot.v1"}`, path: "$"},
		{name: "empty project name", format: SnapshotFormatJSON, input: `{"projects":[{"id":"p1","name":""}]}`, path: "/projects/0/name"},
		{name: "bad date", format: SnapshotFormatYAML, input: "projects:\n  - id: p1\n    name: P\njournal:\n  - project_id: p1\n    date: yesterday\n    headline: h\n    alert_level: green\n", path: "/journal/0/date"},
		{name: "not json", format: SnapshotFormatJSON, input: `{`, path: "$"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSnapshot(strings.NewReader(tt.input), tt.format)
			if !errors.Is(err, ErrInvalidSnapshot) {
				t.Fatalf("expected ErrInvalidSnapshot, got %v", err)
			}
			var verr SchemaValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected SchemaValidationError, got %T", err)
			}
			if tt.path != "$" && verr.Path != tt.path {
				t.Fatalf("expected path %q, got %q (%v)", tt.path, verr.Path, err)
			}
		})
	}
}

func TestSnapshotValidateRejectsBrokenReferences(t *testing.T) {
	cases := []struct {
		name string
		snap Snapshot
	}{
		{name: "version", snap: Snapshot{Version: "other"}},
		{name: "duplicate project", snap: Snapshot{Projects: []SnapshotProject{sampleProject(), sampleProject()}}},
		{name: "unknown project", snap: Snapshot{Projects: []SnapshotProject{sampleProject()}, Journal: []SnapshotJournalEntry{{ID: "x", ProjectID: "nope", Headline: "h", AlertLevel: "green", Date: now}}}},
		{name: "unknown level", snap: Snapshot{Projects: []SnapshotProject{sampleProject()}, Journal: []SnapshotJournalEntry{{ID: "x", ProjectID: "p1", Headline: "h", AlertLevel: "blue", Date: now}}}},
		{name: "bad tracking scenario", snap: Snapshot{Projects: []SnapshotProject{{ID: "p", Name: "P", TrackingScenario: "later"}}}},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.snap.Validate(); !errors.Is(err, ErrInvalidSnapshot) {
				t.Fatalf("expected ErrInvalidSnapshot, got %v", err)
			}
		})
	}
}

func TestImportAssignsMissingIDs(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, sequentialIDs(), fixedClock, ServiceConfig{})
	snap := Snapshot{
		Projects: []SnapshotProject{{ID: "p", Name: "P"}},
		Journal:  []SnapshotJournalEntry{{ProjectID: "p", Headline: "h", AlertLevel: "green", Date: now}},
	}
	if err := svc.ImportSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("ImportSnapshot() error = %v", err)
	}
	if len(repo.journal) != 1 || repo.journal[0].ID != "id-1" {
		t.Fatalf("unexpected stored journal %#v", repo.journal)
	}
	if !repo.projects["p"].CreatedAt.Equal(now) {
		t.Fatalf("expected created_at default, got %s", repo.projects["p"].CreatedAt)
	}
}

func TestFormatHelpers(t *testing.T) {
	if FormatForPath("a/b.YML") != SnapshotFormatYAML || FormatForPath("x.json") != SnapshotFormatJSON || FormatForPath("x") != SnapshotFormatJSON {
		t.Fatal("unexpected FormatForPath result")
	}
	if _, err := ParseSnapshotFormat("toml"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
