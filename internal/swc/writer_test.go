package swc

import (
	"strings"
	"testing"

	"neurite/internal/model"
)

func TestWriteProcessed(t *testing.T) {
	records := []model.Record{
		{ID: 1, Kind: model.KindSoma, RawKind: 1, X: 0, Y: 0, Z: 0, Radius: 5, ParentID: model.NoParent},
		{ID: 2, Kind: model.KindCustom, RawKind: 42, X: 10.5, Y: 0, Z: 0, Radius: 2.25, ParentID: 1},
	}

	var buf strings.Builder
	if err := WriteProcessed(&buf, records); err != nil {
		t.Fatalf("write: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 records, got %d lines", len(lines))
	}
	if lines[0] != "# Processed SWC file" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if lines[1] != "1 1 0.00 0.00 0.00 5 -1" {
		t.Fatalf("unexpected record line: %q", lines[1])
	}
	// Custom kinds keep their raw code on the way out.
	if lines[2] != "2 42 10.50 0.00 0.00 2.25 1" {
		t.Fatalf("unexpected record line: %q", lines[2])
	}
}

func TestWriteProcessedRoundTrips(t *testing.T) {
	records := []model.Record{
		{ID: 1, Kind: model.KindSoma, RawKind: 1, Radius: 5, ParentID: model.NoParent},
		{ID: 2, Kind: model.KindAxon, RawKind: 2, X: 10, Radius: 2, ParentID: 1},
	}

	var buf strings.Builder
	if err := WriteProcessed(&buf, records); err != nil {
		t.Fatalf("write: %v", err)
	}
	parsed, err := Parse(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if len(parsed) != len(records) {
		t.Fatalf("expected %d records, got %d", len(records), len(parsed))
	}
	for i := range parsed {
		if parsed[i].ID != records[i].ID || parsed[i].Kind != records[i].Kind || parsed[i].ParentID != records[i].ParentID {
			t.Fatalf("record %d mangled: %+v vs %+v", i, parsed[i], records[i])
		}
	}
}
