package neurite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"neurite/internal/profile"
)

const ballAndStick = `# ball and stick
1 1 0 0 0 5.0 -1
2 3 10 0 0 2.0 1
`

const twoCells = `1 1 0 0 0 5.0 -1
2 3 10 0 0 2.0 1
10 1 100 0 0 5.0 -1
11 2 110 0 0 2.0 10
`

func writeSWC(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write swc: %v", err)
	}
	return path
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(context.Background(), Options{})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func quickProfile() profile.Profile {
	p := profile.Default()
	p.Duration = 0.1
	p.Channel = "passive"
	return p
}

func TestInspect(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	path := writeSWC(t, "cell.swc", ballAndStick)

	info, err := client.Inspect(ctx, path, false)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info.Name != "cell" {
		t.Fatalf("expected name cell, got %q", info.Name)
	}
	if len(info.Circuits) != 1 || info.Circuits[0].RootID != 1 {
		t.Fatalf("unexpected circuits: %+v", info.Circuits)
	}
	if info.Circuits[0].Compartments != 2 {
		t.Fatalf("expected 2 compartments, got %d", info.Circuits[0].Compartments)
	}
	if info.KindCounts["soma"] != 1 || info.KindCounts["basal_dendrite"] != 1 {
		t.Fatalf("unexpected kind counts: %v", info.KindCounts)
	}

	// The build summary lands in the store under the file's base name.
	summary, ok, err := client.store.GetMorphology(ctx, "cell")
	if err != nil || !ok {
		t.Fatalf("summary not persisted: ok=%v err=%v", ok, err)
	}
	if summary.CircuitCount != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestSimulateEndToEnd(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	path := writeSWC(t, "cell.swc", ballAndStick)

	summary, err := client.Simulate(ctx, SimulateRequest{
		Path:    path,
		RunID:   "e2e",
		Profile: quickProfile(),
	})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(summary.Runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(summary.Runs))
	}
	run := summary.Runs[0]
	if run.RunID != "e2e" || !run.Completed || run.Diverged || run.Err != "" {
		t.Fatalf("unexpected run item: %+v", run)
	}
	if run.Steps != 1000 {
		t.Fatalf("expected 1000 steps, got %d", run.Steps)
	}

	runs, err := client.Runs(ctx)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "e2e" || runs[0].Morphology != "cell" {
		t.Fatalf("unexpected persisted runs: %+v", runs)
	}

	times, volts, err := client.Trace(ctx, "e2e", 0)
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	if len(times) == 0 || len(times) != len(volts) {
		t.Fatalf("malformed trace: %d times, %d volts", len(times), len(volts))
	}
	// The passive circuit starts at the leak reversal and must stay there.
	for _, v := range volts {
		if v != volts[0] {
			t.Fatalf("passive equilibrium drifted: %v vs %v", v, volts[0])
		}
	}

	if _, _, err := client.Trace(ctx, "e2e", 99); err == nil {
		t.Fatal("expected error for unknown compartment")
	}
	if _, _, err := client.Trace(ctx, "ghost", 0); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestSimulateMultipleCircuits(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	path := writeSWC(t, "pair.swc", twoCells)

	summary, err := client.Simulate(ctx, SimulateRequest{
		Path:    path,
		RunID:   "pair",
		Profile: quickProfile(),
	})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(summary.Runs) != 2 {
		t.Fatalf("expected one run per circuit, got %d", len(summary.Runs))
	}
	// Each circuit gets an indexed run id.
	ids := map[string]bool{}
	for _, run := range summary.Runs {
		ids[run.RunID] = true
		if !run.Completed {
			t.Fatalf("run %s did not complete: %+v", run.RunID, run)
		}
	}
	if !ids["pair-0"] || !ids["pair-1"] {
		t.Fatalf("unexpected run ids: %v", ids)
	}
}

func TestSimulateRejectsInvalidProfile(t *testing.T) {
	client := newTestClient(t)
	path := writeSWC(t, "cell.swc", ballAndStick)

	p := profile.Default()
	p.Dt = -1
	if _, err := client.Simulate(context.Background(), SimulateRequest{Path: path, Profile: p}); err == nil {
		t.Fatal("expected profile validation error")
	}
}

func TestExportProcessed(t *testing.T) {
	client := newTestClient(t)
	path := writeSWC(t, "pair.swc", twoCells)
	out := filepath.Join(t.TempDir(), "processed.swc")

	if err := client.ExportProcessed(path, out, false); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "# Processed SWC file") {
		t.Fatalf("missing header: %q", text)
	}

	var dataLines []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if !strings.HasPrefix(line, "#") {
			dataLines = append(dataLines, line)
		}
	}
	if len(dataLines) != 4 {
		t.Fatalf("expected 4 records, got %d: %v", len(dataLines), dataLines)
	}
	// Sequential renumbering across both circuits, roots marked with -1.
	if !strings.HasPrefix(dataLines[0], "1 ") || !strings.HasSuffix(dataLines[0], " -1") {
		t.Fatalf("unexpected first record: %q", dataLines[0])
	}
	if !strings.HasPrefix(dataLines[2], "3 ") || !strings.HasSuffix(dataLines[2], " -1") {
		t.Fatalf("unexpected second root: %q", dataLines[2])
	}
}

func TestInspectPropagatesBuildErrors(t *testing.T) {
	client := newTestClient(t)
	path := writeSWC(t, "bad.swc", "1 1 0 0 0 5.0 -1\n2 3 10 0 0 2.0 99\n")

	if _, err := client.Inspect(context.Background(), path, false); err == nil {
		t.Fatal("expected dangling parent error")
	}
}
