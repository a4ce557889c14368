package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/bodul/crossgrid/internal/config"
	"github.com/bodul/crossgrid/internal/grid"
)

func TestAnalyzeImage(t *testing.T) {
	projectID := os.Getenv("GCP_PROJECT_ID")
	if projectID == "" {
		t.Skip("GCP_PROJECT_ID not set, skipping integration test")
	}

	ctx := context.Background()
	client, err := NewGeminiClient(ctx, config.GCPConfig{ProjectID: projectID})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	defer client.Close()

	imageData, err := os.ReadFile("test_data/example.png")
	if err != nil {
		t.Skipf("read image: %v", err)
	}

	g, err := client.AnalyzeImage(ctx, imageData, "image/png")
	if err != nil {
		t.Fatalf("analyze image: %v", err)
	}

	if len(g.Cells) != g.Rows {
		t.Fatalf("expected %d cell rows, got %d", g.Rows, len(g.Cells))
	}

	defCount := 0
	for _, row := range g.Cells {
		for _, cell := range row {
			if cell.Black {
				defCount++
			}
		}
	}
	t.Logf("Grid: %dx%d, %d definition cells", g.Rows, g.Cols, defCount)

	// Print a sample for manual inspection.
	out, _ := json.MarshalIndent(g, "", "  ")
	t.Logf("Extracted grid:\n%s", string(out))
}

func TestParseGridJSON(t *testing.T) {
	raw := `{
		"rows": 2, "cols": 2,
		"cells": [
			[{"black": true, "definitions": [{"text": "Astre", "direction": "right"}]}, {"black": false}],
			[{"black": false, "letter": "E"}, {"black": false}]
		]
	}`

	g, err := parseGridJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Cells[0][0].Definitions[0].Direction != grid.Across {
		t.Fatal("expected 'right' to decode as across")
	}

	m, err := g.Model()
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	if kind, _ := m.Kind(grid.Coord{Row: 1, Col: 0}); kind.Prefill != "E" {
		t.Fatalf("expected prefilled E, got %q", kind.Prefill)
	}
}

func TestParseGridJSONRejects(t *testing.T) {
	cases := map[string]string{
		"empty":      "",
		"not json":   "```json",
		"no cells":   `{"rows": 0, "cols": 0, "cells": []}`,
		"ragged":     `{"rows": 2, "cols": 2, "cells": [[{}, {}], [{}]]}`,
		"wrong size": `{"rows": 3, "cols": 2, "cells": [[{}, {}], [{}, {}]]}`,
	}
	for name, raw := range cases {
		if _, err := parseGridJSON(raw); err == nil {
			t.Errorf("%s: expected error", name)
		} else if name == "ragged" && !strings.Contains(err.Error(), "unequal") {
			t.Errorf("ragged: unexpected error %v", err)
		}
	}
}
