package cli

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/marmos91/tokenmig/pkg/catalog"
	"github.com/marmos91/tokenmig/pkg/migration"
	"github.com/stretchr/testify/assert"
)

func TestTokenStatus(t *testing.T) {
	tests := []struct {
		name    string
		summary migration.TokenSummary
		want    string
	}{
		{
			name: "Clean",
			want: "ok",
		},
		{
			name: "StagesInOrder",
			summary: migration.TokenSummary{
				Failures: map[migration.Stage]int{migration.StageRename: 2, migration.StageDiscovery: 1},
			},
			want: "discovery=1 rename=2",
		},
		{
			name: "CatalogFailure",
			summary: migration.TokenSummary{
				Failures:   map[migration.Stage]int{migration.StageResolve: 1},
				CatalogErr: errors.New("connection reset"),
			},
			want: "resolve=1 catalog stream failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenStatus(&tt.summary))
		})
	}
}

func TestPrintSummary(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	summary := &migration.Summary{
		RunID:     "run-1",
		Direction: migration.Forward,
		Started:   started,
		Finished:  started.Add(1500 * time.Millisecond),
		Tokens: []*migration.TokenSummary{
			{Token: catalog.Token{ID: 1, Name: "T0"}, SkipReason: migration.SkipInvalidName},
			{
				Token:     catalog.Token{ID: 2, Name: "T1"},
				Processed: 1204,
				Moved:     1200,
				Failed:    4,
				Failures:  map[migration.Stage]int{migration.StageRename: 4},
			},
		},
		DirectoriesCreated: 12,
	}

	var out bytes.Buffer
	printSummary(&out, summary)

	got := out.String()
	assert.Contains(t, got, "Run run-1 (forward) finished in 1.5s")
	assert.Contains(t, got, "skipped (invalid name)")
	assert.Contains(t, got, "1,204")
	assert.Contains(t, got, "rename=4")
	assert.Contains(t, got, "Total: 1,204 processed, 1,200 moved, 4 failed, 12 directories created")
	assert.NotContains(t, got, "\x1b[", "no escape sequences outside a terminal")
}

func TestPrintTokens_Empty(t *testing.T) {
	var out bytes.Buffer
	printTokens(&out, nil, catalog.ParseSelection())
	assert.Equal(t, "No space tokens found\n", out.String())
}

func TestPrintTokens(t *testing.T) {
	tokens := []catalog.Token{{ID: 1, Name: "T1"}, {ID: 2, Name: "a/b"}, {ID: 3, Name: "T3"}}

	var out bytes.Buffer
	printTokens(&out, tokens, catalog.ParseSelection("T1,a/b"))

	got := out.String()
	assert.Contains(t, got, "invalid name")
	assert.Contains(t, got, "not selected")
	assert.Contains(t, got, "1 of 3 tokens selected")
}
