package migration

import (
	"time"

	"github.com/marmos91/tokenmig/pkg/catalog"
)

// Skip reasons reported for tokens that are not processed.
const (
	SkipNotSelected = "not_selected"
	SkipInvalidName = "invalid_name"
)

// TokenSummary aggregates the outcomes of one token.
type TokenSummary struct {
	Token catalog.Token

	// SkipReason is empty for processed tokens
	SkipReason string

	Processed int
	Moved     int
	Failed    int

	// Failures counts failed files per stage
	Failures map[Stage]int

	// CatalogErr is set when streaming the token's files failed part way
	CatalogErr error

	Duration time.Duration
}

// Skipped reports whether the token was not processed.
func (t *TokenSummary) Skipped() bool {
	return t.SkipReason != ""
}

func (t *TokenSummary) record(o Outcome) {
	t.Processed++
	if o.Moved() {
		t.Moved++
		return
	}
	t.Failed++
	if t.Failures == nil {
		t.Failures = make(map[Stage]int)
	}
	t.Failures[o.Stage()]++
}

// Summary aggregates a whole run.
type Summary struct {
	RunID     string
	Direction Direction
	Started   time.Time
	Finished  time.Time

	Tokens []*TokenSummary

	// DirectoriesCreated counts directories created by the destination resolver
	DirectoriesCreated uint64
}

// Processed returns the number of files handled across all tokens.
func (s *Summary) Processed() int {
	n := 0
	for _, t := range s.Tokens {
		n += t.Processed
	}
	return n
}

// Moved returns the number of files moved across all tokens.
func (s *Summary) Moved() int {
	n := 0
	for _, t := range s.Tokens {
		n += t.Moved
	}
	return n
}

// Failed returns the number of failed files across all tokens.
func (s *Summary) Failed() int {
	n := 0
	for _, t := range s.Tokens {
		n += t.Failed
	}
	return n
}

// SkippedTokens returns the number of tokens that were not processed.
func (s *Summary) SkippedTokens() int {
	n := 0
	for _, t := range s.Tokens {
		if t.Skipped() {
			n++
		}
	}
	return n
}

// CatalogErrors returns the number of tokens whose stream failed.
func (s *Summary) CatalogErrors() int {
	n := 0
	for _, t := range s.Tokens {
		if t.CatalogErr != nil {
			n++
		}
	}
	return n
}

// Token returns the summary of the token named name, or nil.
func (s *Summary) Token(name string) *TokenSummary {
	for _, t := range s.Tokens {
		if t.Token.Name == name {
			return t
		}
	}
	return nil
}
