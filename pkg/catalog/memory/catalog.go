package memory

import (
	"context"
	"iter"
	"sort"
	"strings"
	"sync"

	"github.com/marmos91/tokenmig/pkg/catalog"
)

// MemoryCatalog is a static catalog held in memory.
//
// It records how often each token's files were requested, which tests use
// to check that unselected tokens are never streamed.
type MemoryCatalog struct {
	mu sync.Mutex

	tokens []catalog.Token
	files  map[int64][]string
	errs   map[int64]streamError

	listErr  error
	requests map[int64]int
}

type streamError struct {
	after int
	err   error
}

// NewMemoryCatalog creates an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		files:    make(map[int64][]string),
		errs:     make(map[int64]streamError),
		requests: make(map[int64]int),
	}
}

// AddToken registers a token with the given file identifiers.
func (c *MemoryCatalog) AddToken(id int64, name string, fileIDs ...string) *MemoryCatalog {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tokens = append(c.tokens, catalog.Token{ID: id, Name: name})
	sort.Slice(c.tokens, func(i, j int) bool { return c.tokens[i].ID < c.tokens[j].ID })
	c.files[id] = append(c.files[id], fileIDs...)
	return c
}

// FailListing makes ListTokens return err.
func (c *MemoryCatalog) FailListing(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listErr = err
}

// FailStream makes the stream of tokenID yield err after the first n records.
func (c *MemoryCatalog) FailStream(tokenID int64, n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[tokenID] = streamError{after: n, err: err}
}

// Requests returns how many times FilesForToken was called for tokenID.
func (c *MemoryCatalog) Requests(tokenID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[tokenID]
}

func (c *MemoryCatalog) ListTokens(ctx context.Context) ([]catalog.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listErr != nil {
		return nil, c.listErr
	}
	return append([]catalog.Token(nil), c.tokens...), nil
}

func (c *MemoryCatalog) FilesForToken(ctx context.Context, tokenID int64) iter.Seq2[catalog.FileRecord, error] {
	c.mu.Lock()
	c.requests[tokenID]++
	ids := append([]string(nil), c.files[tokenID]...)
	failure, hasFailure := c.errs[tokenID]
	c.mu.Unlock()

	return func(yield func(catalog.FileRecord, error) bool) {
		for i, id := range ids {
			if hasFailure && i == failure.after {
				yield(catalog.FileRecord{}, failure.err)
				return
			}
			if err := ctx.Err(); err != nil {
				yield(catalog.FileRecord{}, err)
				return
			}
			if strings.TrimSpace(id) == "" {
				continue
			}
			if !yield(catalog.FileRecord{ID: id}, nil) {
				return
			}
		}
		if hasFailure && failure.after >= len(ids) {
			yield(catalog.FileRecord{}, failure.err)
		}
	}
}

func (c *MemoryCatalog) Close() error {
	return nil
}

var _ catalog.Catalog = (*MemoryCatalog)(nil)
