package backend

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// SearchLimit is how many hits of each kind the search box shows
const SearchLimit = 5

// Search runs the public catalog search. A blank query returns no hits
// without calling the backend.
func (c *Client) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &SearchResult{}, nil
	}
	if limit <= 0 {
		limit = SearchLimit
	}

	q := url.Values{"q": {query}, "limit": {strconv.Itoa(limit)}}
	var out SearchResult
	if err := c.getJSON(ctx, "/public/search", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Typeahead runs searches for one input box. Starting a search cancels the
// one still in flight, whose caller gets context.Canceled.
type Typeahead struct {
	client *Client

	mu     sync.Mutex
	cancel context.CancelFunc
	seq    uint64
}

func NewTypeahead(client *Client) *Typeahead {
	return &Typeahead{client: client}
}

func (t *Typeahead) Search(ctx context.Context, query string) (*SearchResult, error) {
	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.cancel = cancel
	t.seq++
	seq := t.seq
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		if t.seq == seq {
			t.cancel = nil
		}
		t.mu.Unlock()
		cancel()
	}()

	res, err := t.client.Search(ctx, query, SearchLimit)
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return res, err
}
