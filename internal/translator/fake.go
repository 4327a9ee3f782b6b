package translator

import (
	"context"
	"fmt"
	"sync"
)

// FakeClient is an in-memory Client for tests. Respond decides the outcome of
// each call; by default every item is answered with Prefix + text.
type FakeClient struct {
	Prefix  string
	Respond func(call int, req Request) (Result, error)

	mu       sync.Mutex
	requests []Request
}

func (f *FakeClient) Submit(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	call := len(f.requests)
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.Respond != nil {
		return f.Respond(call, req)
	}
	return Echo(f.Prefix, req), nil
}

// Requests returns the requests received so far, in arrival order.
func (f *FakeClient) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// Echo answers every item of req with prefix + its text.
func Echo(prefix string, req Request) Result {
	out := make(Result, len(req.Items))
	for _, it := range req.Items {
		out[it.ID] = prefix + it.Text
	}
	return out
}

// IDs lists the item ids of req in order.
func IDs(req Request) []int {
	ids := make([]int, len(req.Items))
	for i, it := range req.Items {
		ids[i] = it.ID
	}
	return ids
}

func (r Request) String() string {
	return fmt.Sprintf("%s %s %v", r.Mode, r.TargetLanguage, IDs(r))
}
