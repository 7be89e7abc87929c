package service

import (
	"context"
	"encoding/json"
	"sync"

	"edulycee-client/internal/gateway"
)

type fakeDoer struct {
	mu       sync.Mutex
	requests []gateway.Request
	respond  func(r gateway.Request) (interface{}, error)
}

func (f *fakeDoer) Do(ctx context.Context, r gateway.Request, out interface{}) error {
	f.mu.Lock()
	f.requests = append(f.requests, r)
	respond := f.respond
	f.mu.Unlock()

	if respond == nil {
		return nil
	}
	res, err := respond(r)
	if err != nil {
		return err
	}
	if out == nil || res == nil {
		return nil
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (f *fakeDoer) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, r.Method+" "+r.Path)
	}
	return out
}

func (f *fakeDoer) last() gateway.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}
