package emissions

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// stubClient scripts FetchPage responses and records every request it saw
type stubClient struct {
	mu       sync.Mutex
	fetch    func(req *QueryRequest) (*ResultPage, error)
	requests []*QueryRequest
}

func (s *stubClient) FetchPage(ctx context.Context, req *QueryRequest) (*ResultPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.requests = append(s.requests, req.Clone())
	s.mu.Unlock()
	return s.fetch(req)
}

func (s *stubClient) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *stubClient) request(i int) *QueryRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[i]
}

// emissionRec builds a record with the given service and emission value
func emissionRec(service, value string) EmissionRecord {
	return EmissionRecord{
		Service:                service,
		ComputedCarbonEmission: decimal.RequireFromString(value),
	}
}

// sequencedPage builds n records whose service names carry a running
// index so tests can assert arrival order across pages.
func sequencedPage(start, n int, next string) *ResultPage {
	items := make([]EmissionRecord, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, emissionRec(fmt.Sprintf("svc-%d", start+i), "1"))
	}
	return &ResultPage{
		Items:     items,
		RequestID: fmt.Sprintf("req-%d", start),
		NextPage:  next,
	}
}
