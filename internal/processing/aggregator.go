package processing

import (
	"sync"

	"fridgecam-go/internal/types"
)

// Aggregator keeps a bounded window of recent results for the UI and counts
// how often each byte order was picked.
type Aggregator struct {
	mu      sync.Mutex
	limit   int
	results []types.Result
	orders  map[string]int
}

func NewAggregator(limit int) *Aggregator {
	if limit < 1 {
		limit = 1
	}
	return &Aggregator{
		limit:  limit,
		orders: make(map[string]int),
	}
}

func (a *Aggregator) Add(result types.Result) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if result.ByteOrder != "" {
		a.orders[result.ByteOrder]++
	}
	a.results = append(a.results, result)
	if len(a.results) > a.limit {
		a.results = a.results[len(a.results)-a.limit:]
	}
}

func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.results)
}

func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = nil
	a.orders = make(map[string]int)
}

func (a *Aggregator) SnapshotCopy() types.UISnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	results := make([]types.Result, len(a.results))
	copy(results, a.results)
	orders := make(map[string]int, len(a.orders))
	for k, v := range a.orders {
		orders[k] = v
	}
	return types.UISnapshot{
		Type:    "snapshot",
		Results: results,
		Orders:  orders,
	}
}
