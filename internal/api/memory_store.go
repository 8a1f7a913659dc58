package api

import (
	"context"
	"sync"

	"github.com/causalfunnel/cartsurvey/internal/models"
)

// MemoryStore is a mutex-guarded in-memory Store. It backs the test suite
// and the zero-config development server.
type MemoryStore struct {
	mu        sync.RWMutex
	stores    map[string]*models.StoreRecord
	responses []*models.Response
	customers map[string]map[string]*models.Customer // shop -> customer_id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stores:    map[string]*models.StoreRecord{},
		responses: []*models.Response{},
		customers: map[string]map[string]*models.Customer{},
	}
}

func (s *MemoryStore) GetStore(_ context.Context, shop string) (*models.StoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.stores[shop]
	if !ok {
		return nil, nil
	}
	cp := cloneStoreRecord(rec)
	return cp, nil
}

func (s *MemoryStore) UpsertStore(_ context.Context, rec *models.StoreRecord) (*models.StoreRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneStoreRecord(rec)
	s.stores[rec.Shop] = cp
	return cloneStoreRecord(cp), nil
}

func (s *MemoryStore) DeleteStore(_ context.Context, shop string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stores, shop)
	delete(s.customers, shop)
	return nil
}

func (s *MemoryStore) AddResponse(_ context.Context, resp *models.Response) (*models.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneResponse(resp)
	s.responses = append(s.responses, cp)
	return cloneResponse(cp), nil
}

func (s *MemoryStore) ListResponsesByShop(_ context.Context, shop string) ([]*models.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Response{}
	// newest first: insertion order reversed, responses are append-only
	for i := len(s.responses) - 1; i >= 0; i-- {
		if s.responses[i].Shop == shop {
			out = append(out, cloneResponse(s.responses[i]))
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteResponsesByShop(_ context.Context, shop string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]*models.Response, 0, len(s.responses))
	removed := 0
	for _, r := range s.responses {
		if r.Shop == shop {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.responses = kept
	return removed, nil
}

func (s *MemoryStore) UpsertCustomer(_ context.Context, c *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.customers[c.Shop] == nil {
		s.customers[c.Shop] = map[string]*models.Customer{}
	}
	cp := *c
	s.customers[c.Shop][c.CustomerID] = &cp
	return nil
}

func (s *MemoryStore) GetCustomer(_ context.Context, shop, customerID string) (*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[shop][customerID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) DeleteCustomerData(_ context.Context, shop, customerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	if _, ok := s.customers[shop][customerID]; ok {
		delete(s.customers[shop], customerID)
		removed++
	}
	kept := make([]*models.Response, 0, len(s.responses))
	for _, r := range s.responses {
		if r.Shop == shop && r.CustomerID == customerID {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.responses = kept
	return removed, nil
}

func (s *MemoryStore) Ping(context.Context) error  { return nil }
func (s *MemoryStore) Close(context.Context) error { return nil }

// clone helpers keep callers from mutating stored documents through shared
// slices or the embedded survey pointer.

func cloneStoreRecord(rec *models.StoreRecord) *models.StoreRecord {
	if rec == nil {
		return nil
	}
	cp := *rec
	if rec.Survey != nil {
		sv := *rec.Survey
		sv.Questions = cloneQuestions(rec.Survey.Questions)
		cp.Survey = &sv
	}
	return &cp
}

func cloneQuestions(qs []models.Question) []models.Question {
	out := make([]models.Question, len(qs))
	for i, q := range qs {
		cq := q
		cq.Options = append([]string(nil), q.Options...)
		if q.Min != nil {
			mn := *q.Min
			cq.Min = &mn
		}
		if q.Max != nil {
			mx := *q.Max
			cq.Max = &mx
		}
		out[i] = cq
	}
	return out
}

func cloneResponse(r *models.Response) *models.Response {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Answers = append([]models.Answer(nil), r.Answers...)
	return &cp
}
