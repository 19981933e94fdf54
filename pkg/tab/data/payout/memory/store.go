package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tabpay/tab-server/pkg/database/query"
	"github.com/tabpay/tab-server/pkg/tab/data/payout"
)

type store struct {
	mu      sync.Mutex
	records []*payout.Record
	last    uint64
}

func New() payout.Store {
	return &store{
		records: make([]*payout.Record, 0),
		last:    0,
	}
}

func (s *store) reset() {
	s.mu.Lock()
	s.records = make([]*payout.Record, 0)
	s.last = 0
	s.mu.Unlock()
}

// Put implements payout.Store.Put
func (s *store) Put(_ context.Context, data *payout.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.find(data.PayoutId); item != nil {
		return payout.ErrPayoutAlreadyExists
	}

	if data.DedupId != nil {
		for _, item := range s.records {
			if item.State.IsTerminal() {
				continue
			}
			if item.DedupId != nil && *item.DedupId == *data.DedupId {
				return payout.ErrPayoutAlreadyExists
			}
		}
	}

	s.last++
	data.Id = s.last
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}
	c := data.Clone()
	s.records = append(s.records, &c)

	return nil
}

// Get implements payout.Store.Get
func (s *store) Get(_ context.Context, payoutId string) (*payout.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.find(payoutId)
	if item == nil {
		return nil, payout.ErrPayoutNotFound
	}

	cloned := item.Clone()
	return &cloned, nil
}

// Update implements payout.Store.Update
func (s *store) Update(_ context.Context, records ...*payout.Record) error {
	for _, data := range records {
		if err := data.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// All records must exist before anything is written
	items := make([]*payout.Record, len(records))
	for i, data := range records {
		item := s.find(data.PayoutId)
		if item == nil {
			return payout.ErrPayoutNotFound
		}
		items[i] = item
	}

	for i, data := range records {
		data.Id = items[i].Id
		data.CopyTo(items[i])
	}

	return nil
}

// GetAllByFilter implements payout.Store.GetAllByFilter
func (s *store) GetAllByFilter(_ context.Context, filter payout.Filter, opts ...query.Option) ([]*payout.Record, error) {
	req, err := query.DefaultPaginationHandler(opts...)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]*payout.Record, 0)
	for _, item := range s.records {
		if !matches(item, filter) {
			continue
		}

		cursor := req.Cursor.ToUint64()
		if cursor > 0 {
			if req.SortBy == query.Ascending && item.Id <= cursor {
				continue
			}
			if req.SortBy == query.Descending && item.Id >= cursor {
				continue
			}
		}

		cloned := item.Clone()
		res = append(res, &cloned)
	}

	sort.Slice(res, func(i, j int) bool {
		if req.SortBy == query.Descending {
			return res[i].Id > res[j].Id
		}
		return res[i].Id < res[j].Id
	})

	if req.Limit > 0 && uint64(len(res)) > req.Limit {
		res = res[:req.Limit]
	}

	return res, nil
}

// Count implements payout.Store.Count
func (s *store) Count(_ context.Context, filter payout.Filter) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count uint64
	for _, item := range s.records {
		if matches(item, filter) {
			count++
		}
	}
	return count, nil
}

func matches(item *payout.Record, filter payout.Filter) bool {
	if len(filter.States) > 0 && !containsState(filter.States, item.State) {
		return false
	}
	if len(filter.PayoutIds) > 0 && !contains(filter.PayoutIds, item.PayoutId) {
		return false
	}
	if len(filter.PullPaymentIds) > 0 {
		if item.PullPaymentId == nil || !contains(filter.PullPaymentIds, *item.PullPaymentId) {
			return false
		}
	}
	if len(filter.MethodIds) > 0 && !contains(filter.MethodIds, item.MethodId) {
		return false
	}
	if len(filter.StoreIds) > 0 && !contains(filter.StoreIds, item.StoreId) {
		return false
	}
	if len(filter.DedupIds) > 0 {
		if item.DedupId == nil || !contains(filter.DedupIds, *item.DedupId) {
			return false
		}
	}
	if filter.CreatedAfter != nil && !item.CreatedAt.After(*filter.CreatedAfter) {
		return false
	}
	if filter.CreatedBefore != nil && !item.CreatedAt.Before(*filter.CreatedBefore) {
		return false
	}
	return true
}

func contains(set []string, val string) bool {
	for _, item := range set {
		if item == val {
			return true
		}
	}
	return false
}

func containsState(set []payout.State, val payout.State) bool {
	for _, item := range set {
		if item == val {
			return true
		}
	}
	return false
}

func (s *store) find(payoutId string) *payout.Record {
	for _, item := range s.records {
		if item.PayoutId == payoutId {
			return item
		}
	}
	return nil
}
