package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tabpay/tab-server/pkg/database/query"
	"github.com/tabpay/tab-server/pkg/tab/data/pullpayment"
)

type store struct {
	mu      sync.Mutex
	records []*pullpayment.Record
	last    uint64
}

func New() pullpayment.Store {
	return &store{
		records: make([]*pullpayment.Record, 0),
		last:    0,
	}
}

func (s *store) reset() {
	s.mu.Lock()
	s.records = make([]*pullpayment.Record, 0)
	s.last = 0
	s.mu.Unlock()
}

// Put implements pullpayment.Store.Put
func (s *store) Put(_ context.Context, data *pullpayment.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.find(data.PullPaymentId); item != nil {
		return pullpayment.ErrPullPaymentAlreadyExists
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

// Get implements pullpayment.Store.Get
func (s *store) Get(_ context.Context, pullPaymentId string) (*pullpayment.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.find(pullPaymentId)
	if item == nil {
		return nil, pullpayment.ErrPullPaymentNotFound
	}

	cloned := item.Clone()
	return &cloned, nil
}

// GetBatch implements pullpayment.Store.GetBatch
func (s *store) GetBatch(_ context.Context, pullPaymentIds ...string) ([]*pullpayment.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]*pullpayment.Record, 0, len(pullPaymentIds))
	for _, id := range pullPaymentIds {
		if item := s.find(id); item != nil {
			cloned := item.Clone()
			res = append(res, &cloned)
		}
	}
	return res, nil
}

// Update implements pullpayment.Store.Update
func (s *store) Update(_ context.Context, data *pullpayment.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.find(data.PullPaymentId)
	if item == nil {
		return pullpayment.ErrPullPaymentNotFound
	}

	data.Id = item.Id
	data.CopyTo(item)

	return nil
}

// GetAllByStore implements pullpayment.Store.GetAllByStore
func (s *store) GetAllByStore(_ context.Context, storeId string, includeArchived bool, opts ...query.Option) ([]*pullpayment.Record, error) {
	req, err := query.DefaultPaginationHandler(opts...)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]*pullpayment.Record, 0)
	for _, item := range s.records {
		if item.StoreId != storeId {
			continue
		}
		if item.Archived && !includeArchived {
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

	if len(res) == 0 {
		return nil, pullpayment.ErrPullPaymentNotFound
	}

	return res, nil
}

func (s *store) find(pullPaymentId string) *pullpayment.Record {
	for _, item := range s.records {
		if item.PullPaymentId == pullPaymentId {
			return item
		}
	}
	return nil
}
