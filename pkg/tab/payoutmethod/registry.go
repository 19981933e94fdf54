package payoutmethod

import (
	"sync"

	"github.com/pkg/errors"
)

// TopUpMethodId is reserved for engine-internal top-up reconciliation
// payouts and cannot be registered.
const TopUpMethodId = "topup"

var (
	ErrMethodReserved          = errors.New("payout method id is reserved")
	ErrMethodAlreadyRegistered = errors.New("payout method is already registered")
)

// Registry maps payout method ids to their handlers. Registration happens at
// startup; lookups are safe from any goroutine.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

func (r *Registry) Register(methodId string, handler Handler) error {
	if methodId == TopUpMethodId {
		return ErrMethodReserved
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handlers[methodId]; ok {
		return ErrMethodAlreadyRegistered
	}

	r.handlers[methodId] = handler
	return nil
}

func (r *Registry) Get(methodId string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[methodId]
	return handler, ok
}

// All returns a snapshot of the registered handlers by method id.
func (r *Registry) All() map[string]Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make(map[string]Handler, len(r.handlers))
	for methodId, handler := range r.handlers {
		res[methodId] = handler
	}
	return res
}
