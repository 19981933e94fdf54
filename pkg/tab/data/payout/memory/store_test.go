package memory

import (
	"testing"

	"github.com/tabpay/tab-server/pkg/tab/data/payout/tests"
)

func TestPayoutMemoryStore(t *testing.T) {
	testStore := New()
	teardown := func() {
		testStore.(*store).reset()
	}
	tests.RunTests(t, testStore, teardown)
}
