package memory

import (
	"testing"

	"github.com/tabpay/tab-server/pkg/tab/data/pullpayment/tests"
)

func TestPullPaymentMemoryStore(t *testing.T) {
	testStore := New()
	teardown := func() {
		testStore.(*store).reset()
	}
	tests.RunTests(t, testStore, teardown)
}
