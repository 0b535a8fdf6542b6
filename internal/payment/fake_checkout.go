package payment

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// FakeCheckoutProvider simulates the external checkout host for tests and
// local demos. Sessions start unpaid; MarkPaid stands in for the patient
// finishing checkout.
type FakeCheckoutProvider struct {
	mu   sync.Mutex
	paid map[string]bool

	// FailCreate makes CreateCheckoutSession fail, for exercising the
	// no-partial-state contract.
	FailCreate bool
}

func NewFakeCheckoutProvider() *FakeCheckoutProvider {
	return &FakeCheckoutProvider{paid: make(map[string]bool)}
}

func (f *FakeCheckoutProvider) CreateCheckoutSession(ctx context.Context, amountCents int64, description, reference string) (*CheckoutSession, error) {
	if f.FailCreate {
		return nil, errors.New("checkout host unavailable")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	id := "cs_fake_" + uuid.NewString()[:8]
	f.paid[id] = false
	return &CheckoutSession{
		ProviderID: id,
		URL:        "https://checkout.example.test/" + id,
	}, nil
}

func (f *FakeCheckoutProvider) VerifyCompleted(ctx context.Context, providerID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	paid, ok := f.paid[providerID]
	if !ok {
		return false, errors.New("unknown checkout session")
	}
	return paid, nil
}

// MarkPaid simulates the patient completing checkout externally.
func (f *FakeCheckoutProvider) MarkPaid(providerID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paid[providerID] = true
}
