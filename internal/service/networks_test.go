package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gamaccess/gamaccess/internal/model"
)

// fakeNetworkService counts fetches and serves a fixed list.
type fakeNetworkService struct {
	networks []model.Network
	err      error
	calls    int
}

func (f *fakeNetworkService) GetAllNetworks(ctx context.Context) ([]model.Network, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.networks, nil
}

func strPtr(s string) *string { return &s }

func testNetworks() []model.Network {
	return []model.Network{
		{NetworkCode: "100", DisplayName: strPtr("Primary")},
		{NetworkCode: "200", DisplayName: nil},
	}
}

func TestNetworkLister_CachesWithinTTL(t *testing.T) {
	t.Parallel()

	svc := &fakeNetworkService{networks: testNetworks()}
	lister := NewNetworkLister(svc, time.Hour, testLogger(), nil)
	ctx := context.Background()

	first, err := lister.List(ctx, false)
	if err != nil {
		t.Fatalf("first List() error = %v", err)
	}
	second, err := lister.List(ctx, false)
	if err != nil {
		t.Fatalf("second List() error = %v", err)
	}

	if svc.calls != 1 {
		t.Errorf("remote calls = %d, want 1", svc.calls)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Errorf("lengths = %d, %d, want 2, 2", len(first), len(second))
	}
}

func TestNetworkLister_ForceRefreshBypassesCache(t *testing.T) {
	t.Parallel()

	svc := &fakeNetworkService{networks: testNetworks()}
	lister := NewNetworkLister(svc, time.Hour, testLogger(), nil)
	ctx := context.Background()

	if _, err := lister.List(ctx, false); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if _, err := lister.List(ctx, true); err != nil {
		t.Fatalf("List(force) error = %v", err)
	}

	if svc.calls != 2 {
		t.Errorf("remote calls = %d, want 2", svc.calls)
	}
}

func TestNetworkLister_TTLExpiry(t *testing.T) {
	t.Parallel()

	svc := &fakeNetworkService{networks: testNetworks()}
	lister := NewNetworkLister(svc, time.Hour, testLogger(), nil)

	current := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	lister.now = func() time.Time { return current }
	ctx := context.Background()

	if _, err := lister.List(ctx, false); err != nil {
		t.Fatalf("List() error = %v", err)
	}

	// Just inside the TTL: still cached.
	current = current.Add(59 * time.Minute)
	if _, err := lister.List(ctx, false); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if svc.calls != 1 {
		t.Fatalf("remote calls = %d, want 1 before expiry", svc.calls)
	}

	// At the TTL boundary the entry is stale.
	current = current.Add(time.Minute)
	if _, err := lister.List(ctx, false); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if svc.calls != 2 {
		t.Errorf("remote calls = %d, want 2 after expiry", svc.calls)
	}
}

func TestNetworkLister_FetchErrorLeavesCacheUntouched(t *testing.T) {
	t.Parallel()

	svc := &fakeNetworkService{networks: testNetworks()}
	lister := NewNetworkLister(svc, time.Hour, testLogger(), nil)
	ctx := context.Background()

	if _, err := lister.List(ctx, false); err != nil {
		t.Fatalf("List() error = %v", err)
	}

	svc.err = errors.New("gam unavailable")
	if _, err := lister.List(ctx, true); err == nil {
		t.Fatal("List(force) expected error")
	}

	// The previous entry must still serve non-forced reads.
	svc.err = nil
	cached, err := lister.List(ctx, false)
	if err != nil {
		t.Fatalf("List() after failed refresh error = %v", err)
	}
	if len(cached) != 2 {
		t.Errorf("cached length = %d, want 2", len(cached))
	}
	if svc.calls != 2 {
		t.Errorf("remote calls = %d, want 2 (failed refresh counts, cached read does not)", svc.calls)
	}
}

func TestNetworkLister_EmptyListIsCached(t *testing.T) {
	t.Parallel()

	svc := &fakeNetworkService{networks: []model.Network{}}
	lister := NewNetworkLister(svc, time.Hour, testLogger(), nil)
	ctx := context.Background()

	first, err := lister.List(ctx, false)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(first) != 0 {
		t.Fatalf("len = %d, want 0", len(first))
	}

	if _, err := lister.List(ctx, false); err != nil {
		t.Fatalf("second List() error = %v", err)
	}
	if svc.calls != 1 {
		t.Errorf("remote calls = %d, want 1 (empty list is a valid cache entry)", svc.calls)
	}
}
