package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/apply-autopilot/internal/types"
)

// Store is the storage surface used by the server and the orchestrator.
// *DB and *MemoryStore implement it.
type Store interface {
	SaveListings(ctx context.Context, listings []types.Listing) (int, error)
	GetListing(ctx context.Context, id uuid.UUID) (*ListingRow, error)
	ListListings(ctx context.Context, f ListingFilter) (*ListingPage, error)
	ListingStats(ctx context.Context) (*ListingStats, error)
	RecordApplications(ctx context.Context, taskID, platform string, results []types.ApplicationResult) error
	ListApplications(ctx context.Context, taskID string) ([]ApplicationRow, error)
	GetApplicationProfile(ctx context.Context, userID uuid.UUID) (types.Profile, error)
	SaveApplicationProfile(ctx context.Context, userID uuid.UUID, p types.Profile) error
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*MemoryStore)(nil)
)

// MemoryStore keeps everything in process memory. It is used when no
// DATABASE_URL is configured and in tests.
type MemoryStore struct {
	mu           sync.RWMutex
	listings     []ListingRow
	keys         map[string]bool
	applications []ApplicationRow
	profiles     map[uuid.UUID]types.Profile
	now          func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys:     make(map[string]bool),
		profiles: make(map[uuid.UUID]types.Profile),
		now:      time.Now,
	}
}

func (m *MemoryStore) SaveListings(ctx context.Context, listings []types.Listing) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := 0
	for _, l := range dedupe(listings) {
		if m.keys[l.Key()] {
			continue
		}
		m.keys[l.Key()] = true
		l.Skills = append([]string{}, l.Skills...)
		m.listings = append(m.listings, ListingRow{ID: uuid.New(), Listing: l, CreatedAt: m.now()})
		stored++
	}
	return stored, nil
}

func (m *MemoryStore) GetListing(ctx context.Context, id uuid.UUID) (*ListingRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, l := range m.listings {
		if l.ID == id {
			out := l
			return &out, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ListListings(ctx context.Context, f ListingFilter) (*ListingPage, error) {
	f = f.normalize()
	m.mu.RLock()
	var matched []ListingRow
	// newest first
	for i := len(m.listings) - 1; i >= 0; i-- {
		if f.matches(m.listings[i]) {
			matched = append(matched, m.listings[i])
		}
	}
	m.mu.RUnlock()

	total := len(matched)
	start := min(f.offset(), total)
	end := min(start+f.PerPage, total)
	return newListingPage(matched[start:end], total, f), nil
}

func (f ListingFilter) matches(l ListingRow) bool {
	contains := func(field, want string) bool {
		return want == "" || strings.Contains(strings.ToLower(field), strings.ToLower(want))
	}
	return (f.Platform == "" || l.Platform == f.Platform) &&
		contains(l.Organization, f.Organization) &&
		contains(l.Title, f.Title) &&
		contains(l.Location, f.Location) &&
		contains(l.Category, f.Category)
}

func (m *MemoryStore) ListingStats(ctx context.Context) (*ListingStats, error) {
	m.mu.RLock()
	platforms := map[string]int{}
	categories := map[string]int{}
	orgs := map[string]int{}
	for _, l := range m.listings {
		platforms[l.Platform]++
		categories[l.Category]++
		orgs[l.Organization]++
	}
	total := len(m.listings)
	m.mu.RUnlock()

	top := rank(orgs)
	if len(top) > TopOrganizationLimit {
		top = top[:TopOrganizationLimit]
	}
	return &ListingStats{
		Total:            total,
		ByPlatform:       rank(platforms),
		ByCategory:       rank(categories),
		TopOrganizations: top,
	}, nil
}

// rank orders counts descending, ties by key.
func rank(counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	for k, n := range counts {
		out = append(out, Count{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func (m *MemoryStore) RecordApplications(ctx context.Context, taskID, platform string, results []types.ApplicationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range results {
		m.applications = append(m.applications, ApplicationRow{
			ID:                uuid.New(),
			TaskID:            taskID,
			Platform:          platform,
			ApplicationResult: r,
		})
	}
	return nil
}

func (m *MemoryStore) ListApplications(ctx context.Context, taskID string) ([]ApplicationRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []ApplicationRow{}
	for _, a := range m.applications {
		if a.TaskID == taskID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MemoryStore) GetApplicationProfile(ctx context.Context, userID uuid.UUID) (types.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profiles[userID], nil
}

func (m *MemoryStore) SaveApplicationProfile(ctx context.Context, userID uuid.UUID, p types.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[userID] = p
	return nil
}
