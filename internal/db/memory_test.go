package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/apply-autopilot/internal/types"
)

func listing(platform, id, title, org, location, category string) types.Listing {
	return types.Listing{
		Platform:     platform,
		ExternalID:   id,
		Title:        title,
		Organization: org,
		Location:     location,
		Category:     category,
		Skills:       []string{"Go"},
		ExtractedAt:  time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	}
}

func seeded(t *testing.T) *MemoryStore {
	t.Helper()
	m := NewMemoryStore()
	n, err := m.SaveListings(context.Background(), []types.Listing{
		listing("linkedin", "1", "Backend Intern", "Acme", "Pune", "backend"),
		listing("linkedin", "2", "Frontend Intern", "Acme", "Remote", "frontend"),
		listing("internshala", "1", "Web Development", "Zeta Studio", "Work from home", "web-development"),
		listing("internshala", "9", "Data Science", "Globex", "Bangalore", "data-science"),
	})
	require.NoError(t, err)
	require.Equal(t, 4, n)
	return m
}

func TestMemoryStore_SaveListingsDeduplicates(t *testing.T) {
	m := seeded(t)
	ctx := context.Background()

	n, err := m.SaveListings(ctx, []types.Listing{
		listing("linkedin", "1", "Backend Intern", "Acme", "Pune", "backend"),
		listing("linkedin", "3", "SRE Intern", "Initech", "Pune", "backend"),
		listing("linkedin", "3", "SRE Intern", "Initech", "Pune", "backend"),
		listing("linkedin", "", "No id", "Nobody", "", ""),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	page, err := m.ListListings(ctx, ListingFilter{})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
}

func TestMemoryStore_ListListings(t *testing.T) {
	m := seeded(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter ListingFilter
		want   []string
	}{
		{"all newest first", ListingFilter{}, []string{"Data Science", "Web Development", "Frontend Intern", "Backend Intern"}},
		{"platform exact", ListingFilter{Platform: "linkedin"}, []string{"Frontend Intern", "Backend Intern"}},
		{"organization substring", ListingFilter{Organization: "acm"}, []string{"Frontend Intern", "Backend Intern"}},
		{"title substring", ListingFilter{Title: "INTERN"}, []string{"Frontend Intern", "Backend Intern"}},
		{"location", ListingFilter{Location: "home"}, []string{"Web Development"}},
		{"category", ListingFilter{Category: "data"}, []string{"Data Science"}},
		{"combined", ListingFilter{Platform: "linkedin", Location: "pune"}, []string{"Backend Intern"}},
		{"no match", ListingFilter{Platform: "unstop"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := m.ListListings(ctx, tt.filter)
			require.NoError(t, err)
			var got []string
			for _, l := range page.Listings {
				got = append(got, l.Title)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want), page.Total)
			assert.NotNil(t, page.Listings)
		})
	}
}

func TestMemoryStore_Pagination(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	var batch []types.Listing
	for i := 0; i < 45; i++ {
		batch = append(batch, listing("linkedin", fmt.Sprint(i), fmt.Sprintf("Role %d", i), "Org", "", ""))
	}
	_, err := m.SaveListings(ctx, batch)
	require.NoError(t, err)

	page, err := m.ListListings(ctx, ListingFilter{Page: 3})
	require.NoError(t, err)
	assert.Equal(t, 45, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, DefaultPerPage, page.PerPage)
	assert.Len(t, page.Listings, 5)

	page, err = m.ListListings(ctx, ListingFilter{Page: 9, PerPage: 1000})
	require.NoError(t, err)
	assert.Equal(t, MaxPerPage, page.PerPage)
	assert.Empty(t, page.Listings)
}

func TestMemoryStore_GetListing(t *testing.T) {
	m := seeded(t)
	ctx := context.Background()

	page, err := m.ListListings(ctx, ListingFilter{PerPage: 1})
	require.NoError(t, err)
	require.Len(t, page.Listings, 1)

	got, err := m.GetListing(ctx, page.Listings[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Data Science", got.Title)

	missing, err := m.GetListing(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryStore_ListingStats(t *testing.T) {
	m := seeded(t)

	stats, err := m.ListingStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, []Count{{Key: "internshala", Count: 2}, {Key: "linkedin", Count: 2}}, stats.ByPlatform)
	assert.Equal(t, Count{Key: "Acme", Count: 2}, stats.TopOrganizations[0])
	assert.Len(t, stats.ByCategory, 4)
}

func TestMemoryStore_ApplicationsAndProfiles(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.RecordApplications(ctx, "task_1", "linkedin", []types.ApplicationResult{
		{ListingID: "1", Title: "Backend Intern", Succeeded: true, Reason: "Applied"},
		{ListingID: "2", Title: "Frontend Intern", Reason: "No quick-apply option for this listing"},
	}))
	apps, err := m.ListApplications(ctx, "task_1")
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "linkedin", apps[0].Platform)
	assert.True(t, apps[0].Succeeded)

	none, err := m.ListApplications(ctx, "task_2")
	require.NoError(t, err)
	assert.Empty(t, none)

	user := uuid.New()
	p, err := m.GetApplicationProfile(ctx, user)
	require.NoError(t, err)
	assert.True(t, p.IsEmpty())

	want := types.Profile{FullName: "Asha Rao", Phone: "+91 98765 43210"}
	require.NoError(t, m.SaveApplicationProfile(ctx, user, want))
	p, err = m.GetApplicationProfile(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, want, p)
}

func TestMemoryStore_ApplicationsKeepRecordOrder(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	at := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	var results []types.ApplicationResult
	for i := 0; i < 20; i++ {
		results = append(results, types.ApplicationResult{ListingID: fmt.Sprintf("%02d", i), AttemptedAt: at})
	}
	require.NoError(t, m.RecordApplications(ctx, "task_1", "internshala", results))

	apps, err := m.ListApplications(ctx, "task_1")
	require.NoError(t, err)
	require.Len(t, apps, 20)
	for i, a := range apps {
		assert.Equal(t, fmt.Sprintf("%02d", i), a.ListingID)
	}
}

func TestListingFilterWhere(t *testing.T) {
	where, args := ListingFilter{}.where()
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = ListingFilter{Platform: "linkedin", Title: "intern", Location: "pune"}.where()
	assert.Equal(t, " WHERE platform = $1 AND title ILIKE $2 AND location ILIKE $3", where)
	assert.Equal(t, []any{"linkedin", "%intern%", "%pune%"}, args)
}

func TestStringArray(t *testing.T) {
	var a StringArray
	require.NoError(t, a.Scan([]byte(`["Go","SQL"]`)))
	assert.Equal(t, StringArray{"Go", "SQL"}, a)
	require.NoError(t, a.Scan(`["Rust"]`))
	assert.Equal(t, StringArray{"Rust"}, a)
	require.NoError(t, a.Scan(nil))
	assert.Equal(t, StringArray{}, a)
	assert.Error(t, a.Scan(42))

	v, err := StringArray(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)
}
