package pagination

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/catalog-audit/internal/testutil"
	"github.com/Sternrassler/catalog-audit/pkg/catalog"
	"github.com/Sternrassler/catalog-audit/pkg/client"
	"github.com/Sternrassler/catalog-audit/pkg/progress"
)

// stubFetcher serves fixed pages and records which pages were requested.
type stubFetcher struct {
	pages     [][]catalog.SKUID
	failPage  int
	requested []int
	sizes     []int
}

func (s *stubFetcher) ListSKUIDs(_ context.Context, page, pageSize int) ([]catalog.SKUID, error) {
	s.requested = append(s.requested, page)
	s.sizes = append(s.sizes, pageSize)
	if page == s.failPage {
		return nil, errors.New("connection reset")
	}
	if page > len(s.pages) {
		return nil, nil
	}
	return s.pages[page-1], nil
}

type pageRecorder struct {
	progress.Nop
	pages []int
	done  int
}

func (r *pageRecorder) PageFetched(page, _, _ int) { r.pages = append(r.pages, page) }
func (r *pageRecorder) PaginationDone(total int) { r.done = total }

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 500, cfg.PageSize)
}

func TestFetchAll_StopsAtFirstEmptyPage(t *testing.T) {
	f := &stubFetcher{pages: [][]catalog.SKUID{
		{"1", "2", "3"},
		{"4", "5"},
		{},
		{"6"}, // never reached
	}}
	rec := &pageRecorder{}

	ids, err := NewPaginator(f, DefaultConfig(), rec).FetchAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []catalog.SKUID{"1", "2", "3", "4", "5"}, ids)
	assert.Equal(t, []int{1, 2, 3}, f.requested)
	assert.Equal(t, []int{500, 500, 500}, f.sizes)
	assert.Equal(t, []int{1, 2}, rec.pages)
	assert.Equal(t, 5, rec.done)
}

func TestFetchAll_LengthIsSumOfPages(t *testing.T) {
	var pages [][]catalog.SKUID
	want := 0
	for i := 1; i <= 7; i++ {
		page := make([]catalog.SKUID, i)
		for j := range page {
			page[j] = catalog.SKUID(string(rune('a'+i)) + string(rune('a'+j)))
		}
		pages = append(pages, page)
		want += i
	}

	ids, err := NewPaginator(&stubFetcher{pages: pages}, Config{PageSize: 10}, nil).FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, want)
}

func TestFetchAll_EmptyListing(t *testing.T) {
	f := &stubFetcher{}

	ids, err := NewPaginator(f, DefaultConfig(), nil).FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, []int{1}, f.requested)
}

func TestFetchAll_PageFailureIsFatal(t *testing.T) {
	f := &stubFetcher{
		pages:    [][]catalog.SKUID{{"1"}, {"2"}, {"3"}},
		failPage: 2,
	}

	ids, err := NewPaginator(f, DefaultConfig(), nil).FetchAll(context.Background())
	require.Error(t, err)
	assert.Nil(t, ids)
	assert.True(t, errors.Is(err, ErrPaginationFailure))
	assert.Equal(t, []int{1, 2}, f.requested)
}

func TestFetchAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &stubFetcher{pages: [][]catalog.SKUID{{"1"}}}
	_, err := NewPaginator(f, DefaultConfig(), nil).FetchAll(ctx)
	assert.True(t, errors.Is(err, ErrPaginationFailure))
	assert.Empty(t, f.requested)
}

func TestFetchAll_WithCatalogClient(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetPages([]any{1, 2, 3}, []any{4, 5})
	// a transient listing failure is absorbed by the client's retry
	mock.SetListingErrors(2, testutil.NewServerErrorResponse())

	cfg := client.DefaultConfig("teststore", "key", "token")
	cfg.BaseURL = mock.URL()
	cfg.Retry = client.RetryConfig{MaxAttempts: 3}
	c, err := client.New(cfg)
	require.NoError(t, err)

	ids, err := NewPaginator(c, DefaultConfig(), nil).FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []catalog.SKUID{"1", "2", "3", "4", "5"}, ids)
	assert.Equal(t, 2, mock.RequestCount("page:2"))
	assert.Equal(t, 1, mock.RequestCount("page:3"))
	assert.Equal(t, 0, mock.RequestCount("page:4"))
}

func TestFetchAll_ListingExhaustedIsFatal(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetPages([]any{1})
	mock.SetListingErrors(1,
		testutil.NewServerErrorResponse(),
		testutil.NewServerErrorResponse(),
		testutil.NewServerErrorResponse(),
	)

	cfg := client.DefaultConfig("teststore", "key", "token")
	cfg.BaseURL = mock.URL()
	cfg.Retry = client.RetryConfig{MaxAttempts: 3}
	c, err := client.New(cfg)
	require.NoError(t, err)

	_, err = NewPaginator(c, DefaultConfig(), nil).FetchAll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPaginationFailure))
	assert.True(t, errors.Is(err, client.ErrRetryExhausted))
}

func TestFetchAll_SlowPageIsRetried(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetPages([]any{1, 2}, []any{3})
	mock.SetListingErrors(1, testutil.MockResponse{
		StatusCode: 200,
		Body:       `[1, 2]`,
		Delay:      300 * time.Millisecond,
	})

	cfg := client.DefaultConfig("teststore", "key", "token")
	cfg.BaseURL = mock.URL()
	cfg.Timeout = 100 * time.Millisecond
	cfg.Retry = client.RetryConfig{MaxAttempts: 3}
	c, err := client.New(cfg)
	require.NoError(t, err)

	ids, err := NewPaginator(c, DefaultConfig(), nil).FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []catalog.SKUID{"1", "2", "3"}, ids)
	assert.Equal(t, 2, mock.RequestCount("page:1"))
}
