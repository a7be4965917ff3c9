// Package testutil provides testing utilities for the catalog audit.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	listingPath = "/api/catalog_system/pvt/sku/stockkeepingunitids"
	detailPath  = "/api/catalog_system/pvt/sku/stockkeepingunitbyid/"
)

// MockResponse defines one canned response of the mock catalog.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockCatalog is a configurable mock catalog API for testing.
//
// Listing pages are served by page number; a page beyond the configured
// ones returns an empty array. Detail responses are served per SKU as a
// sequence: attempt n gets response n, and the last response repeats.
type MockCatalog struct {
	server *httptest.Server

	mu            sync.RWMutex
	pages         [][]json.RawMessage
	listingErrors map[int][]MockResponse
	details       map[string][]MockResponse

	// Tracking
	requests          map[string]int
	pageSizes         []int
	inflight          int
	maxInflight       int
	LastRequestHeader http.Header
}

// NewMockCatalog creates and starts a new mock catalog server.
func NewMockCatalog() *MockCatalog {
	mock := &MockCatalog{
		listingErrors: make(map[int][]MockResponse),
		details:       make(map[string][]MockResponse),
		requests:      make(map[string]int),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// SetPages configures the listing pages. Each element is encoded as JSON,
// so ints and strings can be mixed.
func (m *MockCatalog) SetPages(pages ...[]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = m.pages[:0]
	for _, page := range pages {
		raw := make([]json.RawMessage, 0, len(page))
		for _, id := range page {
			b, _ := json.Marshal(id)
			raw = append(raw, b)
		}
		m.pages = append(m.pages, raw)
	}
}

// SetListingErrors makes the given page answer with the responses in order
// before falling back to the configured page content.
func (m *MockCatalog) SetListingErrors(page int, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listingErrors[page] = responses
}

// SetDetail configures the response sequence for one SKU.
func (m *MockCatalog) SetDetail(skuID string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.details[skuID] = responses
}

// SetDetailJSON configures a single 200 response for one SKU.
func (m *MockCatalog) SetDetailJSON(skuID, body string) {
	m.SetDetail(skuID, NewOKResponse(body))
}

// RequestCount returns the number of requests made to a listing page
// ("page:N") or a SKU detail ("sku:ID").
func (m *MockCatalog) RequestCount(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests[key]
}

// TotalRequests returns the number of requests made to the server.
func (m *MockCatalog) TotalRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.requests {
		total += n
	}
	return total
}

// PageSizes returns the pageSize query value of every listing request.
func (m *MockCatalog) PageSizes() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.pageSizes...)
}

// MaxInflight returns the highest number of concurrent detail requests seen.
func (m *MockCatalog) MaxInflight() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxInflight
}

// Header returns the headers of the most recent request.
func (m *MockCatalog) Header() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader.Clone()
}

func (m *MockCatalog) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == listingPath:
		m.handleListing(w, r)
	case strings.HasPrefix(r.URL.Path, detailPath):
		m.handleDetail(w, r, strings.TrimPrefix(r.URL.Path, detailPath))
	default:
		http.NotFound(w, r)
	}
}

func (m *MockCatalog) handleListing(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		http.Error(w, `{"error":"invalid page"}`, http.StatusBadRequest)
		return
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	key := "page:" + strconv.Itoa(page)
	m.mu.Lock()
	m.requests[key]++
	n := m.requests[key]
	m.pageSizes = append(m.pageSizes, pageSize)
	m.LastRequestHeader = r.Header.Clone()
	var injected *MockResponse
	if errs := m.listingErrors[page]; n <= len(errs) {
		injected = &errs[n-1]
	}
	var body []json.RawMessage
	if page <= len(m.pages) {
		body = m.pages[page-1]
	}
	m.mu.Unlock()

	if injected != nil {
		writeResponse(w, *injected)
		return
	}
	if body == nil {
		body = []json.RawMessage{}
	}
	b, _ := json.Marshal(body)
	writeResponse(w, NewOKResponse(string(b)))
}

func (m *MockCatalog) handleDetail(w http.ResponseWriter, r *http.Request, skuID string) {
	key := "sku:" + skuID
	m.mu.Lock()
	m.requests[key]++
	n := m.requests[key]
	m.LastRequestHeader = r.Header.Clone()
	m.inflight++
	if m.inflight > m.maxInflight {
		m.maxInflight = m.inflight
	}
	seq := m.details[skuID]
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inflight--
		m.mu.Unlock()
	}()

	if len(seq) == 0 {
		writeResponse(w, NewNotFoundResponse())
		return
	}
	if n > len(seq) {
		n = len(seq)
	}
	writeResponse(w, seq[n-1])
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewOKResponse creates a 200 response with the given JSON body.
func NewOKResponse(body string) MockResponse {
	return MockResponse{StatusCode: http.StatusOK, Body: body}
}

// NewServerErrorResponse creates a 503 Service Unavailable response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       `{"error": "service unavailable"}`,
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"error": "not found"}`,
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "rate limit exceeded"}`,
	}
}
