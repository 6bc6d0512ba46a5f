package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	httpclient "github.com/pweiskircher/buganize/internal/http"
	"github.com/pweiskircher/buganize/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []any
}

type fakeTracker struct {
	t        *testing.T
	server   *httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
	respond  func(req recordedRequest) (int, string)
}

func newFakeTracker(t *testing.T, respond func(req recordedRequest) (int, string)) *fakeTracker {
	t.Helper()

	fake := &fakeTracker{t: t, respond: respond}
	fake.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var body []any
		require.NoError(t, json.Unmarshal(payload, &body))

		recorded := recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		}
		fake.mu.Lock()
		fake.requests = append(fake.requests, recorded)
		fake.mu.Unlock()

		status, response := fake.respond(recorded)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(fake.server.Close)
	return fake
}

func (f *fakeTracker) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func (f *fakeTracker) client(t *testing.T, mutate func(*ClientOptions)) *Client {
	t.Helper()

	options := ClientOptions{
		BaseURL:      f.server.URL + "/action",
		RetryOptions: httpclient.Options{MaxAttempts: 1, Timeout: 5 * time.Second},
		UserAgent:    "buganize-test",
	}
	if mutate != nil {
		mutate(&options)
	}
	client, err := NewClient(options)
	require.NoError(t, err)
	return client
}

func issueEntry(id int64, title string) []any {
	entry := make([]any, 48)
	entry[1] = id
	details := make([]any, 31)
	details[2] = 1
	details[3] = 2
	details[5] = title
	entry[2] = details
	return entry
}

func encode(t *testing.T, value any) string {
	t.Helper()

	payload, err := json.Marshal(value)
	require.NoError(t, err)
	return ")]}'\n" + string(payload)
}

func searchResponse(t *testing.T, token any, total int, entries ...[]any) string {
	items := make([]any, 0, len(entries))
	for _, entry := range entries {
		items = append(items, entry)
	}
	return encode(t, []any{[]any{"b.IssueSearchResponse", nil, nil, nil, nil, nil, []any{items, token, total}}})
}

func batchResponse(t *testing.T, ids ...int64) string {
	items := make([]any, 0, len(ids))
	for _, id := range ids {
		items = append(items, issueEntry(id, "batch"))
	}
	return encode(t, []any{[]any{"b.BatchGetIssuesResponse", nil, []any{items}}})
}

func TestSearchBuildsPositionalRequest(t *testing.T) {
	t.Parallel()

	fake := newFakeTracker(t, func(req recordedRequest) (int, string) {
		return http.StatusOK, searchResponse(t, "tok-2", 120, issueEntry(1, "first"), issueEntry(2, "second"))
	})
	client := fake.client(t, nil)

	result, err := client.Search(context.Background(), SearchRequest{Query: "status:open", PageSize: 50})
	require.NoError(t, err)

	require.Len(t, result.Issues, 2)
	assert.Equal(t, "first", result.Issues[0].Title)
	assert.Equal(t, int64(120), result.TotalCount)
	assert.Equal(t, "tok-2", result.NextPageToken)
	assert.Equal(t, "status:open", result.Query)
	assert.Equal(t, 50, result.PageSize)

	requests := fake.recorded()
	require.Len(t, requests, 1)
	req := requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/action/issues/list", req.Path)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, fake.server.URL, req.Header.Get("Origin"))
	assert.Equal(t, fake.server.URL+"/", req.Header.Get("Referer"))
	assert.Equal(t, "buganize-test", req.Header.Get("User-Agent"))
	assert.Equal(t, []any{nil, nil, nil, nil, nil, nil, []any{"status:open", nil, float64(50)}}, req.Body)
}

func TestSearchSendsTrackerFilterAndPageToken(t *testing.T) {
	t.Parallel()

	fake := newFakeTracker(t, func(req recordedRequest) (int, string) {
		return http.StatusOK, searchResponse(t, nil, 0)
	})
	client := fake.client(t, func(options *ClientOptions) {
		options.TrackerIDs = []string{"157", "183"}
	})

	_, err := client.Search(context.Background(), SearchRequest{Query: "q", PageSize: 25, PageToken: "abc"})
	require.NoError(t, err)

	requests := fake.recorded()
	require.Len(t, requests, 1)
	assert.Equal(t, []any{"157", "183"}, requests[0].Body[5])
	assert.Equal(t, []any{"q", nil, float64(25), "abc"}, requests[0].Body[6])
}

func TestSearchRejectsInvalidInputWithoutRequest(t *testing.T) {
	t.Parallel()

	fake := newFakeTracker(t, func(req recordedRequest) (int, string) {
		return http.StatusOK, searchResponse(t, nil, 0)
	})
	client := fake.client(t, nil)

	_, err := client.Search(context.Background(), SearchRequest{Query: "   "})
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrorCodeInvalidInput))

	_, err = client.Search(context.Background(), SearchRequest{Query: "q", PageSize: 10})
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrorCodeInvalidInput))

	assert.Empty(t, fake.recorded())
}

func TestNextPageStopsWhenExhausted(t *testing.T) {
	t.Parallel()

	fake := newFakeTracker(t, func(req recordedRequest) (int, string) {
		page := req.Body[6].([]any)
		if len(page) == 4 {
			return http.StatusOK, searchResponse(t, nil, 3, issueEntry(3, "third"))
		}
		return http.StatusOK, searchResponse(t, "next", 3, issueEntry(1, "first"), issueEntry(2, "second"))
	})
	client := fake.client(t, nil)

	first, err := client.Search(context.Background(), SearchRequest{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, 25, first.PageSize)

	second, ok, err := client.NextPage(context.Background(), first)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, second.Issues, 1)
	assert.Equal(t, int64(3), second.Issues[0].ID)

	_, ok, err = client.NextPage(context.Background(), second)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Len(t, fake.recorded(), 2)
}

func TestIssueUsesDetailEndpoint(t *testing.T) {
	t.Parallel()

	fake := newFakeTracker(t, func(req recordedRequest) (int, string) {
		payload := []any{nil, []any{"meta", "x"}, issueEntry(40060244, "detail")}
		return http.StatusOK, encode(t, []any{[]any{"b.IssueFetchResponse", payload}})
	})
	client := fake.client(t, func(options *ClientOptions) {
		options.TrackerIDs = []string{"157"}
	})

	decoded, err := client.Issue(context.Background(), 40060244)
	require.NoError(t, err)
	assert.Equal(t, "detail", decoded.Title)

	requests := fake.recorded()
	require.Len(t, requests, 1)
	assert.Equal(t, "/action/issues/40060244/getIssue", requests[0].Path)
	assert.Equal(t, "currentTrackerId=157", requests[0].Query)
	assert.Equal(t, []any{float64(40060244), float64(1), float64(1)}, requests[0].Body)
}

func TestIssueNotFoundIsDetectable(t *testing.T) {
	t.Parallel()

	fake := newFakeTracker(t, func(req recordedRequest) (int, string) {
		return http.StatusOK, `)]}'` + "\n" + `[["b.IssueFetchResponse",[null,"x"]]]`
	})
	client := fake.client(t, nil)

	_, err := client.Issue(context.Background(), 7)
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrorCodeResponseDecode))
	assert.True(t, wire.IsErrorCode(err, wire.ErrorCodeIssueNotFound))
	assert.True(t, errors.Is(err, wire.ErrIssueNotFound))
	assert.Empty(t, fake.recorded()[0].Query)
}

func TestIssuesChunksConcurrentlyAndKeepsChunkOrder(t *testing.T) {
	t.Parallel()

	fake := newFakeTracker(t, func(req recordedRequest) (int, string) {
		batchRequest := req.Body[3].([]any)
		rawIDs := batchRequest[0].([]any)
		ids := make([]int64, 0, len(rawIDs))
		for _, raw := range rawIDs {
			ids = append(ids, int64(raw.(float64)))
		}
		return http.StatusOK, batchResponse(t, ids...)
	})
	client := fake.client(t, func(options *ClientOptions) {
		options.BatchSize = 2
		options.Concurrency = 3
	})

	issues, err := client.Issues(context.Background(), []int64{1, 2, 3, 4, 5})
	require.NoError(t, err)

	ids := make([]int64, 0, len(issues))
	for _, decoded := range issues {
		ids = append(ids, decoded.ID)
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids)

	requests := fake.recorded()
	require.Len(t, requests, 3)
	for _, req := range requests {
		assert.Equal(t, "/action/issues/batch", req.Path)
		assert.Equal(t, "b.BatchGetIssuesRequest", req.Body[0])
		batchRequest := req.Body[3].([]any)
		assert.Equal(t, float64(2), batchRequest[1])
		assert.Equal(t, float64(2), batchRequest[2])
	}
}

func TestIssuesFailsOnChunkError(t *testing.T) {
	t.Parallel()

	fake := newFakeTracker(t, func(req recordedRequest) (int, string) {
		batchRequest := req.Body[3].([]any)
		if batchRequest[0].([]any)[0].(float64) == 3 {
			return http.StatusNotFound, "<html>missing</html>"
		}
		return http.StatusOK, batchResponse(t, 1)
	})
	client := fake.client(t, func(options *ClientOptions) {
		options.BatchSize = 2
		options.Concurrency = 1
	})

	_, err := client.Issues(context.Background(), []int64{1, 2, 3, 4})
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrorCodeUnexpectedStatus))

	var trackerErr *Error
	require.True(t, errors.As(err, &trackerErr))
	assert.Equal(t, http.StatusNotFound, trackerErr.StatusCode)
	assert.Contains(t, trackerErr.Error(), "missing")
}

func TestIssuesRejectsInvalidIDs(t *testing.T) {
	t.Parallel()

	client, err := NewClient(ClientOptions{})
	require.NoError(t, err)

	_, err = client.Issues(context.Background(), nil)
	assert.True(t, IsErrorCode(err, ErrorCodeInvalidInput))
	_, err = client.Issues(context.Background(), []int64{1, 0})
	assert.True(t, IsErrorCode(err, ErrorCodeInvalidInput))
	_, err = client.Issue(context.Background(), -1)
	assert.True(t, IsErrorCode(err, ErrorCodeInvalidInput))
}

func TestUpdatesAndComments(t *testing.T) {
	t.Parallel()

	comment := func(body string, sequence int) []any {
		raw := make([]any, 7)
		raw[0] = body
		raw[2] = []any{nil, "dev@test.com"}
		raw[6] = sequence
		return raw
	}
	update := func(sequence int, withComment []any) []any {
		raw := make([]any, 10)
		raw[0] = []any{nil, "dev@test.com"}
		raw[1] = []any{1700000000 + sequence}
		if withComment != nil {
			raw[2] = withComment
		}
		raw[3] = sequence
		raw[5] = []any{[]any{"status"}}
		raw[9] = 99
		return raw
	}

	fake := newFakeTracker(t, func(req recordedRequest) (int, string) {
		updates := []any{update(2, comment("second", 1)), update(1, nil), update(0, comment("first", 0))}
		return http.StatusOK, encode(t, []any{[]any{"b.ListIssueUpdatesResponse", []any{updates, nil, 3}}})
	})
	client := fake.client(t, nil)

	result, err := client.Updates(context.Background(), 99)
	require.NoError(t, err)
	require.Len(t, result.Updates, 3)
	assert.Equal(t, int64(3), result.TotalCount)
	assert.Equal(t, "status", result.Updates[1].FieldChanges[0].Field)

	comments, err := client.Comments(context.Background(), 99)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Body)
	assert.Equal(t, int64(1), comments[0].Number)
	assert.Equal(t, "second", comments[1].Body)

	requests := fake.recorded()
	require.Len(t, requests, 2)
	assert.Equal(t, "/action/issues/99/updates", requests[0].Path)
	assert.Equal(t, []any{float64(99)}, requests[0].Body)
}

func TestInvalidJSONIsDecodeError(t *testing.T) {
	t.Parallel()

	fake := newFakeTracker(t, func(req recordedRequest) (int, string) {
		return http.StatusOK, "<html>sign in</html>"
	})
	client := fake.client(t, nil)

	_, err := client.Search(context.Background(), SearchRequest{Query: "q"})
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrorCodeResponseDecode))
	assert.True(t, wire.IsErrorCode(err, wire.ErrorCodeInvalidJSON))
}

type memoryCache struct {
	mu     sync.Mutex
	values map[string][]byte
	ttls   []time.Duration
}

func (c *memoryCache) Get(key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.values[key]
	return value, ok, nil
}

func (c *memoryCache) Put(key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = map[string][]byte{}
	}
	c.values[key] = value
	c.ttls = append(c.ttls, ttl)
	return nil
}

func TestResponseCacheServesRepeatedRequests(t *testing.T) {
	t.Parallel()

	fake := newFakeTracker(t, func(req recordedRequest) (int, string) {
		if req.Body[6].([]any)[0] == "broken" {
			return http.StatusBadRequest, "bad"
		}
		return http.StatusOK, searchResponse(t, nil, 1, issueEntry(1, "cached"))
	})
	cache := &memoryCache{}
	client := fake.client(t, func(options *ClientOptions) {
		options.Cache = cache
		options.CacheTTL = time.Minute
	})

	for i := 0; i < 2; i++ {
		result, err := client.Search(context.Background(), SearchRequest{Query: "q"})
		require.NoError(t, err)
		require.Len(t, result.Issues, 1)
	}
	assert.Len(t, fake.recorded(), 1)
	assert.Equal(t, []time.Duration{time.Minute}, cache.ttls)

	for i := 0; i < 2; i++ {
		_, err := client.Search(context.Background(), SearchRequest{Query: "broken"})
		require.Error(t, err)
	}
	assert.Len(t, fake.recorded(), 3)
	assert.Len(t, cache.values, 1)
}

func TestNewClientRejectsMalformedBaseURL(t *testing.T) {
	t.Parallel()

	_, err := NewClient(ClientOptions{BaseURL: "issuetracker.google.com"})
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrorCodeInvalidInput))

	client, err := NewClient(ClientOptions{BaseURL: "https://example.test/action/?x=1"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/action", client.baseURL)
	assert.Equal(t, "https://example.test", client.origin)
	assert.True(t, strings.Contains(client.userAgent, "Googlebot"))
}

func TestChunkIDs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, [][]int64{{1, 2, 3}}, chunkIDs([]int64{1, 2, 3}, 5))
	assert.Equal(t, [][]int64{{1, 2}, {3, 4}, {5}}, chunkIDs([]int64{1, 2, 3, 4, 5}, 2))
	assert.Equal(t, [][]int64{{1, 2}}, chunkIDs([]int64{1, 2}, 0))
}
