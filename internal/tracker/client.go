package tracker

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pweiskircher/buganize/internal/contracts"
	httpclient "github.com/pweiskircher/buganize/internal/http"
	"github.com/pweiskircher/buganize/internal/issue"
	"github.com/pweiskircher/buganize/internal/wire"
)

const maxResponseBodyBytes = 32 << 20

// API is the read surface the commands depend on.
type API interface {
	Search(ctx context.Context, request SearchRequest) (issue.SearchResult, error)
	NextPage(ctx context.Context, previous issue.SearchResult) (issue.SearchResult, bool, error)
	Issue(ctx context.Context, id int64) (issue.Issue, error)
	Issues(ctx context.Context, ids []int64) ([]issue.Issue, error)
	Updates(ctx context.Context, id int64) (issue.UpdatesResult, error)
	Comments(ctx context.Context, id int64) ([]issue.Comment, error)
}

// ResponseCache stores raw successful response bodies.
type ResponseCache interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte, ttl time.Duration) error
}

type SearchRequest struct {
	Query     string
	PageSize  int
	PageToken string
}

type ClientOptions struct {
	BaseURL      string
	TrackerIDs   []string
	HTTPDoer     httpclient.Doer
	RetryOptions httpclient.Options
	Fields       wire.FieldTable
	BatchSize    int
	Concurrency  int
	Cache        ResponseCache
	CacheTTL     time.Duration
	UserAgent    string
	Logger       *slog.Logger
}

type Client struct {
	baseURL     string
	origin      string
	trackerIDs  []string
	client      *httpclient.RetryClient
	decoder     *wire.Decoder
	batchSize   int
	concurrency int
	cache       ResponseCache
	cacheTTL    time.Duration
	userAgent   string
	logger      *slog.Logger
}

var _ API = (*Client)(nil)

func NewClient(options ClientOptions) (*Client, error) {
	baseURL := options.BaseURL
	if strings.TrimSpace(baseURL) == "" {
		baseURL = contracts.DefaultBaseURL
	}
	normalized, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	retryOptions := options.RetryOptions
	if retryOptions.Logger == nil {
		retryOptions.Logger = logger
	}

	batchSize := options.BatchSize
	if batchSize <= 0 {
		batchSize = contracts.DefaultBatchSize
	}
	concurrency := options.Concurrency
	if concurrency <= 0 {
		concurrency = contracts.DefaultConcurrency
	}
	userAgent := strings.TrimSpace(options.UserAgent)
	if userAgent == "" {
		userAgent = randomUserAgent()
	}

	var cache ResponseCache
	if options.Cache != nil && options.CacheTTL > 0 {
		cache = options.Cache
	}

	return &Client{
		baseURL:     normalized,
		origin:      originOf(normalized),
		trackerIDs:  append([]string(nil), options.TrackerIDs...),
		client:      httpclient.NewRetryClient(options.HTTPDoer, retryOptions),
		decoder:     wire.NewDecoder(options.Fields),
		batchSize:   batchSize,
		concurrency: concurrency,
		cache:       cache,
		cacheTTL:    options.CacheTTL,
		userAgent:   userAgent,
		logger:      logger,
	}, nil
}

// Search fetches one page of issues matching the query.
func (c *Client) Search(ctx context.Context, request SearchRequest) (issue.SearchResult, error) {
	if c == nil {
		return issue.SearchResult{}, &Error{Code: ErrorCodeInvalidInput, Message: "tracker client is nil"}
	}

	query := request.Query
	if strings.TrimSpace(query) == "" {
		return issue.SearchResult{}, &Error{Code: ErrorCodeInvalidInput, Message: "invalid search request: query must not be empty"}
	}
	pageSize := request.PageSize
	if pageSize == 0 {
		pageSize = contracts.DefaultPageSize
	}
	if !contracts.IsAllowedPageSize(pageSize) {
		return issue.SearchResult{}, &Error{
			Code:    ErrorCodeInvalidInput,
			Message: fmt.Sprintf("invalid search request: page size %d is not one of %v", pageSize, contracts.AllowedPageSizes),
		}
	}

	queryPayload := []any{query, nil, pageSize}
	if request.PageToken != "" {
		queryPayload = append(queryPayload, request.PageToken)
	}
	payload := []any{nil, nil, nil, nil, nil, c.trackerFilter(), queryPayload}

	body, err := c.doAction(ctx, "/issues/list", nil, payload)
	if err != nil {
		return issue.SearchResult{}, err
	}

	result, err := c.decoder.DecodeSearch(body, query, pageSize)
	if err != nil {
		return issue.SearchResult{}, decodeError("search", err)
	}
	return result, nil
}

// NextPage continues a previous search. It reports false, without a
// request, when the previous page was the last one.
func (c *Client) NextPage(ctx context.Context, previous issue.SearchResult) (issue.SearchResult, bool, error) {
	if !previous.HasMore() {
		return issue.SearchResult{}, false, nil
	}

	result, err := c.Search(ctx, SearchRequest{
		Query:     previous.Query,
		PageSize:  previous.PageSize,
		PageToken: previous.NextPageToken,
	})
	if err != nil {
		return issue.SearchResult{}, false, err
	}
	return result, true, nil
}

// Issue fetches one issue by ID.
func (c *Client) Issue(ctx context.Context, id int64) (issue.Issue, error) {
	if c == nil {
		return issue.Issue{}, &Error{Code: ErrorCodeInvalidInput, Message: "tracker client is nil"}
	}
	if err := validateIssueID(id); err != nil {
		return issue.Issue{}, err
	}

	resourcePath := "/issues/" + strconv.FormatInt(id, 10) + "/getIssue"
	body, err := c.doAction(ctx, resourcePath, c.currentTrackerQuery(), []any{id, 1, 1})
	if err != nil {
		return issue.Issue{}, err
	}

	decoded, err := c.decoder.DecodeIssueDetail(body)
	if err != nil {
		return issue.Issue{}, decodeError("issue "+strconv.FormatInt(id, 10), err)
	}
	return decoded, nil
}

// Issues fetches issues through the batch endpoint. The API may omit IDs it
// does not know and does not guarantee the response order.
func (c *Client) Issues(ctx context.Context, ids []int64) ([]issue.Issue, error) {
	if c == nil {
		return nil, &Error{Code: ErrorCodeInvalidInput, Message: "tracker client is nil"}
	}
	if len(ids) == 0 {
		return nil, &Error{Code: ErrorCodeInvalidInput, Message: "invalid batch request: at least one issue ID is required"}
	}
	for _, id := range ids {
		if err := validateIssueID(id); err != nil {
			return nil, err
		}
	}

	chunks := chunkIDs(ids, c.batchSize)
	if len(chunks) == 1 {
		return c.fetchBatch(ctx, chunks[0])
	}
	return c.fetchBatches(ctx, chunks)
}

// Updates fetches the update history of an issue, newest first.
func (c *Client) Updates(ctx context.Context, id int64) (issue.UpdatesResult, error) {
	if c == nil {
		return issue.UpdatesResult{}, &Error{Code: ErrorCodeInvalidInput, Message: "tracker client is nil"}
	}
	if err := validateIssueID(id); err != nil {
		return issue.UpdatesResult{}, err
	}

	resourcePath := "/issues/" + strconv.FormatInt(id, 10) + "/updates"
	body, err := c.doAction(ctx, resourcePath, c.currentTrackerQuery(), []any{id})
	if err != nil {
		return issue.UpdatesResult{}, err
	}

	result, err := c.decoder.DecodeUpdates(body)
	if err != nil {
		return issue.UpdatesResult{}, decodeError("updates", err)
	}
	return result, nil
}

// Comments returns the comments of an issue, oldest first.
func (c *Client) Comments(ctx context.Context, id int64) ([]issue.Comment, error) {
	result, err := c.Updates(ctx, id)
	if err != nil {
		return nil, err
	}
	return result.Comments(), nil
}

func (c *Client) fetchBatch(ctx context.Context, ids []int64) ([]issue.Issue, error) {
	payload := []any{"b.BatchGetIssuesRequest", nil, nil, []any{ids, 2, 2}}
	body, err := c.doAction(ctx, "/issues/batch", nil, payload)
	if err != nil {
		return nil, err
	}

	issues, err := c.decoder.DecodeBatch(body)
	if err != nil {
		return nil, decodeError("batch", err)
	}
	return issues, nil
}

func (c *Client) trackerFilter() any {
	if len(c.trackerIDs) == 0 {
		return nil
	}
	return append([]string(nil), c.trackerIDs...)
}

func (c *Client) currentTrackerQuery() url.Values {
	if len(c.trackerIDs) == 0 {
		return nil
	}
	return url.Values{"currentTrackerId": []string{c.trackerIDs[0]}}
}

func (c *Client) doAction(ctx context.Context, resourcePath string, query url.Values, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{
			Code:    ErrorCodeRequestEncode,
			Message: "failed to encode tracker request payload",
			Err:     err,
		}
	}

	endpoint, err := c.endpointFor(resourcePath, query)
	if err != nil {
		return nil, &Error{
			Code:    ErrorCodeRequestBuild,
			Message: "failed to build tracker request URL",
			Err:     err,
		}
	}

	cacheKey := responseCacheKey(endpoint, encoded)
	if cached, ok := c.cachedResponse(cacheKey); ok {
		c.logger.Debug("tracker response served from cache", "url", endpoint, "bytes", len(cached))
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, &Error{
			Code:    ErrorCodeRequestBuild,
			Message: "failed to build tracker request",
			Err:     err,
		}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", c.origin)
	req.Header.Set("Referer", c.origin+"/")
	req.Header.Set("User-Agent", c.userAgent)

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		trackerErr := &Error{
			Code:    ErrorCodeTransport,
			Message: "failed to execute tracker request",
			Err:     err,
		}
		var exhausted *httpclient.ExhaustedError
		if errors.As(err, &exhausted) {
			trackerErr.StatusCode = exhausted.StatusCode
		}
		return nil, trackerErr
	}
	defer resp.Body.Close()

	responseBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if readErr != nil {
		return nil, &Error{
			Code:       ErrorCodeTransport,
			StatusCode: resp.StatusCode,
			Message:    "failed to read tracker response body",
			Err:        readErr,
		}
	}

	c.logger.Debug("tracker request completed",
		"method", http.MethodPost,
		"url", endpoint,
		"status", resp.StatusCode,
		"duration", time.Since(started),
		"bytes", len(responseBody),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, responseBody)
	}

	c.storeResponse(cacheKey, responseBody)
	return responseBody, nil
}

func (c *Client) cachedResponse(key string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	value, ok, err := c.cache.Get(key)
	if err != nil {
		c.logger.Debug("response cache read failed", "error", err)
		return nil, false
	}
	return value, ok
}

func (c *Client) storeResponse(key string, body []byte) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Put(key, body, c.cacheTTL); err != nil {
		c.logger.Debug("response cache write failed", "error", err)
	}
}

func (c *Client) endpointFor(resourcePath string, query url.Values) (string, error) {
	trimmedPath := "/" + strings.TrimLeft(strings.TrimSpace(resourcePath), "/")
	parsedBase, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}

	parsedBase.Path = strings.TrimRight(parsedBase.Path, "/") + trimmedPath
	if len(query) > 0 {
		parsedBase.RawQuery = query.Encode()
	}
	return parsedBase.String(), nil
}

func statusError(statusCode int, body []byte) error {
	detail := excerpt(body)
	if detail == "" {
		detail = strings.ToLower(http.StatusText(statusCode))
	}

	return &Error{
		Code:       ErrorCodeUnexpectedStatus,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("tracker request failed with status %d: %s", statusCode, detail),
	}
}

func decodeError(what string, err error) error {
	return &Error{
		Code:    ErrorCodeResponseDecode,
		Message: "failed to decode " + what + " response",
		Err:     err,
	}
}

func excerpt(body []byte) string {
	const limit = 200

	trimmed := strings.TrimSpace(string(wire.StripPrefix(body)))
	trimmed = strings.Join(strings.Fields(trimmed), " ")
	if len(trimmed) <= limit {
		return trimmed
	}
	return trimmed[:limit] + "..."
}

func normalizeBaseURL(baseURL string) (string, error) {
	trimmed := strings.TrimSpace(baseURL)
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", &Error{
			Code:    ErrorCodeInvalidInput,
			Message: "invalid tracker client options: base URL is malformed",
			Err:     err,
		}
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", &Error{
			Code:    ErrorCodeInvalidInput,
			Message: "invalid tracker client options: base URL must include scheme and host",
		}
	}

	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String(), nil
}

func originOf(baseURL string) string {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return contracts.DefaultSiteURL
	}
	return parsed.Scheme + "://" + parsed.Host
}

func validateIssueID(id int64) error {
	if id <= 0 {
		return &Error{
			Code:    ErrorCodeInvalidInput,
			Message: fmt.Sprintf("invalid issue ID %d", id),
		}
	}
	return nil
}

func responseCacheKey(endpoint string, body []byte) string {
	sum := sha256.New()
	sum.Write([]byte(endpoint))
	sum.Write([]byte{0})
	sum.Write(body)
	return hex.EncodeToString(sum.Sum(nil))
}
