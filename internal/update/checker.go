// Package update tells users when a newer buganize release exists.
package update

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-resty/resty/v2"

	"github.com/pweiskircher/buganize/internal/contracts"
)

const (
	DefaultAPIBaseURL = "https://api.github.com"
	DefaultRepository = "pweiskircher/buganize"
	DevVersion        = "dev"
)

// Store is the subset of a TTL cache bucket the checker needs.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte, ttl time.Duration) error
}

type Options struct {
	APIBaseURL string
	Repository string
	HTTPClient *http.Client
	Timeout    time.Duration
	Cache      Store
	CacheTTL   time.Duration
	Logger     *slog.Logger
}

type Checker struct {
	client     *resty.Client
	repository string
	cache      Store
	cacheTTL   time.Duration
	logger     *slog.Logger
}

// Notice describes an available upgrade.
type Notice struct {
	Current string
	Latest  string
}

func (n Notice) String() string {
	return fmt.Sprintf("Version %s of buganize is outdated. Version %s is available.", n.Current, n.Latest)
}

type release struct {
	TagName string `json:"tag_name"`
}

func New(options Options) *Checker {
	baseURL := strings.TrimRight(strings.TrimSpace(options.APIBaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	repository := strings.Trim(strings.TrimSpace(options.Repository), "/")
	if repository == "" {
		repository = DefaultRepository
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = contracts.DefaultUpdateTimeout
	}
	ttl := options.CacheTTL
	if ttl <= 0 {
		ttl = contracts.DefaultUpdateCheckTTL
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var client *resty.Client
	if options.HTTPClient != nil {
		client = resty.NewWithClient(options.HTTPClient)
	} else {
		client = resty.New()
	}
	client.
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/vnd.github+json").
		SetHeader("User-Agent", "buganize-update-check")

	return &Checker{
		client:     client,
		repository: repository,
		cache:      options.Cache,
		cacheTTL:   ttl,
		logger:     logger,
	}
}

// Check compares current against the latest release. Any failure is logged
// at debug level and reported as "no notice".
func (c *Checker) Check(ctx context.Context, current string) (Notice, bool) {
	currentVersion, err := parseVersion(current)
	if err != nil {
		c.logger.Debug("skipping update check", "version", current, "reason", err)
		return Notice{}, false
	}

	latest, err := c.Latest(ctx)
	if err != nil {
		c.logger.Debug("update check failed", "error", err)
		return Notice{}, false
	}

	latestVersion, err := parseVersion(latest)
	if err != nil {
		c.logger.Debug("latest release tag is not a version", "tag", latest)
		return Notice{}, false
	}

	if !latestVersion.GreaterThan(currentVersion) {
		return Notice{}, false
	}
	return Notice{Current: currentVersion.String(), Latest: latestVersion.String()}, true
}

// Latest returns the newest release tag, served from cache while fresh.
func (c *Checker) Latest(ctx context.Context) (string, error) {
	key := "latest:" + c.repository

	if c.cache != nil {
		if cached, ok, err := c.cache.Get(key); err == nil && ok {
			return string(cached), nil
		}
	}

	var result release
	response, err := c.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/repos/" + c.repository + "/releases/latest")
	if err != nil {
		return "", fmt.Errorf("failed to fetch latest release: %w", err)
	}
	if response.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("release API returned status %d", response.StatusCode())
	}

	tag := strings.TrimSpace(result.TagName)
	if tag == "" {
		return "", fmt.Errorf("release API returned no tag")
	}

	if c.cache != nil {
		if err := c.cache.Put(key, []byte(tag), c.cacheTTL); err != nil {
			c.logger.Debug("failed to cache latest release", "error", err)
		}
	}
	return tag, nil
}

func parseVersion(raw string) (*semver.Version, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == DevVersion {
		return nil, fmt.Errorf("development build")
	}
	return semver.NewVersion(trimmed)
}
