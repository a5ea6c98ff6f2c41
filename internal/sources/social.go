package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonathan/competition-radar/internal/fetch"
	"github.com/jonathan/competition-radar/internal/retry"
	"github.com/jonathan/competition-radar/internal/types"
)

const defaultSocialItemCap = 12

// SocialAdapter reads recent posts of configured accounts from a profile-media JSON API.
type SocialAdapter struct {
	id       string
	baseURL  string
	accounts []string
	token    string
	itemCap  int
	timeout  time.Duration
	client   *http.Client
	limiter  *rate.Limiter
	policy   retry.Policy
	logger   *slog.Logger
}

type socialPost struct {
	Shortcode  string `json:"shortcode"`
	Permalink  string `json:"permalink"`
	Caption    string `json:"caption"`
	DisplayURL string `json:"display_url"`
	IsVideo    bool   `json:"is_video"`
}

type socialResponse struct {
	Posts []socialPost `json:"posts"`
}

// NewSocialAdapter builds the social-profile adapter.
func NewSocialAdapter(spec Spec, deps Deps) (*SocialAdapter, error) {
	if spec.BaseURL == "" {
		return nil, errors.New("base_url is required")
	}
	if len(spec.Accounts) == 0 {
		return nil, errors.New("at least one account is required")
	}

	itemCap := spec.ItemCap
	if itemCap <= 0 {
		itemCap = defaultSocialItemCap
	}
	rps := spec.RequestsPerSecond
	if rps <= 0 {
		rps = 0.5
	}
	policy := retry.SocialAccountPolicy()
	if spec.Retry != nil {
		policy = *spec.Retry
	}
	client := deps.Client
	if client == nil {
		client = &http.Client{}
	}
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = fetch.DefaultTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SocialAdapter{
		id:       spec.ID,
		baseURL:  strings.TrimRight(spec.BaseURL, "/"),
		accounts: spec.Accounts,
		token:    spec.Token,
		itemCap:  itemCap,
		timeout:  timeout,
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		policy:   policy,
		logger:   logger.With("component", "sources", "source", spec.ID),
	}, nil
}

// ID implements Adapter.
func (a *SocialAdapter) ID() string { return a.id }

// Origin implements Adapter.
func (a *SocialAdapter) Origin() types.Origin { return types.OriginInstagram }

// Fetch implements Adapter. Accounts are read one after another under the request limiter.
// An account that stays rate limited after its retry budget is reported as a warning and skipped.
// The source fails only when every account failed.
func (a *SocialAdapter) Fetch(ctx context.Context) (*Result, error) {
	result := &Result{}
	var lastErr error

	for _, account := range a.accounts {
		var posts []socialPost
		err := a.policy.Do(ctx, func(ctx context.Context) error {
			var err error
			posts, err = a.fetchAccount(ctx, account)
			return err
		})
		if err != nil {
			lastErr = err
			result.Warnings = append(result.Warnings, err)
			category := "SourceFetchError"
			var rl *RateLimitError
			if errors.As(err, &rl) {
				category = "RateLimitError"
			}
			a.logger.Warn("account skipped", "account", account, "category", category, "error", err)
			continue
		}

		for _, p := range posts {
			if item, ok := a.toCandidate(account, p); ok {
				result.Items = append(result.Items, item)
			}
		}
	}

	if len(result.Warnings) == len(a.accounts) {
		return nil, &SourceFetchError{Source: a.id, Message: "all accounts failed", Cause: lastErr}
	}
	return result, nil
}

func (a *SocialAdapter) fetchAccount(ctx context.Context, account string) ([]socialPost, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v1/profiles/%s/posts?limit=%d", a.baseURL, url.PathEscape(account), a.itemCap)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &fetch.Error{URL: endpoint, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", fetch.DefaultUserAgent)
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &fetch.Error{URL: endpoint, Message: "HTTP request failed", Cause: err, Retryable: retry.IsRetryable(err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{Source: a.id, Account: account, RetryAfter: retryAfter(resp.Header.Get("Retry-After"))}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &fetch.Error{
			URL:       endpoint,
			Message:   fmt.Sprintf("HTTP status %d", resp.StatusCode),
			Retryable: retry.StatusRetryable(resp.StatusCode),
		}
	}

	var payload socialResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &fetch.Error{URL: endpoint, Message: "invalid JSON response", Cause: err}
	}

	posts := payload.Posts
	if len(posts) > a.itemCap {
		posts = posts[:a.itemCap]
	}
	return posts, nil
}

func (a *SocialAdapter) toCandidate(account string, p socialPost) (types.CandidateItem, bool) {
	if p.IsVideo || strings.TrimSpace(p.DisplayURL) == "" {
		return types.CandidateItem{}, false
	}
	link := strings.TrimSpace(p.Permalink)
	if link == "" && p.Shortcode != "" {
		link = "https://www.instagram.com/p/" + p.Shortcode + "/"
	}
	if link == "" {
		return types.CandidateItem{}, false
	}
	return types.CandidateItem{
		SourceURL:     link,
		MediaURL:      strings.TrimSpace(p.DisplayURL),
		BodyText:      strings.TrimSpace(p.Caption),
		Origin:        types.OriginInstagram,
		OriginAccount: account,
	}, true
}

func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
