// Package source fetches candidate articles from the NewsAPI top-headlines endpoint.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/domain"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/observability"
	apperrors "github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/errors"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/logger"
)

// DefaultBaseURL is the NewsAPI top-headlines endpoint
const DefaultBaseURL = "https://newsapi.org/v2/top-headlines"

// Config configures a NewsAPI client
type Config struct {
	BaseURL   string
	APIKey    string
	Blacklist []string // base domains, without www.
	Timeout   time.Duration
}

// NewsAPI is an article source backed by NewsAPI
type NewsAPI struct {
	baseURL    string
	apiKey     string
	blacklist  map[string]bool
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewNewsAPI creates a NewsAPI client
func NewNewsAPI(cfg Config, log *zap.Logger) *NewsAPI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}

	blacklist := make(map[string]bool, len(cfg.Blacklist))
	for _, d := range cfg.Blacklist {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			blacklist[strings.TrimPrefix(d, "www.")] = true
		}
	}

	return &NewsAPI{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		blacklist:  blacklist,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		// The free tier allows short bursts; one request per category
		limiter: rate.NewLimiter(rate.Limit(2), 2),
		logger:  logger.OrDefault(log, "newsapi"),
	}
}

type topHeadlinesResponse struct {
	Status       string `json:"status"`
	Code         string `json:"code"`
	Message      string `json:"message"`
	TotalResults int    `json:"totalResults"`
	Articles     []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
	} `json:"articles"`
}

// FetchCandidates requests each configured category and returns the cleaned candidates.
// Any failed request fails the whole fetch with an ExternalServiceError.
func (n *NewsAPI) FetchCandidates(ctx context.Context, cfg domain.FetchConfig) ([]domain.Candidate, error) {
	var out []domain.Candidate
	seen := make(map[string]bool)

	for _, category := range cfg.Categories {
		resp, err := n.fetchCategory(ctx, cfg.Country, category, cfg.PageSize)
		if err != nil {
			return nil, apperrors.NewExternalServiceError("newsapi", err)
		}

		n.logger.Info("Fetched articles from NewsAPI",
			zap.String("category", category),
			zap.Int("count", len(resp.Articles)),
			zap.Int("total_results", resp.TotalResults),
		)

		for _, a := range resp.Articles {
			c := domain.Candidate{
				Title:       CleanTitle(a.Title),
				Description: StripHTML(a.Description),
				URL:         strings.TrimSpace(a.URL),
				Category:    category,
			}
			if c.Title == "" || c.URL == "" || seen[c.URL] {
				observability.ArticlesDropped.WithLabelValues(observability.DropInvalidCandidate).Inc()
				continue
			}
			if n.blacklist[BaseDomain(c.URL)] {
				continue
			}
			seen[c.URL] = true
			out = append(out, c)
		}
	}

	observability.ArticlesFetched.Add(float64(len(out)))
	return out, nil
}

func (n *NewsAPI) fetchCategory(ctx context.Context, country, category string, pageSize int) (*topHeadlinesResponse, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("country", country)
	params.Set("category", category)
	params.Set("pageSize", strconv.Itoa(pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Api-Key", n.apiKey)
	req.Header.Set("User-Agent", "NewsCurator/1.0")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request top headlines: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed topHeadlinesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || parsed.Status != "ok" {
		return nil, fmt.Errorf("newsapi error (status %d): %s %s", resp.StatusCode, parsed.Code, parsed.Message)
	}
	return &parsed, nil
}

// CleanTitle drops the trailing " - Source" NewsAPI appends to headlines
func CleanTitle(title string) string {
	title = strings.TrimSpace(title)
	if i := strings.LastIndex(title, " - "); i > 0 {
		title = title[:i]
	}
	return strings.TrimSpace(title)
}

// StripHTML returns the text content of a description that may contain markup
func StripHTML(s string) string {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// BaseDomain returns the lowercased host of rawURL without a leading www.
func BaseDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
