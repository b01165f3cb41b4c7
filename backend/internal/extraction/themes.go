package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/domain"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/logger"
)

// ThemeLabels are the candidate themes an article is classified against
var ThemeLabels = []string{
	"Mergers & Acquisitions",
	"Startups",
	"Venture Capital & Funding",
	"Stock Market & Investing",
	"Corporate Earnings & Financial Reports",
	"Regulation & Antitrust",
	"Banking & Fintech",
	"Global Trade & Economy",
	"Artificial Intelligence & Machine Learning",
	"Cloud Computing & Infrastructure",
	"Cybersecurity & Data Privacy",
	"Semiconductors & Chips",
	"Quantum Computing",
	"Blockchain & Cryptocurrencies",
	"Big Tech Companies",
	"E-commerce & Retail Tech",
	"Gaming & Esports",
	"Enterprise Software & SaaS",
	"Climate Tech & Sustainability",
	"Healthcare Technology",
	"Automotive & Electric Vehicles",
	"Space Industry & Satellites",
	"Government Tech & Policy",
	"Workplace & Future of Work",
	"Media & Streaming Services",
	"Robotics & Automation",
	"Emerging Technology, Markets or Industries",
}

// Theme selection limits
const (
	DefaultMinThemeScore = 0.4
	MaxThemes            = 3
)

const themePrompt = `You classify news text into themes. Score every candidate theme independently
between 0 and 1 by how well it describes the text (several themes may score high).
Candidate themes:
%s
Return a JSON object {"themes": [{"name": string, "score": number}]} using the exact candidate names.`

// ThemeExtractor classifies text against ThemeLabels
type ThemeExtractor struct {
	llm      Completer
	minScore float64
	labels   map[string]string // lowercase -> canonical label
	prompt   string
	logger   *zap.Logger
}

// NewThemeExtractor creates a theme extractor
func NewThemeExtractor(llm Completer, log *zap.Logger) *ThemeExtractor {
	labels := make(map[string]string, len(ThemeLabels))
	for _, l := range ThemeLabels {
		labels[strings.ToLower(l)] = l
	}
	return &ThemeExtractor{
		llm:      llm,
		minScore: DefaultMinThemeScore,
		labels:   labels,
		prompt:   fmt.Sprintf(themePrompt, "- "+strings.Join(ThemeLabels, "\n- ")),
		logger:   logger.OrDefault(log, "themes"),
	}
}

type themeResponse struct {
	Themes []struct {
		Name  string  `json:"name"`
		Score float64 `json:"score"`
	} `json:"themes"`
}

// Extract returns at most three candidate themes scoring above 0.4, ordered by
// score descending and then by name
func (x *ThemeExtractor) Extract(ctx context.Context, text string) ([]domain.Theme, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []domain.Theme{}, nil
	}

	raw, err := x.llm.GenerateJSON(ctx, x.prompt, text)
	if err != nil {
		return nil, err
	}

	var resp themeResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse theme response: %w", err)
	}

	best := make(map[string]float64)
	for _, t := range resp.Themes {
		label, ok := x.labels[strings.ToLower(strings.TrimSpace(t.Name))]
		if !ok {
			continue
		}
		score := round2(t.Score)
		if score <= x.minScore || score > 1 {
			continue
		}
		if score > best[label] {
			best[label] = score
		}
	}

	themes := make([]domain.Theme, 0, len(best))
	for name, score := range best {
		themes = append(themes, domain.Theme{Name: name, Score: score})
	}
	sort.Slice(themes, func(i, j int) bool {
		if themes[i].Score != themes[j].Score {
			return themes[i].Score > themes[j].Score
		}
		return themes[i].Name < themes[j].Name
	})
	if len(themes) > MaxThemes {
		themes = themes[:MaxThemes]
	}

	x.logger.Debug("Themes extracted", zap.Int("count", len(themes)))
	return themes, nil
}
