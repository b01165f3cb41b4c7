package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/domain"
	apperrors "github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/errors"
)

func TestNewsAPI_FetchCandidates(t *testing.T) {
	var categories []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "us", r.URL.Query().Get("country"))
		assert.Equal(t, "50", r.URL.Query().Get("pageSize"))
		categories = append(categories, r.URL.Query().Get("category"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("category") {
		case "business":
			_, _ = w.Write([]byte(`{"status":"ok","totalResults":4,"articles":[
				{"title":"Nvidia beats estimates - Reuters","description":"<p>Chip <b>maker</b> rallies</p>","url":"https://www.reuters.com/a"},
				{"title":"Celebrity gossip - Tabloid","description":"x","url":"https://www.tabloid.com/b"},
				{"title":"","description":"no title","url":"https://example.com/c"},
				{"title":"No url","description":"","url":""}
			]}`))
		case "technology":
			_, _ = w.Write([]byte(`{"status":"ok","totalResults":2,"articles":[
				{"title":"Nvidia beats estimates - Reuters","description":"dup","url":"https://www.reuters.com/a"},
				{"title":"Quantum leap - Wired","description":"Qubits & more","url":"https://wired.com/q"}
			]}`))
		}
	}))
	defer srv.Close()

	n := NewNewsAPI(Config{BaseURL: srv.URL, APIKey: "secret", Blacklist: []string{"www.Tabloid.com"}}, nil)
	got, err := n.FetchCandidates(context.Background(), domain.FetchConfig{
		Country:    "us",
		Categories: []string{"business", "technology"},
		PageSize:   50,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"business", "technology"}, categories)
	assert.Equal(t, []domain.Candidate{
		{Title: "Nvidia beats estimates", Description: "Chip maker rallies", URL: "https://www.reuters.com/a", Category: "business"},
		{Title: "Quantum leap", Description: "Qubits & more", URL: "https://wired.com/q", Category: "technology"},
	}, got)
}

func TestNewsAPI_ErrorIsExternal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid"}`))
	}))
	defer srv.Close()

	n := NewNewsAPI(Config{BaseURL: srv.URL}, nil)
	_, err := n.FetchCandidates(context.Background(), domain.FetchConfig{Country: "us", Categories: []string{"business"}, PageSize: 10})
	require.Error(t, err)
	assert.True(t, apperrors.IsFatalToBatch(err))
	assert.Contains(t, err.Error(), "apiKeyInvalid")
}

func TestCleanTitle(t *testing.T) {
	tests := map[string]string{
		"Fed holds rates - CNBC":           "Fed holds rates",
		"Stocks - bonds - The WSJ":         "Stocks - bonds",
		"No source suffix":                 "No source suffix",
		"  padded - Source  ":              "padded",
		" - Leading separator only":        "- Leading separator only",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanTitle(in), in)
	}
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "plain text", StripHTML(" plain text "))
	assert.Equal(t, "Bold and link", StripHTML("<b>Bold</b> and <a href='x'>link</a>"))
	assert.Equal(t, "AT&T deal", StripHTML("AT&amp;T deal"))
}

func TestBaseDomain(t *testing.T) {
	assert.Equal(t, "cnbc.com", BaseDomain("https://www.cnbc.com/2024/01/01/story.html"))
	assert.Equal(t, "news.yahoo.com", BaseDomain("https://news.yahoo.com/x"))
	assert.Equal(t, "", BaseDomain("://bad"))
}
