package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xhad/ragchat/internal/models"
	"github.com/xhad/ragchat/internal/types"
	"golang.org/x/time/rate"
)

const DefaultWikipediaURL = "https://en.wikipedia.org/api/rest_v1/page/summary/"

// DefaultTopics seeds a fresh store when no topics are configured.
var DefaultTopics = []string{
	"Artificial Intelligence",
	"Machine Learning",
	"Natural Language Processing",
	"Deep Learning",
	"Computer Vision",
	"Python Programming",
	"Data Science",
	"Neural Networks",
	"Transformer Models",
	"Large Language Models",
}

type WikipediaConfig struct {
	Topics     []string
	BaseURL    string
	RateLimit  float64 // requests per second
	Timeout    time.Duration
	Logger     *log.Logger
	OnProgress func(topic string)
}

// Wikipedia fetches page summaries from the Wikipedia REST API, one
// document per topic.
type Wikipedia struct {
	config  WikipediaConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

var _ types.Source = (*Wikipedia)(nil)

type wikiSummary struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

func NewWikipedia(config WikipediaConfig) *Wikipedia {
	if len(config.Topics) == 0 {
		config.Topics = DefaultTopics
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultWikipediaURL
	}
	if !strings.HasSuffix(config.BaseURL, "/") {
		config.BaseURL += "/"
	}
	if config.RateLimit == 0 {
		config.RateLimit = 5
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Wikipedia{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		logger:  loggerOrDefault(config.Logger),
	}
}

// Fetch returns a document for every topic that resolved to a non-empty
// summary. Topics that fail are logged and skipped; only cancellation of
// ctx fails the whole fetch.
func (w *Wikipedia) Fetch(ctx context.Context) ([]models.Document, error) {
	var documents []models.Document
	for _, topic := range w.config.Topics {
		if err := w.limiter.Wait(ctx); err != nil {
			return documents, err
		}
		if w.config.OnProgress != nil {
			w.config.OnProgress(topic)
		}

		doc, err := w.fetchTopic(ctx, topic)
		if err != nil {
			if ctx.Err() != nil {
				return documents, ctx.Err()
			}
			w.logger.Printf("Error fetching %s: %v", topic, err)
			continue
		}

		w.logger.Printf("Fetched: %s", doc.Title)
		documents = append(documents, doc)
	}
	return documents, nil
}

func (w *Wikipedia) fetchTopic(ctx context.Context, topic string) (models.Document, error) {
	target := w.config.BaseURL + url.PathEscape(strings.ReplaceAll(topic, " ", "_"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return models.Document{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "ragchat/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return models.Document{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Document{}, statusError(resp.StatusCode, target)
	}

	var summary wikiSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return models.Document{}, fmt.Errorf("decode summary: %w", err)
	}
	if strings.TrimSpace(summary.Extract) == "" {
		return models.Document{}, fmt.Errorf("summary for %q has no extract", topic)
	}

	title := summary.Title
	if title == "" {
		title = topic
	}

	return models.Document{
		Title:   title,
		Content: summary.Extract,
		URL:     summary.ContentURLs.Desktop.Page,
		Metadata: map[string]interface{}{
			"source": KindWikipedia,
			"topic":  topic,
		},
	}, nil
}
