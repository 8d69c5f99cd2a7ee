package source

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/ragchat/internal/models"
	"github.com/xhad/ragchat/internal/types"
	"golang.org/x/time/rate"
)

type WebsiteConfig struct {
	BaseURL           string
	MaxDepth          int
	RateLimit         float64 // requests per second
	IgnorePatterns    []string
	AllowedExtensions []string
	Timeout           time.Duration
	Logger            *log.Logger
	OnProgress        func(url string)
}

// Website crawls pages on the host of BaseURL, one document per page.
type Website struct {
	config   WebsiteConfig
	client   *http.Client
	limiter  *rate.Limiter
	logger   *log.Logger
	baseHost string
	visited  map[string]bool
}

var _ types.Source = (*Website)(nil)

func NewWebsite(config WebsiteConfig) (*Website, error) {
	if config.BaseURL == "" {
		return nil, types.Configf("website", "base URL is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxDepth == 0 {
		config.MaxDepth = 3
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if len(config.AllowedExtensions) == 0 {
		config.AllowedExtensions = []string{".html", ".htm", "/", ""}
	}

	parsedURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, types.Configf("website", "invalid base URL: %v", err)
	}

	return &Website{
		config:   config,
		client:   &http.Client{Timeout: config.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		logger:   loggerOrDefault(config.Logger),
		baseHost: parsedURL.Host,
	}, nil
}

// Fetch crawls from BaseURL. A failure on the start page fails the crawl;
// failures deeper in are logged and skipped.
func (w *Website) Fetch(ctx context.Context) ([]models.Document, error) {
	w.visited = make(map[string]bool)

	var documents []models.Document
	if err := w.crawl(ctx, w.config.BaseURL, 0, &documents); err != nil {
		return nil, err
	}
	return documents, nil
}

func (w *Website) shouldProcessURL(urlStr string) bool {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	if parsedURL.Host != w.baseHost {
		return false
	}

	path := strings.ToLower(parsedURL.Path)
	validExt := false
	for _, allowedExt := range w.config.AllowedExtensions {
		if strings.HasSuffix(path, allowedExt) {
			validExt = true
			break
		}
	}
	if !validExt {
		return false
	}

	for _, pattern := range w.config.IgnorePatterns {
		if strings.Contains(urlStr, pattern) {
			return false
		}
	}

	return true
}

var noisePatterns = []string{
	"Cookie Policy",
	"Accept Cookies",
	"Privacy Policy",
	"Terms of Service",
}

func cleanContent(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	for _, pattern := range noisePatterns {
		content = strings.ReplaceAll(content, pattern, "")
	}
	return strings.TrimSpace(content)
}

func extractMainContent(doc *goquery.Document) string {
	doc.Find("script, style, nav, footer").Remove()

	selectors := []string{
		"main",
		"article",
		".content",
		"#content",
		".documentation",
		"#documentation",
	}

	var content string
	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}

	if content == "" {
		content = doc.Find("body").Text()
	}

	return cleanContent(content)
}

func (w *Website) crawl(ctx context.Context, urlStr string, depth int, documents *[]models.Document) error {
	urlStr = strings.SplitN(urlStr, "#", 2)[0]
	if depth > w.config.MaxDepth || w.visited[urlStr] {
		return nil
	}
	if !w.shouldProcessURL(urlStr) {
		return nil
	}

	w.visited[urlStr] = true
	if w.config.OnProgress != nil {
		w.config.OnProgress(urlStr)
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, urlStr)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	var links []string
	doc.Find("a[href]").Each(func(_ int, selection *goquery.Selection) {
		if href, ok := selection.Attr("href"); ok {
			links = append(links, href)
		}
	})

	content := extractMainContent(doc)
	if content != "" {
		if title == "" {
			title = urlStr
		}
		*documents = append(*documents, models.Document{
			URL:     urlStr,
			Title:   title,
			Content: content,
			Metadata: map[string]interface{}{
				"source":       KindWebsite,
				"depth":        depth,
				"contentType":  resp.Header.Get("Content-Type"),
				"lastModified": resp.Header.Get("Last-Modified"),
			},
		})
	}

	base, err := url.Parse(urlStr)
	if err != nil {
		return err
	}
	for _, href := range links {
		link, err := url.Parse(href)
		if err != nil {
			w.logger.Printf("Error parsing URL: %v", err)
			continue
		}
		next := base.ResolveReference(link).String()
		if err := w.crawl(ctx, next, depth+1, documents); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Printf("Error scraping URL: %v", err)
		}
	}

	return nil
}
