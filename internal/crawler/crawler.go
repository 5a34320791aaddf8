package crawler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	colly "github.com/gocolly/colly/v2"
	"golang.org/x/net/html/charset"

	"github.com/dianabombi/student-advisor-sub002/internal/logger"
)

var httpTransport = &http.Transport{
	DisableCompression: false,
}

// Config holds configuration for one crawl run.
type Config struct {
	URL            string
	MaxPages       int
	AllowedDomains []string
	FollowLinks    bool
	Timeout        time.Duration
	// Optional JS rendering for the initial page
	RenderJS      bool
	RenderTimeout time.Duration
}

// Page is one fetched page with its extracted text.
type Page struct {
	URL        string
	Title      string
	Content    string
	Language   string
	StatusCode int
	WordCount  int
	FetchedAt  time.Time
}

// Result holds the outcome of a crawl run.
type Result struct {
	URL          string
	Pages        []Page
	PagesFound   int
	PagesCrawled int
}

// TransientError marks a failure worth retrying in place: network trouble,
// timeouts, rate limiting, server errors. Everything else is terminal.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried with backoff.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

func transientf(format string, args ...any) error {
	return &TransientError{Err: fmt.Errorf(format, args...)}
}

// normalizeURL normalizes a URL to a canonical form for duplicate detection.
func normalizeURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	parsed.Fragment = ""

	path := parsed.Path
	if path == "" {
		path = "/"
	} else if path != "/" {
		path = strings.TrimSuffix(path, "/")
		if path == "" {
			path = "/"
		}
	}
	parsed.Path = path

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)

	if parsed.Port() == "80" && parsed.Scheme == "http" {
		host, _, _ := strings.Cut(parsed.Host, ":")
		parsed.Host = host
	}
	if parsed.Port() == "443" && parsed.Scheme == "https" {
		host, _, _ := strings.Cut(parsed.Host, ":")
		parsed.Host = host
	}

	return parsed.String(), nil
}

// Crawl fetches an institution website breadth-first starting from cfg.URL,
// extracting the main text of every page it keeps.
func Crawl(cfg Config) (*Result, error) {
	result := &Result{URL: cfg.URL}

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" {
		parsedURL.Scheme = "https"
		cfg.URL = parsedURL.String()
	}

	startURL, err := normalizeURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL format: %w", err)
	}

	allowedDomains := cfg.AllowedDomains
	if len(allowedDomains) == 0 {
		hostname := parsedURL.Hostname()
		if hostname != "" {
			clean := strings.TrimPrefix(strings.ToLower(hostname), "www.")
			allowedDomains = []string{clean, "www." + clean, hostname}
		}
	}

	// Fresh collector per crawl; each run gets its own visit state.
	options := []colly.CollectorOption{
		colly.Async(true),
		colly.MaxDepth(2),
	}
	if len(allowedDomains) > 0 {
		options = append(options, colly.AllowedDomains(allowedDomains...))
	}
	c := colly.NewCollector(options...)
	c.WithTransport(httpTransport)

	if cfg.Timeout > 0 {
		c.SetRequestTimeout(cfg.Timeout)
	} else {
		c.SetRequestTimeout(60 * time.Second)
	}

	c.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       2 * time.Second,
		RandomDelay: 1 * time.Second,
	})

	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 50
	}

	var (
		pagesMu  sync.Mutex
		pages    []Page
		crawlErr error
	)
	processed := sync.Map{}
	queued := sync.Map{}

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		r.Headers.Set("Accept-Encoding", "gzip, deflate, br")
		r.Headers.Set("Upgrade-Insecure-Requests", "1")
	})

	c.OnResponse(func(r *colly.Response) {
		contentType := r.Headers.Get("Content-Type")
		if contentType != "" && !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml+xml") {
			return
		}

		// Go's transport decompresses gzip; brotli needs manual handling.
		contentEncoding := r.Headers.Get("Content-Encoding")
		var bodyReader io.Reader = bytes.NewReader(r.Body)
		if strings.Contains(contentEncoding, "br") {
			brReader := brotli.NewReader(bodyReader)
			if decompressed, err := io.ReadAll(brReader); err == nil {
				r.Body = decompressed
				bodyReader = bytes.NewReader(decompressed)
			}
		}

		// Decode charset to UTF-8 when detectable.
		if len(r.Body) > 0 {
			if utf8Reader, err := charset.NewReader(bodyReader, contentType); err == nil {
				if decoded, readErr := io.ReadAll(utf8Reader); readErr == nil && len(decoded) > 0 {
					r.Body = decoded
				}
			}
		}

		result.PagesFound++
	})

	c.OnHTML("html", func(e *colly.HTMLElement) {
		pagesMu.Lock()
		defer pagesMu.Unlock()

		if len(pages) >= maxPages {
			return
		}

		pageURL, err := normalizeURL(e.Request.URL.String())
		if err != nil {
			return
		}
		if _, exists := processed.LoadOrStore(pageURL, true); exists {
			return
		}

		doc := e.DOM
		title := strings.TrimSpace(doc.Find("title").Text())
		content := extractMainContent(e.DOM)
		if len(content) < 50 {
			content = doc.Find("body").Text()
		}

		wordCount := len(strings.Fields(content))
		if wordCount < 10 {
			return
		}

		pages = append(pages, Page{
			URL:        pageURL,
			Title:      title,
			Content:    content,
			Language:   DetectLanguage(content),
			StatusCode: e.Response.StatusCode,
			WordCount:  wordCount,
			FetchedAt:  time.Now(),
		})

		if cfg.FollowLinks && len(pages) < maxPages {
			linkCount := 0
			doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
				if len(pages) >= maxPages || linkCount >= 20 {
					return
				}
				href, exists := s.Attr("href")
				if !exists || href == "" {
					return
				}
				hrefLower := strings.ToLower(href)
				if strings.HasPrefix(href, "#") ||
					strings.HasPrefix(hrefLower, "javascript:") ||
					strings.HasPrefix(hrefLower, "mailto:") ||
					strings.HasPrefix(hrefLower, "tel:") {
					return
				}

				absoluteURL := e.Request.AbsoluteURL(href)
				if absoluteURL == "" {
					return
				}
				normalized, err := normalizeURL(absoluteURL)
				if err != nil {
					return
				}
				if _, queuedBefore := queued.LoadOrStore(normalized, true); queuedBefore {
					return
				}
				if _, done := processed.Load(normalized); done {
					return
				}
				if isURLAllowed(normalized, allowedDomains) {
					linkCount++
					c.Visit(normalized)
				}
			})
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		errURL, _ := normalizeURL(r.Request.URL.String())
		if errURL != startURL {
			logger.Debug("page fetch failed", "url", r.Request.URL.String(), "status", r.StatusCode, "error", err)
			return
		}

		pagesMu.Lock()
		defer pagesMu.Unlock()
		if len(pages) > 0 || crawlErr != nil {
			return
		}

		status := r.StatusCode
		switch {
		case status == 403:
			crawlErr = fmt.Errorf("access forbidden (403): the website blocked the crawler")
		case status == 429:
			crawlErr = transientf("rate limited (429): too many requests")
		case status >= 500:
			crawlErr = transientf("server error (%d)", status)
		case isNetworkError(err):
			crawlErr = transientf("network error: %v", err)
		default:
			if strings.Contains(err.Error(), "already visited") {
				return
			}
			crawlErr = fmt.Errorf("failed to crawl %s: %w", startURL, err)
		}
	})

	queued.Store(startURL, true)

	// Optionally prerender the initial page for JS-heavy sites.
	if cfg.RenderJS {
		if page, err := renderInitialPage(startURL, cfg.RenderTimeout); err == nil && page != nil {
			pagesMu.Lock()
			pages = append(pages, *page)
			processed.Store(startURL, true)
			pagesMu.Unlock()
		} else if err != nil {
			logger.Warn("JS render failed, falling back to plain fetch", "url", startURL, "error", err)
		}
	}

	if err := c.Visit(startURL); err != nil && !strings.Contains(err.Error(), "already visited") {
		if isNetworkError(err) {
			return nil, transientf("failed to start crawl: %v", err)
		}
		return nil, fmt.Errorf("failed to start crawl: %w", err)
	}

	c.Wait()

	pagesMu.Lock()
	defer pagesMu.Unlock()

	if len(pages) == 0 {
		if crawlErr != nil {
			return nil, crawlErr
		}
		return nil, fmt.Errorf("no usable pages at %s", startURL)
	}

	result.Pages = pages
	result.PagesCrawled = len(pages)
	return result, nil
}

func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset")
}

// extractMainContent extracts the main text from a goquery Selection,
// preferring semantic HTML5 containers over the raw body.
func extractMainContent(selection *goquery.Selection) string {
	doc := selection.Clone()

	doc.Find("script, style, nav, footer, header, aside, .nav, .navbar, .footer, .header, .sidebar, .advertisement, .ads, .skip-link").Remove()

	contentSelectors := []string{
		"main",
		"article",
		"[role='main']",
		".main-content",
		".content",
		"#content",
		"body",
	}

	var content strings.Builder
	contentFound := false

	for _, selector := range contentSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > 100 {
				content.WriteString(text)
				content.WriteString("\n\n")
				contentFound = true
			}
		})
		if contentFound {
			break
		}
	}

	if !contentFound {
		content.WriteString(doc.Find("body").Text())
	}

	text := strings.TrimSpace(content.String())

	lines := strings.Split(text, "\n")
	var cleanedLines []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleanedLines = append(cleanedLines, line)
		}
	}
	return strings.Join(cleanedLines, "\n")
}

// isURLAllowed filters links to same-site content pages.
func isURLAllowed(urlStr string, allowedDomains []string) bool {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}

	if len(allowedDomains) > 0 {
		hostname := strings.ToLower(parsed.Hostname())
		hostnameClean := strings.TrimPrefix(hostname, "www.")
		domainAllowed := false
		for _, allowedDomain := range allowedDomains {
			allowedDomain = strings.ToLower(strings.TrimPrefix(allowedDomain, "www."))
			if hostnameClean == allowedDomain || strings.HasSuffix(hostnameClean, "."+allowedDomain) {
				domainAllowed = true
				break
			}
		}
		if !domainAllowed {
			return false
		}
	}

	excludedPatterns := []string{
		"/wp-json/", "/api/", "/ajax/",
		".pdf", ".jpg", ".jpeg", ".png", ".gif", ".svg", ".css", ".js", ".xml",
		"/feed/", "/rss/", "/atom/",
		"/search?", "/?s=",
		"/wp-admin/", "/wp-includes/",
		"/login", "/signin", "/cart",
	}

	pathLower := strings.ToLower(parsed.Path)
	queryLower := strings.ToLower(parsed.RawQuery)
	for _, pattern := range excludedPatterns {
		if strings.Contains(pathLower, pattern) || strings.Contains(queryLower, pattern) {
			return false
		}
	}

	return true
}
