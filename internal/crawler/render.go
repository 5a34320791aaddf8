package crawler

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// renderInitialPage launches a headless browser for the first page of
// JS-heavy sites, then parses the rendered HTML like a normal fetch.
func renderInitialPage(urlStr string, timeout time.Duration) (*Page, error) {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"),
	)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var html string
	if err := chromedp.Run(browserCtx, chromedp.Navigate(urlStr)); err != nil {
		return nil, err
	}

	// Soft-fail ready check
	stepCtx, cancelStep := context.WithTimeout(browserCtx, 10*time.Second)
	defer cancelStep()
	_ = chromedp.Run(stepCtx, chromedp.WaitReady("body", chromedp.ByQuery))

	if err := chromedp.Run(browserCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(doc.Find("title").Text())
	content := extractMainContent(doc.Selection)
	wordCount := len(strings.Fields(content))
	if wordCount < 10 {
		return nil, nil
	}

	return &Page{
		URL:        urlStr,
		Title:      title,
		Content:    content,
		Language:   DetectLanguage(content),
		StatusCode: 200,
		WordCount:  wordCount,
		FetchedAt:  time.Now(),
	}, nil
}
