// Package douban adapts the Douban web pages into the metadata provider
// used by catalog enrichment. Subjects are located through the site search
// and scraped from the subject detail page.
package douban

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"log/slog"

	"github.com/PuerkitoBio/goquery"
)

const (
	searchPath = "/search"
	detailPath = "/subject/"

	// Douban serves a degraded page to unknown clients.
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/103.0.0.0 Safari/537.36"
)

// Subject is the descriptive metadata scraped from one subject page.
type Subject struct {
	Pic        string
	Directors  string
	Writers    string
	Actors     string
	Types      string
	ReleasedAt string
	Summary    string
	Rating     float64
}

type Client struct {
	baseURL  string
	imageDir string
	client   *http.Client
	logger   *slog.Logger
}

func NewClient(baseURL, imageDir string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		imageDir: imageDir,
		client:   &http.Client{},
		logger:   logger,
	}
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("request %s: unexpected status %s", url, resp.Status)
	}
	return resp, nil
}

// subjectURL resolves a resource name to its subject page through the site
// search. Search results link out through a redirect whose url query param
// carries the real subject address.
func (c *Client) subjectURL(ctx context.Context, keyword string) (string, error) {
	resp, err := c.get(ctx, fmt.Sprintf("%s%s?cat=1002&q=%s", c.baseURL, searchPath, url.QueryEscape(keyword)))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse search page: %w", err)
	}

	href, ok := doc.Find(".result-list>div.result:nth-of-type(1) .content .title a").First().Attr("href")
	if !ok {
		return "", fmt.Errorf("no search result for %q", keyword)
	}

	link, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse result link: %w", err)
	}
	target, err := url.Parse(link.Query().Get("url"))
	if err != nil {
		return "", fmt.Errorf("parse subject link: %w", err)
	}

	segments := strings.Split(target.Path, "/")
	if len(segments) < 3 || segments[2] == "" {
		return "", fmt.Errorf("no subject id in %q", target.Path)
	}
	return c.baseURL + detailPath + segments[2], nil
}

// Subject looks a resource up by name and scrapes its detail page. Missing
// page sections leave the corresponding fields empty.
func (c *Client) Subject(ctx context.Context, name string) (*Subject, error) {
	pageURL, err := c.subjectURL(ctx, name)
	if err != nil {
		return nil, err
	}

	resp, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse subject page: %w", err)
	}

	return parseSubject(doc), nil
}

func parseSubject(doc *goquery.Document) *Subject {
	subject := &Subject{}

	wrap := doc.Find("#content .article>div .subjectwrap")
	if wrap.Length() > 0 {
		subject.Pic = wrap.Find("#mainpic>a>img").First().AttrOr("src", "")
		subject.Directors = joinTexts(wrap.Find(".subject #info>span:nth-child(1)>.attrs>a"))
		subject.Writers = joinTexts(wrap.Find(".subject #info>span:nth-child(3)>.attrs>a"))
		subject.Actors = joinTexts(wrap.Find(".subject #info>span:nth-child(5)>.attrs>a"))
		subject.Types = joinTexts(wrap.Find(".subject #info>span[property='v:genre']"))
		subject.ReleasedAt = wrap.Find(".subject #info>span[property='v:initialReleaseDate']").First().Text()
	}

	if text := doc.Find("#interest_sectl .rating_wrap .rating_self .rating_num").First().Text(); text != "" {
		if rating, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
			subject.Rating = rating
		}
	}

	subject.Summary = doc.Find(".related-info>div>span:nth-child(1)").First().Text()
	return subject
}

func joinTexts(sel *goquery.Selection) string {
	var parts []string
	sel.Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, s.Text())
	})
	return strings.Join(parts, "/")
}

// DownloadImage fetches src into the image cache and returns the cached
// filename. The name is derived from the source URL, so downloading the
// same picture twice overwrites in place instead of accumulating copies.
func (c *Client) DownloadImage(ctx context.Context, src string) (string, error) {
	filename := ImageFilename(src)

	if err := os.MkdirAll(c.imageDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure image dir: %w", err)
	}

	resp, err := c.get(ctx, src)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	file, err := os.Create(filepath.Join(c.imageDir, filename))
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return "", fmt.Errorf("write image file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close image file: %w", err)
	}

	return filename, nil
}

// ImageFilename names a cached picture after the digest of its source URL.
func ImageFilename(src string) string {
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:]) + ".webp"
}
