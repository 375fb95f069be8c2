// Package fetch downloads a job posting page and reduces it to plain text.
package fetch

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	userAgent       = "spigell/outreach-composer"
	acceptEncoding  = "gzip"
	defaultTimeout  = 30 * time.Second
	defaultMaxBytes = 5 << 20
)

var noiseSelectors = []string{
	"script", "style", "noscript", "iframe", "svg", "template",
}

type Client struct {
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	// MaxBytes caps the decoded body size.
	MaxBytes int64
}

func New(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
		UserAgent: userAgent,
		MaxBytes:  defaultMaxBytes,
	}
}

// Fetch returns the visible text of the page at rawURL.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", err
	}
	req = c.setHeaders(req)

	c.logger.Debug("make request", zap.String("url", parsed.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}
	if c.MaxBytes > 0 {
		reader = io.LimitReader(reader, c.MaxBytes)
	}

	text, err := ExtractText(reader)
	if err != nil {
		return "", err
	}

	c.logger.Debug("page fetched",
		zap.String("url", parsed.String()),
		zap.Int("text_length", len(text)),
	)

	return text, nil
}

// ExtractText parses an HTML document and returns its visible text, one block per line.
func ExtractText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find(strings.Join(noiseSelectors, ", ")).Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	lines := make([]string, 0)
	for _, line := range strings.Split(root.Text(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return "", errors.New("page contains no text")
	}

	return strings.Join(lines, "\n"), nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", acceptEncoding)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	return req
}
