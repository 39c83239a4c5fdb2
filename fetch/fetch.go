// Package fetch downloads a single resource over HTTP into memory.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"
)

const (
	DefaultMaxURLLength   = 8192
	DefaultMaxBodySize    = 64 << 20 // 64MB
	DefaultRequestTimeout = 10 * time.Second
	DefaultUserAgent      = "fetchimg/0.1"

	progressWidth = 40
)

var (
	ErrURLRequired = errors.New("url required")
	ErrURLTooLong  = errors.New("url exceeds max length")
	ErrInvalidURL  = errors.New("invalid url")
	ErrScheme      = errors.New("scheme must be http or https")
	ErrNoHost      = errors.New("url has no host")
	ErrTooLarge    = errors.New("response exceeds max size")
)

type Config struct {
	MaxBodySize    int64
	MaxURLLength   int
	RequestTimeout time.Duration
	UserAgent      string
	// Progress receives a byte progress bar while the body downloads.
	// Nil disables it.
	Progress io.Writer
}

type Client struct {
	cfg    Config
	client *http.Client
}

// Payload is a fully read response.
type Payload struct {
	URL         string
	Status      int
	ContentType string
	Body        []byte
}

// IsImage reports whether the server labelled the payload as an image.
func (p *Payload) IsImage() bool {
	mediaType, _, err := mime.ParseMediaType(p.ContentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "image/")
}

func New(cfg Config) *Client {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.MaxURLLength <= 0 {
		cfg.MaxURLLength = DefaultMaxURLLength
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
}

// ParseURL validates a user supplied URL. Surrounding whitespace is ignored.
func ParseURL(rawURL string, maxLength int) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, ErrURLRequired
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxURLLength
	}
	if len(rawURL) > maxLength {
		return nil, ErrURLTooLong
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, ErrInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, ErrScheme
	}
	if parsed.Hostname() == "" {
		return nil, ErrNoHost
	}
	return parsed, nil
}

// Get issues one GET request for rawURL and returns the whole body.
// Non-2xx responses are errors. Nothing is retried.
func (c *Client) Get(ctx context.Context, rawURL string) (*Payload, error) {
	parsed, err := ParseURL(rawURL, c.cfg.MaxURLLength)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "image/*,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	if resp.ContentLength > c.cfg.MaxBodySize {
		return nil, ErrTooLarge
	}

	label := path.Base(parsed.Path)
	if label == "." || label == "/" {
		label = parsed.Host
	}
	body, err := c.readBody(resp, label)
	if err != nil {
		return nil, err
	}

	return &Payload{
		URL:         resp.Request.URL.String(),
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func (c *Client) readBody(resp *http.Response, label string) ([]byte, error) {
	var (
		body     io.Reader = resp.Body
		progress *mpb.Progress
		bar      *mpb.Bar
	)
	if c.cfg.Progress != nil {
		progress = mpb.New(mpb.WithOutput(c.cfg.Progress), mpb.WithWidth(progressWidth))
		bar = progress.AddBar(max(resp.ContentLength, 0),
			mpb.PrependDecorators(
				decor.Name(label+" "),
				decor.CountersKibiByte("% .2f / % .2f"),
			),
			mpb.AppendDecorators(
				decor.AverageSpeed(decor.UnitKiB, "% .2f"),
			),
		)
		body = bar.ProxyReader(resp.Body)
	}

	data, err := io.ReadAll(io.LimitReader(body, c.cfg.MaxBodySize+1))
	tooLarge := int64(len(data)) > c.cfg.MaxBodySize

	if bar != nil {
		if err != nil || tooLarge {
			bar.Abort(false)
		} else {
			bar.SetTotal(-1, true)
		}
		progress.Wait()
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if tooLarge {
		return nil, ErrTooLarge
	}
	return data, nil
}
