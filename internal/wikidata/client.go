// Package wikidata fetches entity claims from the Wikidata API and image
// thumbnails from Wikimedia Commons.
package wikidata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/woozymasta/boundtiles/internal/cache"

	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when an entity, claim or thumbnail does not exist.
var ErrNotFound = errors.New("not found")

// Client queries the Wikidata and Commons APIs.
type Client struct {
	HTTP       *http.Client
	Cache      cache.Cache
	APIURL     string
	CommonsURL string
	UserAgent  string
	// Attempts bounds the retry loop. Only timeouts are retried.
	Attempts int
}

// NewClient returns a client with a per-request timeout and no cache.
func NewClient(apiURL, commonsURL, userAgent string, timeout time.Duration, attempts int) *Client {
	return &Client{
		HTTP:       &http.Client{Timeout: timeout},
		Cache:      cache.Nop{},
		APIURL:     apiURL,
		CommonsURL: commonsURL,
		UserAgent:  userAgent,
		Attempts:   attempts,
	}
}

type entitiesResponse struct {
	Entities map[string]Entity `json:"entities"`
	Error    *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
	Success int `json:"success"`
}

type pagesResponse struct {
	Query struct {
		Pages map[string]struct {
			Thumbnail *struct {
				Source string `json:"source"`
			} `json:"thumbnail"`
			Title string `json:"title"`
		} `json:"pages"`
	} `json:"query"`
}

// Entity fetches the claims of a single entity (e.g. "Q193875").
func (c *Client) Entity(ctx context.Context, id string) (*Entity, error) {
	q := url.Values{}
	q.Set("action", "wbgetentities")
	q.Set("format", "json")
	q.Set("languages", "fr")
	q.Set("props", "claims")
	q.Set("ids", id)

	var resp entitiesResponse
	err := c.getJSON(ctx, c.APIURL+"?"+q.Encode(), &resp, func() error {
		if resp.Success == 1 {
			return nil
		}
		if resp.Error != nil {
			return fmt.Errorf("wikidata %s: %s: %s", id, resp.Error.Code, resp.Error.Info)
		}
		return fmt.Errorf("wikidata %s: request was not successful", id)
	})
	if err != nil {
		return nil, err
	}

	e, ok := resp.Entities[id]
	if !ok {
		// redirected ids come back under their target
		if len(resp.Entities) != 1 {
			return nil, fmt.Errorf("entity %s: %w", id, ErrNotFound)
		}
		for _, only := range resp.Entities {
			e = only
		}
	}
	if e.Missing != nil {
		return nil, fmt.Errorf("entity %s: %w", id, ErrNotFound)
	}

	return &e, nil
}

// Thumbnail returns the thumbnail URL of a Commons file (without the "File:" prefix).
func (c *Client) Thumbnail(ctx context.Context, file string) (string, error) {
	q := url.Values{}
	q.Set("action", "query")
	q.Set("format", "json")
	q.Set("prop", "pageimages")
	q.Set("titles", "File:"+file)

	var resp pagesResponse
	if err := c.getJSON(ctx, c.CommonsURL+"?"+q.Encode(), &resp, nil); err != nil {
		return "", err
	}

	for _, page := range resp.Query.Pages {
		if page.Thumbnail != nil && page.Thumbnail.Source != "" {
			return page.Thumbnail.Source, nil
		}
	}

	return "", fmt.Errorf("thumbnail %s: %w", file, ErrNotFound)
}

// getJSON fetches rawURL through the cache and decodes it into v.
// A fresh body is cached only after it decodes and check, when set, accepts it.
func (c *Client) getJSON(ctx context.Context, rawURL string, v any, check func() error) error {
	store := c.Cache
	if store == nil {
		store = cache.Nop{}
	}

	body, hit, err := store.Get(ctx, rawURL)
	if err != nil {
		log.Warn().Err(err).Msg("Cache read failed, querying API")
	}

	if hit {
		log.Trace().Str("url", rawURL).Msg("Cache hit")
	} else if body, err = c.fetch(ctx, rawURL); err != nil {
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}

	if check != nil {
		if err := check(); err != nil {
			return err
		}
	}

	if !hit {
		if err := store.Set(ctx, rawURL, body); err != nil {
			log.Warn().Err(err).Msg("Cache write failed")
		}
	}

	return nil
}

// fetch performs the GET, retrying only when the request timed out.
func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	attempts := c.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		body, err := c.get(ctx, rawURL)
		if err == nil {
			return body, nil
		}

		if ctx.Err() != nil || !isTimeout(err) {
			return nil, err
		}

		lastErr = err
		log.Debug().
			Err(err).
			Int("attempt", i).
			Str("url", rawURL).
			Msg("Request timed out")
	}

	return nil, fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr)
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
