// Package client is a Go client for an otterseal server. All
// cryptography happens here: note titles never leave the process, only
// the derived id and the sealed envelope go over the wire.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"otterseal/pkg/seal"
)

var (
	// ErrNotFound means no note exists under the derived id.
	ErrNotFound = errors.New("note not found")
	// ErrGone means the note existed but has expired or been burned.
	ErrGone = errors.New("note gone")
)

type Client struct {
	base string
	http *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New builds a client for the server at base, e.g. "http://localhost:8080".
func New(base string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ShareOptions controls note lifetime. ExpiresIn is a convenience that
// wins over ExpiresAt when both are set.
type ShareOptions struct {
	ExpiresAt        *time.Time
	ExpiresIn        time.Duration
	BurnAfterReading bool
}

type shareRequest struct {
	Content          string `json:"content"`
	ExpiresAt        *int64 `json:"expiresAt,omitempty"`
	BurnAfterReading bool   `json:"burnAfterReading,omitempty"`
}

type fetchResponse struct {
	Content          string `json:"content"`
	ExpiresAt        *int64 `json:"expiresAt"`
	BurnAfterReading bool   `json:"burnAfterReading"`
}

// PeekInfo is note metadata returned without consuming the note.
type PeekInfo struct {
	ExpiresAt        *time.Time
	BurnAfterReading bool
}

// Share seals plaintext under the title's derived key and stores it.
// Sharing a title that already holds a note overwrites it.
func (c *Client) Share(ctx context.Context, title, plaintext string, opts ShareOptions) error {
	env, err := seal.Seal(plaintext, seal.DeriveKey(title))
	if err != nil {
		return fmt.Errorf("seal note: %w", err)
	}
	req := shareRequest{Content: env, BurnAfterReading: opts.BurnAfterReading}
	if opts.ExpiresIn > 0 {
		at := time.Now().Add(opts.ExpiresIn).UnixMilli()
		req.ExpiresAt = &at
	} else if opts.ExpiresAt != nil {
		at := opts.ExpiresAt.UnixMilli()
		req.ExpiresAt = &at
	}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPost, c.noteURL(title), bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

// Fetch reads and decrypts the note stored under title. Fetching a
// burn-after-reading note destroys it on the server. Returns "" with a
// nil error when the envelope does not open under this title's key.
func (c *Client) Fetch(ctx context.Context, title string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, c.noteURL(title), nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp)
	}
	var fr fetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return seal.Open(fr.Content, seal.DeriveKey(title)), nil
}

// Peek reports whether a note exists under title and its lifetime
// settings, without consuming it.
func (c *Client) Peek(ctx context.Context, title string) (PeekInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, c.noteURL(title)+"?peek=1", nil)
	if err != nil {
		return PeekInfo{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return PeekInfo{}, statusError(resp)
	}
	var pr struct {
		ExpiresAt        *int64 `json:"expiresAt"`
		BurnAfterReading bool   `json:"burnAfterReading"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return PeekInfo{}, fmt.Errorf("decode response: %w", err)
	}
	info := PeekInfo{BurnAfterReading: pr.BurnAfterReading}
	if pr.ExpiresAt != nil {
		t := time.UnixMilli(*pr.ExpiresAt)
		info.ExpiresAt = &t
	}
	return info, nil
}

func (c *Client) noteURL(title string) string {
	return c.base + "/api/notes/" + seal.DeriveID(title)
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

func statusError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusGone:
		return ErrGone
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &e) == nil && e.Error != "" {
		return fmt.Errorf("server: %s (status %d)", e.Error, resp.StatusCode)
	}
	return fmt.Errorf("server: unexpected status %d", resp.StatusCode)
}
