package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"
)

const (
	apiBase        = "https://api.dropboxapi.com/2"
	contentBase    = "https://content.dropboxapi.com/2"
	defaultTimeout = 30 * time.Second
)

// Client is a Dropbox API client.
type Client struct {
	token       string
	http        *http.Client
	apiBase     string
	contentBase string
	logger      zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithAPIBase overrides the RPC endpoint base (https://api.dropboxapi.com/2).
func WithAPIBase(base string) Option {
	return func(c *Client) { c.apiBase = base }
}

// WithContentBase overrides the content endpoint base (https://content.dropboxapi.com/2).
func WithContentBase(base string) Option {
	return func(c *Client) { c.contentBase = base }
}

// NewClient creates a new Dropbox API client.
func NewClient(token string, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		token:       token,
		http:        &http.Client{Timeout: defaultTimeout},
		apiBase:     apiBase,
		contentBase: contentBase,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Download fetches the content of the file at remotePath.
func (c *Client) Download(ctx context.Context, remotePath string) ([]byte, error) {
	remotePath = norm.NFC.String(remotePath)
	c.logger.Debug().Str("remote_path", remotePath).Msg("downloading Dropbox file")

	arg, err := apiArg(remotePath)
	if err != nil {
		return nil, err
	}

	body, err := c.call(ctx, c.contentBase, "/files/download", nil, map[string]string{
		"Dropbox-API-Arg": arg,
	})
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read download response: %w", err)
	}

	c.logger.Info().Str("remote_path", remotePath).Int("bytes", len(data)).Msg("downloaded file")
	return data, nil
}

// ListFolder lists the entries directly under remotePath. Only the first page is fetched.
// Both "" and "/" list the Dropbox root.
func (c *Client) ListFolder(ctx context.Context, remotePath string) (*ListFolderResponse, error) {
	// Dropbox rejects a trailing slash on list_folder, and expects "" for the root.
	remotePath = strings.TrimSuffix(norm.NFC.String(remotePath), "/")
	c.logger.Debug().Str("remote_path", remotePath).Msg("listing Dropbox folder")

	reqBody, err := json.Marshal(pathArg{Path: remotePath})
	if err != nil {
		return nil, fmt.Errorf("failed to encode list_folder request: %w", err)
	}

	body, err := c.call(ctx, c.apiBase, "/files/list_folder", bytes.NewReader(reqBody), map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return nil, err
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read list_folder response: %w", err)
	}

	resp := ListFolderResponse{Raw: raw}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode list_folder response: %w", err)
	}

	c.logger.Info().Int("entries", len(resp.Entries)).Bool("has_more", resp.HasMore).Msg("Dropbox listing complete")
	return &resp, nil
}

// Upload writes data to remotePath.
func (c *Client) Upload(ctx context.Context, remotePath string, data []byte) (*UploadResult, error) {
	remotePath = norm.NFC.String(remotePath)
	c.logger.Debug().Str("remote_path", remotePath).Int("bytes", len(data)).Msg("uploading file to Dropbox")

	arg, err := apiArg(remotePath)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, c.contentBase, "/files/upload", bytes.NewReader(data), map[string]string{
		"Content-Type":    "application/octet-stream",
		"Dropbox-API-Arg": arg,
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req, "/files/upload")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	result := &UploadResult{StatusCode: resp.StatusCode}
	var meta FileMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		c.logger.Debug().Err(err).Msg("upload response carried no file metadata")
	} else {
		result.Metadata = &meta
	}

	c.logger.Info().Str("remote_path", remotePath).Int("status", resp.StatusCode).Msg("uploaded file")
	return result, nil
}

// apiArg encodes the Dropbox-API-Arg header. Dropbox requires characters outside
// printable ASCII (0x7F and above) to be escaped as \uXXXX in this header.
func apiArg(remotePath string) (string, error) {
	arg, err := json.Marshal(pathArg{Path: remotePath})
	if err != nil {
		return "", fmt.Errorf("failed to encode Dropbox-API-Arg: %w", err)
	}

	var b strings.Builder
	for _, r := range string(arg) {
		switch {
		case r < 0x7f:
			b.WriteRune(r)
		case r > 0xFFFF:
			r1, r2 := utf16.EncodeRune(r)
			fmt.Fprintf(&b, "\\u%04x\\u%04x", r1, r2)
		default:
			fmt.Fprintf(&b, "\\u%04x", r)
		}
	}
	return b.String(), nil
}

func (c *Client) call(ctx context.Context, base, endpoint string, body io.Reader, headers map[string]string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, base, endpoint, body, headers)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req, endpoint)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) newRequest(ctx context.Context, base, endpoint string, body io.Reader, headers map[string]string) (*http.Request, error) {
	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// do sends req and returns the response for any 2xx status. Every other status is
// turned into an *APIError with the body consumed and closed.
func (c *Client) do(req *http.Request, endpoint string) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", endpoint, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer func() { _ = resp.Body.Close() }()
	apiErr := parseError(endpoint, resp)
	c.logger.Debug().Str("endpoint", endpoint).Int("status", resp.StatusCode).Msg("Dropbox API call failed")
	return nil, apiErr
}

func parseError(endpoint string, resp *http.Response) *APIError {
	apiErr := &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var summary struct {
		ErrorSummary string `json:"error_summary"`
	}
	if err := json.Unmarshal(body, &summary); err == nil && summary.ErrorSummary != "" {
		apiErr.Summary = summary.ErrorSummary
	} else {
		apiErr.Summary = string(bytes.TrimSpace(body))
	}
	return apiErr
}
