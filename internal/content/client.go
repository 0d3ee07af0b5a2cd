// Package content implements the remote content-service client: media
// resolution, episode lists, and watch-progress persistence.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/strandmedia/strand/internal/domain"
)

const userAgent = "Strand/1.0"

// Client implements domain.ContentService over the service's REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new content-service client. Timeouts are owned by
// the caller's context, not the transport.
func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// GetMediaDetails resolves a title or episode to a playable session.
func (c *Client) GetMediaDetails(ctx context.Context, req domain.MediaDetailsRequest) (*domain.MediaSession, error) {
	query := url.Values{}
	if req.MediaType == domain.MediaTypeTV {
		query.Set("season", strconv.Itoa(req.Season))
		query.Set("episode", strconv.Itoa(req.Episode))
	}
	if req.IncludeWatchHistory {
		query.Set("watchHistory", "1")
	}

	path := fmt.Sprintf("/api/media/%s/%s", req.MediaType, url.PathEscape(req.MediaID))
	body, err := c.doRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}

	var dto mediaDetailsResponse
	if err := json.Unmarshal(body, &dto); err != nil {
		c.logger.Error("JSON parse error", "error", err, "bodyLen", len(body))
		return nil, fmt.Errorf("failed to parse media details: %w", err)
	}

	return mapMediaSession(&dto, req), nil
}

// GetTVMediaDetails resolves the episode list for one season.
func (c *Client) GetTVMediaDetails(ctx context.Context, req domain.TVDetailsRequest) ([]domain.EpisodeListEntry, error) {
	query := url.Values{}
	query.Set("season", strconv.Itoa(req.Season))
	if req.IncludeWatchHistory {
		query.Set("watchHistory", "1")
	}

	path := fmt.Sprintf("/api/media/tv/%s/episodes", url.PathEscape(req.MediaID))
	body, err := c.doRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}

	var dto tvDetailsResponse
	if err := json.Unmarshal(body, &dto); err != nil {
		c.logger.Error("JSON parse error", "error", err, "bodyLen", len(body))
		return nil, fmt.Errorf("failed to parse episode list: %w", err)
	}

	return mapEpisodes(dto.Episodes), nil
}

// UpdatePlaybackProgress persists one progress observation. The response
// body is not consumed.
func (c *Client) UpdatePlaybackProgress(ctx context.Context, progress domain.PlaybackProgress) error {
	payload, err := json.Marshal(progress)
	if err != nil {
		return err
	}

	_, err = c.doRequest(ctx, http.MethodPost, "/api/playback/progress", nil, payload)
	return err
}

// doRequest performs an authenticated HTTP request.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	reqURL := c.baseURL + path
	if query != nil {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("content request", "method", method, "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("content request failed", "error", err)
		return nil, domain.ErrServiceOffline
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return body, nil
	case http.StatusUnauthorized:
		return nil, domain.ErrAuthFailed
	case http.StatusNotFound:
		return nil, domain.ErrNotFound
	default:
		c.logger.Error("content request error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}
