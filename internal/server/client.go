package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pmulch/gamekit/internal/game"
	"github.com/pmulch/gamekit/internal/session"
)

// Client is the device-side caller for the two operations that need
// server authority: joining by access code and generating a unique
// access code. It satisfies session.Joiner and game.Coder.
type Client struct {
	base string
	http *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		base: strings.TrimSuffix(baseURL, "/"),
		http: httpClient,
	}
}

// Join adds a new player to the game matching the access code.
func (c *Client) Join(ctx context.Context, accessCode, name string) (session.JoinResult, error) {
	body, err := json.Marshal(joinRequest{
		AccessCode: accessCode,
		Name:       name,
	})
	if err != nil {
		return session.JoinResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/games/join", bytes.NewReader(body))
	if err != nil {
		return session.JoinResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return session.JoinResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return session.JoinResult{}, decodeError(resp)
	}
	var result session.JoinResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return session.JoinResult{}, err
	}
	return result, nil
}

// Unique fetches a fresh unique access code.
func (c *Client) Unique(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/access-code", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp)
	}
	var result struct {
		AccessCode string `json:"access_code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.AccessCode, nil
}

func decodeError(resp *http.Response) error {
	var payload errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	switch payload.Error {
	case codeGameNotFound:
		return game.ErrGameNotFound
	case codePlayerNotFound:
		return game.ErrPlayerNotFound
	case codeTooManyAttempts:
		return game.ErrTooManyAttempts
	case codeInvalidParameters:
		return game.ErrInvalidParameters
	}
	if payload.Details != "" {
		return fmt.Errorf("%s: %s", payload.Error, payload.Details)
	}
	return fmt.Errorf("request failed with status %d", resp.StatusCode)
}
