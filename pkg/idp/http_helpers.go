package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// url builds a complete URL by appending the path to the base URL.
func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// doJSON performs a JSON request and decodes the response into target when
// target is non-nil. A bearer token is attached when provided. Non-expected
// statuses are turned into typed errors via parseErrorResponse.
func (c *Client) doJSON(
	ctx context.Context,
	method, path string,
	payload any,
	bearer string,
	target any,
	expectedStatus int,
) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, respBody)
	}

	if target != nil {
		if err := json.Unmarshal(respBody, target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// requestSession posts a grant payload and decodes the session response.
func (c *Client) requestSession(ctx context.Context, path string, payload any) (*Session, error) {
	var session Session
	if err := c.doJSON(ctx, http.MethodPost, path, payload, "", &session, http.StatusOK); err != nil {
		return nil, err
	}

	fillExpiry(&session)
	return &session, nil
}
