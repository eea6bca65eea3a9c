// Package apiclient is the REST side of the client: login, channel
// directory, and notification preferences over the chat server's HTTP
// API. It backs the interfaces the session engine consumes.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"coursechat/internal/common"
)

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Token returns the session token obtained by Login.
func (c *Client) Token() string { return c.token }

func (c *Client) Register(ctx context.Context, userID, displayName, password string) (common.User, error) {
	var user common.User
	err := c.do(ctx, http.MethodPost, "/api/register", map[string]string{
		"user_id":      userID,
		"display_name": displayName,
		"password":     password,
	}, &user)
	return user, err
}

// Login authenticates and remembers the token for subsequent calls.
func (c *Client) Login(ctx context.Context, userID, password string) (common.User, error) {
	var resp struct {
		Token string      `json:"token"`
		User  common.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/login", map[string]string{
		"user_id":  userID,
		"password": password,
	}, &resp); err != nil {
		return common.User{}, err
	}
	c.token = resp.Token
	return resp.User, nil
}

// ListJoinableChannels implements common.CourseDirectory.
func (c *Client) ListJoinableChannels(ctx context.Context, userID string) ([]common.ChannelInfo, error) {
	var channels []common.ChannelInfo
	if err := c.do(ctx, http.MethodGet, "/api/channels", nil, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// Enroll adds the signed-in user to a course channel.
func (c *Client) Enroll(ctx context.Context, channelID string) error {
	return c.do(ctx, http.MethodPost, "/api/channels/"+channelID+"/enroll", nil, nil)
}

// GetPreferences implements common.PreferenceStore.
func (c *Client) GetPreferences(ctx context.Context, userID string) (common.Preferences, error) {
	var prefs common.Preferences
	if err := c.do(ctx, http.MethodGet, "/api/preferences", nil, &prefs); err != nil {
		return common.Preferences{}, err
	}
	return prefs, nil
}

func (c *Client) SetGlobalPreference(ctx context.Context, enabled bool) error {
	return c.do(ctx, http.MethodPut, "/api/preferences/global", map[string]bool{"enabled": enabled}, nil)
}

func (c *Client) SetChannelPreference(ctx context.Context, channelID string, enabled bool) error {
	return c.do(ctx, http.MethodPut, "/api/preferences/channel", map[string]interface{}{
		"channel_id": channelID,
		"enabled":    enabled,
	}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(data)
	} else {
		body = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: unexpected status %s", method, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
