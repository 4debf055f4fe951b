// Package slack is a client for the handful of Slack Web API methods the
// catalog uses to notify team members. User-id and conversation lookups
// go through bounded caches so notification fan-out does not hammer the
// lookup endpoints.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/teamcatalog/catalog-auth/cache"
	"github.com/teamcatalog/catalog-auth/internal/config"
	apperrors "github.com/teamcatalog/catalog-auth/internal/errors"
)

const (
	lookupByEmailPath    = "/users.lookupByEmail"
	openConversationPath = "/conversations.open"
	postMessagePath      = "/chat.postMessage"

	// Structured error code for an unknown email, per the API's error
	// catalog. Matched on the decoded envelope field, never on rendered
	// error messages.
	errCodeUsersNotFound = "users_not_found"
)

// Directory resolves an organization ident to an email address.
type Directory interface {
	EmailForIdent(ctx context.Context, ident string) (email string, found bool, err error)
}

// APIError is a non-ok response envelope from the Slack API.
type APIError struct {
	Code string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack api error: %s", e.Code)
}

func (e *APIError) Unwrap() error {
	return apperrors.ErrRemoteCall
}

// envelope is the common part of every Slack API response. OK is a
// pointer so a response missing the flag entirely is detectable.
type envelope struct {
	OK    *bool  `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (e *envelope) env() *envelope { return e }

type payload interface {
	env() *envelope
}

type userResponse struct {
	envelope
	User struct {
		ID string `json:"id"`
	} `json:"user"`
}

type conversationResponse struct {
	envelope
	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`
}

type postMessageResponse struct {
	envelope
}

type openConversationRequest struct {
	Users string `json:"users"`
}

type postMessageRequest struct {
	Channel string  `json:"channel"`
	Blocks  []Block `json:"blocks"`
}

// Client calls the Slack Web API with bearer-token auth. The user-id and
// conversation caches are independent: separate key spaces, each with
// its own idle expiry and capacity bound, single-flight per key.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	directory  Directory

	userIDs       *cache.Loader[string]
	conversations *cache.Loader[string]
}

// NewClient creates a Slack client. directory may be nil if ident-based
// messaging is not needed.
func NewClient(cfg config.SlackConfig, directory Directory) *Client {
	c := &Client{
		baseURL:    cfg.GetSlackBaseURL(),
		token:      cfg.GetSlackToken(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		directory:  directory,
	}
	c.userIDs = cache.NewLoader(cfg.GetSlackCacheTTL(), cfg.GetSlackCacheSize(), c.lookupUserID)
	c.conversations = cache.NewLoader(cfg.GetSlackCacheTTL(), cfg.GetSlackCacheSize(), c.openConversation)
	return c
}

// LookupUserByEmail resolves an email to a Slack user id. found is false
// when the API reports no such user; that answer is cached.
func (c *Client) LookupUserByEmail(ctx context.Context, email string) (string, bool, error) {
	return c.userIDs.Get(ctx, email)
}

// OpenConversation opens (or re-opens) a direct-message channel with the
// given user and returns its channel id.
func (c *Client) OpenConversation(ctx context.Context, userID string) (string, error) {
	channel, _, err := c.conversations.Get(ctx, userID)
	return channel, err
}

// PostMessage posts blocks to a channel.
func (c *Client) PostMessage(ctx context.Context, channelID string, blocks []Block) error {
	var response postMessageResponse
	request := postMessageRequest{Channel: channelID, Blocks: blocks}
	if err := c.call(ctx, http.MethodPost, postMessagePath, request, &response); err != nil {
		return apperrors.Wrapf(err, "[PostMessage] channel %s", channelID)
	}
	return nil
}

// SendMessage delivers blocks to the user behind the given email. An
// unknown email fails with ErrRecipientNotFound before any conversation
// is opened; downstream failures are wrapped with the recipient context.
func (c *Client) SendMessage(ctx context.Context, email string, blocks []Block) error {
	userID, found, err := c.LookupUserByEmail(ctx, email)
	if err != nil {
		return apperrors.Wrapf(err, "[SendMessage] user lookup for %s", email)
	}
	if !found {
		return apperrors.Wrapf(apperrors.ErrRecipientNotFound, "[SendMessage] no slack user for %s", email)
	}
	channelID, err := c.OpenConversation(ctx, userID)
	if err != nil {
		return apperrors.Wrapf(err, "[SendMessage] open conversation for %s", email)
	}
	if err := c.PostMessage(ctx, channelID, blocks); err != nil {
		return apperrors.Wrapf(err, "[SendMessage] post to %s", email)
	}
	return nil
}

// SendMessageToIdent resolves the ident through the directory first,
// then delivers like SendMessage.
func (c *Client) SendMessageToIdent(ctx context.Context, ident string, blocks []Block) error {
	if c.directory == nil {
		return fmt.Errorf("[SendMessageToIdent] no directory configured")
	}
	email, found, err := c.directory.EmailForIdent(ctx, ident)
	if err != nil {
		return apperrors.Wrapf(err, "[SendMessageToIdent] directory lookup for %s", ident)
	}
	if !found {
		return apperrors.Wrapf(apperrors.ErrRecipientNotFound, "[SendMessageToIdent] unknown ident %s", ident)
	}
	return c.SendMessage(ctx, email, blocks)
}

func (c *Client) lookupUserID(ctx context.Context, email string) (string, bool, error) {
	var response userResponse
	path := lookupByEmailPath + "?" + url.Values{"email": {email}}.Encode()
	if err := c.call(ctx, http.MethodGet, path, nil, &response); err != nil {
		var apiErr *APIError
		if apperrors.As(err, &apiErr) && apiErr.Code == errCodeUsersNotFound {
			log.Debug().Str("email", email).Msg("no slack user for email")
			return "", false, nil
		}
		return "", false, apperrors.Wrapf(err, "[lookupUserID] %s", email)
	}
	return response.User.ID, true, nil
}

func (c *Client) openConversation(ctx context.Context, userID string) (string, bool, error) {
	var response conversationResponse
	if err := c.call(ctx, http.MethodPost, openConversationPath, openConversationRequest{Users: userID}, &response); err != nil {
		return "", false, apperrors.Wrapf(err, "[openConversation] %s", userID)
	}
	return response.Channel.ID, true, nil
}

// call performs a request and validates the response envelope: the body
// must be non-empty and carry an explicit ok flag. Violations fail with
// ErrProtocolViolation, distinct from transport failures; a non-ok
// envelope becomes an APIError carrying the structured error code.
func (c *Client) call(ctx context.Context, method, path string, body interface{}, out payload) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("[call] marshal request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("[call] build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrRemoteCall, "[call] %s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrRemoteCall, "[call] read response: %v", err)
	}
	if len(raw) == 0 {
		return apperrors.Wrapf(apperrors.ErrProtocolViolation, "[call] %s %s: empty body", method, path)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.Wrapf(apperrors.ErrProtocolViolation, "[call] %s %s: malformed envelope", method, path)
	}

	env := out.env()
	if env.OK == nil {
		return apperrors.Wrapf(apperrors.ErrProtocolViolation, "[call] %s %s: missing ok flag", method, path)
	}
	if !*env.OK {
		return &APIError{Code: env.Error}
	}
	return nil
}
