// Package nom is a client for the NOM personnel directory, used to
// resolve idents to people. Lookups are cached with the same discipline
// as the slack client: negative answers cached, failures retried.
package nom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/teamcatalog/catalog-auth/cache"
	"github.com/teamcatalog/catalog-auth/internal/config"
	apperrors "github.com/teamcatalog/catalog-auth/internal/errors"
)

const (
	cacheTTL  = 60 * time.Minute
	cacheSize = 1000
)

// Resource is a person in the directory.
type Resource struct {
	Ident string `json:"navident"`
	Name  string `json:"visningsnavn"`
	Email string `json:"epost"`
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	resources *cache.Loader[Resource]
}

func NewClient(cfg config.NomConfig) *Client {
	c := &Client{
		baseURL:    cfg.GetNomBaseURL(),
		token:      cfg.GetNomToken(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	c.resources = cache.NewLoader(cacheTTL, cacheSize, c.fetchResource)
	return c
}

// GetByIdent returns the directory record for an ident. found is false
// for an unknown ident; that answer is cached.
func (c *Client) GetByIdent(ctx context.Context, ident string) (*Resource, bool, error) {
	resource, found, err := c.resources.Get(ctx, ident)
	if err != nil || !found {
		return nil, false, err
	}
	return &resource, true, nil
}

// EmailForIdent implements the slack.Directory seam.
func (c *Client) EmailForIdent(ctx context.Context, ident string) (string, bool, error) {
	resource, found, err := c.GetByIdent(ctx, ident)
	if err != nil || !found {
		return "", false, err
	}
	return resource.Email, true, nil
}

func (c *Client) fetchResource(ctx context.Context, ident string) (Resource, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ressurs/"+ident, nil)
	if err != nil {
		return Resource{}, false, fmt.Errorf("[fetchResource] build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Resource{}, false, apperrors.Wrapf(apperrors.ErrRemoteCall, "[fetchResource] %s: %v", ident, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Resource{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Resource{}, false, apperrors.Wrapf(apperrors.ErrRemoteCall, "[fetchResource] %s: status %d", ident, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Resource{}, false, apperrors.Wrapf(apperrors.ErrRemoteCall, "[fetchResource] read response: %v", err)
	}
	var resource Resource
	if err := json.Unmarshal(raw, &resource); err != nil {
		return Resource{}, false, apperrors.Wrapf(apperrors.ErrProtocolViolation, "[fetchResource] %s: malformed response", ident)
	}
	return resource, true, nil
}
