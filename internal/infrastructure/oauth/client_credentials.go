package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/pkg/logger"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ClientCredentials hands out OAuth2 authenticated HTTP clients per provider
// interface. Token sources are cached so tokens are reused until expiry.
type ClientCredentials struct {
	mu           sync.Mutex
	sources      map[string]oauth2.TokenSource
	tokenTimeout time.Duration
	logger       logger.Logger
}

// NewClientCredentials creates a new client credentials handler
func NewClientCredentials(tokenTimeout time.Duration, logger logger.Logger) *ClientCredentials {
	return &ClientCredentials{
		sources:      make(map[string]oauth2.TokenSource),
		tokenTimeout: tokenTimeout,
		logger:       logger,
	}
}

// HTTPClient returns a client with the given timeout whose requests carry a
// bearer token for iface
func (c *ClientCredentials) HTTPClient(iface *entity.Interface, timeout time.Duration) (*http.Client, error) {
	ts, err := c.TokenSource(iface)
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &oauth2.Transport{
			Source: ts,
			Base:   http.DefaultTransport,
		},
	}, nil
}

// TokenSource returns the cached token source of iface
func (c *ClientCredentials) TokenSource(iface *entity.Interface) (oauth2.TokenSource, error) {
	if iface.TokenURL == "" || iface.ClientID == "" {
		return nil, fmt.Errorf("interface %d has no client credentials", iface.ID)
	}

	key := fmt.Sprintf("%d|%s|%s", iface.ID, iface.ClientID, iface.TokenURL)

	c.mu.Lock()
	defer c.mu.Unlock()
	if ts, ok := c.sources[key]; ok {
		return ts, nil
	}

	config := &clientcredentials.Config{
		ClientID:     iface.ClientID,
		ClientSecret: iface.ClientSecret,
		TokenURL:     iface.TokenURL,
	}
	// Some charter systems bind the client to an agency account
	if iface.Username != "" {
		config.EndpointParams = url.Values{
			"username": {iface.Username},
			"password": {iface.Password},
		}
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: c.tokenTimeout})
	ts := config.TokenSource(ctx)
	c.sources[key] = ts

	c.logger.Info("Created token source", "interfaceId", iface.ID, "tokenUrl", iface.TokenURL)
	return ts, nil
}
