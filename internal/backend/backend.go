package backend

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	restPath    = "/rest/v1"
	authPath    = "/auth/v1"
	storagePath = "/storage/v1/object"
	userAgent   = "skillmatch-cli (+https://github.com/spigell/skillmatch)"
	// Max body length written to debug logs.
	defaultMaxLogLength = 300
)

// Client talks to the hosted backend: PostgREST resources, auth and object storage.
type Client struct {
	logger     *zap.Logger
	apiKey     string
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
	MaxLogLen  int

	mu    sync.RWMutex
	token string
}

func New(logger *zap.Logger, apiURL, apiKey string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		logger: logger,
		apiKey: strings.TrimSpace(apiKey),
		APIURL: strings.TrimRight(strings.TrimSpace(apiURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		UserAgent: userAgent,
		MaxLogLen: defaultMaxLogLength,
	}
}

// SetToken sets the access token used as bearer for subsequent requests.
// An empty token falls back to the anon api key.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = strings.TrimSpace(token)
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token != "" {
		return c.token
	}
	return c.apiKey
}

func (c *Client) restURL(resource string) string {
	return c.APIURL + restPath + "/" + resource
}
