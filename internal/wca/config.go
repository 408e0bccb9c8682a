package wca

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"wca-openai-proxy/internal/tokencache"
)

type Config struct {
	//required fields
	URL    string // generation endpoint
	IAMURL string // token exchange endpoint
	APIKey string

	Timeout    time.Duration // generation call timeout (default: 3m)
	IAMTimeout time.Duration // token exchange timeout (default: 30s)

	// AttachmentRoot, when set, confines attachment paths to this directory.
	AttachmentRoot string

	// Optional connection pool settings
	MaxIdleConns        int // default: 100
	MaxIdleConnsPerHost int // default: 100

	// TokenCache shares bearer tokens between calls; nil disables sharing
	// beyond the in-process reuse.
	TokenCache tokencache.Cache

	// Custom base transport (for testing or special configs)
	Transport http.RoundTripper
}

// Validate checks required fields only.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("URL is required")
	}
	if c.IAMURL == "" {
		return errors.New("IAMURL is required")
	}
	if c.APIKey == "" {
		return errors.New("APIKey is required")
	}
	return nil
}

// WithDefaults returns a copy of Config with sane defaults applied.
func (c *Config) WithDefaults() Config {
	cfg := *c

	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.IAMURL = strings.TrimSpace(cfg.IAMURL)

	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Minute
	}
	if cfg.IAMTimeout <= 0 {
		cfg.IAMTimeout = 30 * time.Second
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 100
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = 100
	}
	if cfg.TokenCache == nil {
		cfg.TokenCache = tokencache.Nop{}
	}

	return cfg
}

// Client submits prompts to the generation endpoint. It is safe for
// concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client // attaches the bearer token
	iamClient  *http.Client
	logger     *zap.Logger
}

// NewClient creates a backend client. No network call happens until the
// first Submit.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("wca")

	base := cfg.Transport
	if base == nil {
		base = defaultTransport(cfg)
	}

	iamClient := &http.Client{Transport: base, Timeout: cfg.IAMTimeout}

	var source oauth2.TokenSource = &iamTokenSource{
		url:     cfg.IAMURL,
		apiKey:  cfg.APIKey,
		client:  iamClient,
		timeout: cfg.IAMTimeout,
		logger:  logger,
	}
	source = &cachedTokenSource{
		cache:   cfg.TokenCache,
		key:     tokencache.NewKey(cfg.IAMURL, cfg.APIKey).String(),
		next:    source,
		timeout: cfg.IAMTimeout,
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: &oauth2.Transport{
				Source: oauth2.ReuseTokenSource(nil, source),
				Base:   base,
			},
		},
		iamClient: iamClient,
		logger:    logger,
	}, nil
}

// defaultTransport creates a production-ready HTTP transport
// with connection pooling and reasonable timeouts.
func defaultTransport(cfg Config) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	c.iamClient.CloseIdleConnections()
	return nil
}
