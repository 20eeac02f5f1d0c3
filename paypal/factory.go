package paypal

import (
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ClientFactory memoizes clients per client id. It lives in the composition
// root and is handed to whoever needs a client; there is no ambient registry.
type ClientFactory struct {
	mu      sync.Mutex
	clients map[string]*Client
	rdb     *redis.Client
	logger  *zap.Logger
}

// NewClientFactory creates a factory. rdb may be nil, in which case token
// caching is process-local.
func NewClientFactory(rdb *redis.Client, logger *zap.Logger) *ClientFactory {
	return &ClientFactory{
		clients: make(map[string]*Client),
		rdb:     rdb,
		logger:  logger,
	}
}

// Get returns the client for the configuration, creating it on first use.
// Memoizing per client id is safe: a client is stateless besides its
// connection settings and token cache.
func (f *ClientFactory) Get(cfg Config) *Client {
	f.mu.Lock()
	defer f.mu.Unlock()

	if client, ok := f.clients[cfg.ClientID]; ok {
		return client
	}

	var tokens TokenStore
	if f.rdb != nil {
		tokens = NewRedisTokenStore(f.rdb, cfg.ClientID)
	} else {
		tokens = NewMemoryTokenStore()
	}
	client := NewClient(cfg, tokens, f.logger)
	f.clients[cfg.ClientID] = client
	return client
}
