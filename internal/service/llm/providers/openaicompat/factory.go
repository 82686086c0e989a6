package openaicompat

import (
	"log/slog"
	"net/http"
	"sync"

	"diagramgen/internal/domain/models"
	llmSvc "diagramgen/internal/domain/services/llm"
)

// Factory caches one Client per provider record. A cached client is rebuilt
// when the record's endpoint or credential changes.
type Factory struct {
	httpClient *http.Client
	cache      map[string]cachedClient
	mu         sync.RWMutex
	logger     *slog.Logger
}

type cachedClient struct {
	key    clientKey
	client *Client
}

type clientKey struct {
	name    string
	baseURL string
	apiKey  string
}

var _ llmSvc.ClientFactory = (*Factory)(nil)

// NewFactory creates a client factory. httpClient may be nil.
func NewFactory(httpClient *http.Client, logger *slog.Logger) *Factory {
	return &Factory{
		httpClient: httpClient,
		cache:      make(map[string]cachedClient),
		logger:     logger,
	}
}

// ClientFor returns the cached client for rec, creating it on first use
func (f *Factory) ClientFor(rec models.ProviderRecord) (llmSvc.ChatClient, error) {
	key := clientKey{name: rec.Name, baseURL: rec.BaseURL, apiKey: rec.APIKey}

	f.mu.RLock()
	if cached, ok := f.cache[rec.ID]; ok && cached.key == key {
		f.mu.RUnlock()
		return cached.client, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()

	// Another request may have built it while we waited
	if cached, ok := f.cache[rec.ID]; ok && cached.key == key {
		return cached.client, nil
	}

	client := NewClient(rec, f.httpClient, f.logger)
	f.cache[rec.ID] = cachedClient{key: key, client: client}
	f.logger.Debug("provider client created", "id", rec.ID, "provider", rec.Name)
	return client, nil
}
