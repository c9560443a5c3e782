package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"tswnano/internal/logger"
	"tswnano/internal/provider/local"
)

// ProviderFactoryService creates and caches capability providers, one per
// endpoint, model and key combination.
type ProviderFactoryService struct {
	initialized bool
	httpClient  *http.Client
	providers   map[string]*local.Provider
	mutex       sync.RWMutex
}

// NewProviderFactoryService creates an empty factory. httpClient may be nil.
func NewProviderFactoryService(httpClient *http.Client) *ProviderFactoryService {
	return &ProviderFactoryService{
		httpClient: httpClient,
		providers:  make(map[string]*local.Provider),
	}
}

// Name returns "provider_factory".
func (f *ProviderFactoryService) Name() string {
	return "provider_factory"
}

// Initialize marks the factory ready.
func (f *ProviderFactoryService) Initialize() error {
	logger.ServiceOperation("provider_factory", "initialize", "starting")
	f.initialized = true
	logger.ServiceOperation("provider_factory", "initialize", "completed")
	return nil
}

// GetProvider returns the provider for the settings along with its cache ID.
func (f *ProviderFactoryService) GetProvider(settings Settings) (*local.Provider, string, error) {
	if !f.initialized {
		return nil, "", fmt.Errorf("provider factory service not initialized")
	}
	if strings.TrimSpace(settings.Model) == "" {
		return nil, "", fmt.Errorf("no model configured (set %s_MODEL or --model)", EnvPrefix)
	}

	id := f.generateProviderID(settings.Endpoint, settings.Model, settings.APIKey)

	f.mutex.RLock()
	p, exists := f.providers[id]
	f.mutex.RUnlock()
	if exists {
		logger.Debug("Returning cached provider", "providerID", id)
		return p, id, nil
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()
	if p, exists := f.providers[id]; exists {
		return p, id, nil
	}

	p = local.New(local.Config{
		Endpoint:   settings.Endpoint,
		APIKey:     settings.APIKey,
		Model:      settings.Model,
		HTTPClient: f.httpClient,
	})
	f.providers[id] = p
	logger.Debug("Created new provider", "providerID", id, "endpoint", p.Endpoint())
	return p, id, nil
}

// GetProviderByID returns a provider created earlier.
func (f *ProviderFactoryService) GetProviderByID(id string) (*local.Provider, error) {
	if !f.initialized {
		return nil, fmt.Errorf("provider factory service not initialized")
	}
	parts := strings.Split(id, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid provider ID format: %s (expected 'model:hash')", id)
	}

	f.mutex.RLock()
	defer f.mutex.RUnlock()
	if p, exists := f.providers[id]; exists {
		return p, nil
	}
	return nil, fmt.Errorf("provider with ID '%s' not found in cache", id)
}

// generateProviderID hashes the connection details so keys never appear in
// logs. Format: "model:8-hex-chars".
func (f *ProviderFactoryService) generateProviderID(endpoint, model, apiKey string) string {
	hash := sha256.Sum256([]byte(endpoint + "\x00" + model + "\x00" + apiKey))
	return fmt.Sprintf("%s:%s", strings.ReplaceAll(model, ":", "_"), hex.EncodeToString(hash[:])[:8])
}
