package router

import (
	"fmt"
	"strings"
	"sync"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/internal/usecase"
	"flightsync-service/pkg/logger"
)

// ProviderRouter routes provider names to their registered handlers
type ProviderRouter struct {
	mu       sync.RWMutex
	handlers map[string]*usecase.ProviderHandler
	order    []string
	logger   logger.Logger
}

// NewProviderRouter creates a new provider router
func NewProviderRouter(logger logger.Logger) *ProviderRouter {
	return &ProviderRouter{
		handlers: make(map[string]*usecase.ProviderHandler),
		logger:   logger,
	}
}

// Register registers a handler under its provider name. A later
// registration for the same name replaces the earlier one.
func (r *ProviderRouter) Register(handler *usecase.ProviderHandler) {
	name := strings.ToLower(handler.Provider())

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.handlers[name] = handler
	r.logger.Info("Registered provider", "provider", name)
}

// Get returns the handler of a provider
func (r *ProviderRouter) Get(provider string) (*usecase.ProviderHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[strings.ToLower(strings.TrimSpace(provider))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrUnknownProvider, provider)
	}
	return handler, nil
}

// Providers lists the registered provider names
func (r *ProviderRouter) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
