package plugin

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// DomainPlugin is a domain package that contributes routes to the API.
type DomainPlugin interface {
	Name() string
	RegisterRoutes(api *echo.Group)
}

// Registry holds registered plugins in registration order.
type Registry struct {
	plugins []DomainPlugin
	names   map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{names: make(map[string]bool)}
}

// Register adds p. Names must be unique.
func (r *Registry) Register(p DomainPlugin) error {
	if r.names[p.Name()] {
		return fmt.Errorf("plugin %q already registered", p.Name())
	}
	r.names[p.Name()] = true
	r.plugins = append(r.plugins, p)
	return nil
}

func (r *Registry) RegisterRoutes(api *echo.Group) {
	for _, p := range r.plugins {
		p.RegisterRoutes(api)
	}
}

func (r *Registry) Plugins() []DomainPlugin {
	return r.plugins
}

// Names lists plugin names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.plugins))
	for _, p := range r.plugins {
		out = append(out, p.Name())
	}
	return out
}
