package marketplace

import (
	"fmt"

	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
)

// Ensure AdapterRegistry implements platform.Registry
var _ platform.Registry = (*AdapterRegistry)(nil)

// AdapterRegistry holds the configured adapters keyed by platform code.
// Registration order is preserved so List and Codes are deterministic.
type AdapterRegistry struct {
	adapters map[platform.Code]platform.Adapter
	order    []platform.Code
}

// NewRegistry creates a registry over the given adapters. Registering two
// adapters for the same code keeps the last one.
func NewRegistry(adapters ...platform.Adapter) *AdapterRegistry {
	r := &AdapterRegistry{
		adapters: make(map[platform.Code]platform.Adapter, len(adapters)),
	}
	for _, a := range adapters {
		code := a.Code()
		if _, seen := r.adapters[code]; !seen {
			r.order = append(r.order, code)
		}
		r.adapters[code] = a
	}
	return r
}

// Get returns the adapter for the given platform code
func (r *AdapterRegistry) Get(code platform.Code) (platform.Adapter, error) {
	if !code.IsValid() {
		return nil, fmt.Errorf("%w: %q", platform.ErrInvalidCode, code)
	}
	adapter, ok := r.adapters[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", platform.ErrAdapterNotFound, code)
	}
	return adapter, nil
}

// List returns all registered adapters in registration order
func (r *AdapterRegistry) List() []platform.Adapter {
	out := make([]platform.Adapter, 0, len(r.order))
	for _, code := range r.order {
		out = append(out, r.adapters[code])
	}
	return out
}

// Codes returns the codes of all registered adapters in registration order
func (r *AdapterRegistry) Codes() []platform.Code {
	out := make([]platform.Code, len(r.order))
	copy(out, r.order)
	return out
}
