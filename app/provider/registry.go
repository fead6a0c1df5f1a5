package provider

import "sort"

type Registry struct {
	providers map[string]Provider
	order     []string
}

// NewRegistry keeps providers in the order given; that order is the
// priority used when listing methods.
func NewRegistry(providers ...Provider) *Registry {
	items := make(map[string]Provider, len(providers))
	order := make([]string, 0, len(providers))
	for _, p := range providers {
		if _, exists := items[p.Code()]; !exists {
			order = append(order, p.Code())
		}
		items[p.Code()] = p
	}
	return &Registry{providers: items, order: order}
}

func (r *Registry) Get(code string) (Provider, error) {
	provider, ok := r.providers[code]
	if !ok {
		return nil, ErrProviderNotSupported
	}
	return provider, nil
}

func (r *Registry) All() []Provider {
	out := make([]Provider, 0, len(r.order))
	for _, code := range r.order {
		out = append(out, r.providers[code])
	}
	return out
}

func (r *Registry) Codes() []string {
	codes := make([]string, len(r.order))
	copy(codes, r.order)
	sort.Strings(codes)
	return codes
}
