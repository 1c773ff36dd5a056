package ingest

import (
	"fmt"

	"github.com/mtlprog/taskindexer/internal/domain"
)

// ContractRegistry maps deployed contract addresses to the stream they feed.
type ContractRegistry struct {
	bySource  map[domain.Source]string
	byAddress map[string]domain.Source
}

// NewContractRegistry builds a registry from source -> address pairs. Empty
// addresses are ignored.
func NewContractRegistry(contracts map[domain.Source]string) (*ContractRegistry, error) {
	reg := &ContractRegistry{
		bySource:  make(map[domain.Source]string),
		byAddress: make(map[string]domain.Source),
	}
	for src, addr := range contracts {
		if addr == "" {
			continue
		}
		if !src.IsValid() {
			return nil, fmt.Errorf("%w: unknown source %q", domain.ErrInvalidEvent, src)
		}
		a, err := domain.NormalizeAddress(addr)
		if err != nil {
			return nil, fmt.Errorf("contract for %s: %w", src, err)
		}
		if other, ok := reg.byAddress[a]; ok {
			return nil, fmt.Errorf("contract %s registered for both %s and %s", a, other, src)
		}
		reg.bySource[src] = a
		reg.byAddress[a] = src
	}
	return reg, nil
}

// Address returns the contract configured for src.
func (r *ContractRegistry) Address(src domain.Source) (string, bool) {
	a, ok := r.bySource[src]
	return a, ok
}

// Resolve fills in evt.Source from its contract address when the feed did
// not tag it, and rejects events whose tag contradicts the registry.
func (r *ContractRegistry) Resolve(evt *domain.Event) error {
	if evt.ContractAddress != "" {
		a, err := domain.NormalizeAddress(evt.ContractAddress)
		if err != nil {
			return fmt.Errorf("contract: %w", err)
		}
		evt.ContractAddress = a
	}

	registered, known := r.byAddress[evt.ContractAddress]
	switch {
	case evt.Source == "" && known:
		evt.Source = registered
	case evt.Source == "":
		return fmt.Errorf("%w: no source and unregistered contract %q", domain.ErrInvalidEvent, evt.ContractAddress)
	case known && registered != evt.Source:
		return fmt.Errorf("%w: contract %s feeds %s, event tagged %s",
			domain.ErrInvalidEvent, evt.ContractAddress, registered, evt.Source)
	}

	if !evt.Source.IsValid() {
		return fmt.Errorf("%w: unknown source %q", domain.ErrInvalidEvent, evt.Source)
	}
	return nil
}
