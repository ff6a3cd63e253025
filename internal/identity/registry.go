package identity

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

// ErrUnknownAlias is returned by Lookup when an alias was never registered.
var ErrUnknownAlias = errors.New("identity: unknown alias")

// KeySource creates signing identities for newly declared aliases.
type KeySource interface {
	NewIdentity(ctx context.Context, alias string) (*Identity, error)
}

// Resolver looks an alias up in an external identity service and returns
// the address it is bound to. Identities obtained this way cannot sign.
type Resolver interface {
	ResolveAddress(ctx context.Context, alias string) (Address, error)
}

// SeededKeys derives a deterministic key per alias:
// seed = SHA-256(namespace || 0x00 || alias). The same namespace and alias
// always yield the same address, which keeps scenario traces reproducible.
type SeededKeys struct {
	Namespace string
}

// NewIdentity implements KeySource.
func (k SeededKeys) NewIdentity(_ context.Context, alias string) (*Identity, error) {
	h := sha256.New()
	h.Write([]byte(k.Namespace))
	h.Write([]byte{0x00})
	h.Write([]byte(alias))
	return FromSeed(alias, h.Sum(nil))
}

// RandomKeys draws a fresh key per alias from Reader.
type RandomKeys struct {
	Reader io.Reader
}

// NewIdentity implements KeySource.
func (k RandomKeys) NewIdentity(_ context.Context, alias string) (*Identity, error) {
	return Generate(alias, k.Reader)
}

// StaticResolver resolves aliases from a fixed table.
type StaticResolver map[string]Address

// ResolveAddress implements Resolver.
func (r StaticResolver) ResolveAddress(_ context.Context, alias string) (Address, error) {
	addr, ok := r[alias]
	if !ok {
		return Address{}, fmt.Errorf("%w: %q", ErrUnknownAlias, alias)
	}
	return addr, nil
}

// Registry binds aliases to identities. Re-registering an alias replaces the
// previous binding, so a scenario can re-declare an identity across steps.
type Registry struct {
	mu   sync.RWMutex
	ids  map[string]*Identity
	keys KeySource
}

// NewRegistry returns an empty registry that mints new identities from keys.
func NewRegistry(keys KeySource) *Registry {
	return &Registry{
		ids:  make(map[string]*Identity),
		keys: keys,
	}
}

// Register binds alias to id, replacing any prior binding.
func (r *Registry) Register(alias string, id *Identity) error {
	if alias == "" {
		return fmt.Errorf("identity: empty alias")
	}
	if id == nil {
		return fmt.Errorf("identity: nil identity for %q", alias)
	}
	r.mu.Lock()
	r.ids[alias] = id
	r.mu.Unlock()
	return nil
}

// Declare mints an identity for alias from the key source and registers it.
func (r *Registry) Declare(ctx context.Context, alias string) (*Identity, error) {
	if r.keys == nil {
		return nil, fmt.Errorf("identity: registry has no key source")
	}
	id, err := r.keys.NewIdentity(ctx, alias)
	if err != nil {
		return nil, fmt.Errorf("declare %q: %w", alias, err)
	}
	if err := r.Register(alias, id); err != nil {
		return nil, err
	}
	return id, nil
}

// Watch resolves alias through an external resolver and registers a
// watch-only identity for it.
func (r *Registry) Watch(ctx context.Context, alias string, resolver Resolver) (*Identity, error) {
	addr, err := resolver.ResolveAddress(ctx, alias)
	if err != nil {
		return nil, fmt.Errorf("watch %q: %w", alias, err)
	}
	id := WatchOnly(alias, addr)
	if err := r.Register(alias, id); err != nil {
		return nil, err
	}
	return id, nil
}

// Resolve returns the identity bound to alias.
func (r *Registry) Resolve(alias string) (*Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.ids[alias]
	return id, ok
}

// Lookup is Resolve for callers that treat a miss as fatal.
func (r *Registry) Lookup(alias string) (*Identity, error) {
	id, ok := r.Resolve(alias)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlias, alias)
	}
	return id, nil
}

// ByAddress returns the registered identity controlling addr.
func (r *Registry) ByAddress(addr Address) (*Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.ids {
		if id.Address() == addr {
			return id, true
		}
	}
	return nil, false
}

// Aliases returns the registered aliases in sorted order.
func (r *Registry) Aliases() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	aliases := make([]string, 0, len(r.ids))
	for alias := range r.ids {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}
