// Package identity holds the named accounts a test session acts as.
//
// An Identity binds an alias to an Address and, when it owns a private key,
// the authority to sign transfers for that address. Identities are created
// during setup and never mutated. The Registry owns them; ledger clients
// borrow an identity's signing authority for the duration of a call.
package identity

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
)

// ErrNoSigningKey is returned by Sign on an identity that only knows its address.
var ErrNoSigningKey = errors.New("identity: no signing key")

// Identity is an aliased account.
type Identity struct {
	alias   string
	address Address
	public  ed25519.PublicKey
	private ed25519.PrivateKey
}

// FromSeed derives a signing identity from a 32-byte ed25519 seed.
func FromSeed(alias string, seed []byte) (*Identity, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("identity %q: seed must be %d bytes, got %d", alias, ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &Identity{
		alias:   alias,
		address: AddressFromPublicKey(pub),
		public:  pub,
		private: priv,
	}, nil
}

// Generate creates a signing identity with a fresh key read from rand.
func Generate(alias string, rand io.Reader) (*Identity, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(rand, seed); err != nil {
		return nil, fmt.Errorf("identity %q: read seed: %w", alias, err)
	}
	return FromSeed(alias, seed)
}

// WatchOnly returns an identity that knows its address but cannot sign.
func WatchOnly(alias string, addr Address) *Identity {
	return &Identity{alias: alias, address: addr}
}

// Alias returns the human-readable name.
func (i *Identity) Alias() string { return i.alias }

// Address returns the account address.
func (i *Identity) Address() Address { return i.address }

// PublicKey returns the ed25519 public key, or nil for watch-only identities.
func (i *Identity) PublicKey() ed25519.PublicKey { return i.public }

// CanSign reports whether the identity holds a private key.
func (i *Identity) CanSign() bool { return i.private != nil }

// Sign signs msg with the identity's private key.
func (i *Identity) Sign(msg []byte) ([]byte, error) {
	if i.private == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSigningKey, i.alias)
	}
	return ed25519.Sign(i.private, msg), nil
}

func (i *Identity) String() string {
	return fmt.Sprintf("%s(%s)", i.alias, i.address.Short())
}

// Verify checks that sig is a valid signature of msg by pub and that pub
// controls addr.
func Verify(addr Address, pub ed25519.PublicKey, msg, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	if AddressFromPublicKey(pub) != addr {
		return false
	}
	return ed25519.Verify(pub, msg, sig)
}
