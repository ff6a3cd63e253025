// Package config loads the session configuration: the faucet identity, the
// symbol table, the ledger endpoint, and genesis balances for in-process
// ledgers.
//
// Configuration is read from YAML (strict: unknown fields are errors) or from
// CUE, which is unified against an embedded schema before decoding.
package config

import (
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/roach88/tokenworld/internal/amount"
	"github.com/roach88/tokenworld/internal/identity"
)

// Defaults applied by Normalize.
const (
	DefaultFaucetAlias    = "faucet"
	DefaultNamespace      = "tokenworld"
	DefaultTimeout        = 5 * time.Second
	DefaultBalanceRetries = 3
)

// Config is the session configuration.
type Config struct {
	// Namespace seeds deterministic keys for declared identities.
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`

	Faucet  Faucet            `yaml:"faucet" json:"faucet"`
	Symbols map[string]string `yaml:"symbols" json:"symbols"`
	Ledger  Ledger            `yaml:"ledger,omitempty" json:"ledger,omitempty"`

	// Genesis maps symbol names to the faucet's opening balance. Only
	// in-process and stub ledgers honor it.
	Genesis map[string]amount.Amount `yaml:"genesis,omitempty" json:"genesis,omitempty"`
}

// Faucet designates the reserve identity.
type Faucet struct {
	Alias string `yaml:"alias,omitempty" json:"alias,omitempty"`
	// Seed is the hex-encoded 32-byte ed25519 seed.
	Seed string `yaml:"seed" json:"seed"`
}

// Ledger configures the remote ledger transport.
type Ledger struct {
	Endpoint       string   `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Timeout        Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	BalanceRetries *int     `yaml:"balance_retries,omitempty" json:"balance_retries,omitempty"`
}

// Retries returns the configured balance retry count.
func (l Ledger) Retries() int {
	if l.BalanceRetries == nil {
		return DefaultBalanceRetries
	}
	return *l.BalanceRetries
}

// Duration is a time.Duration written as a Go duration string ("5s").
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// Normalize fills in defaults.
func (c *Config) Normalize() {
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.Faucet.Alias == "" {
		c.Faucet.Alias = DefaultFaucetAlias
	}
	if c.Ledger.Timeout == 0 {
		c.Ledger.Timeout = Duration(DefaultTimeout)
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if _, err := c.FaucetIdentity(); err != nil {
		return err
	}
	if len(c.Symbols) == 0 {
		return &Error{Field: "symbols", Message: "at least one symbol is required"}
	}
	for name, id := range c.Symbols {
		if name == "" || id == "" {
			return &Error{Field: "symbols", Message: fmt.Sprintf("empty name or id in %q: %q", name, id)}
		}
	}
	for _, name := range sortedKeys(c.Genesis) {
		if _, ok := c.Symbols[name]; !ok {
			return &Error{Field: "genesis." + name, Message: "symbol is not configured"}
		}
	}
	if c.Ledger.BalanceRetries != nil && *c.Ledger.BalanceRetries < 0 {
		return &Error{Field: "ledger.balance_retries", Message: "must not be negative"}
	}
	if c.Ledger.Timeout < 0 {
		return &Error{Field: "ledger.timeout", Message: "must not be negative"}
	}
	return nil
}

// FaucetIdentity derives the reserve identity from the configured seed.
func (c *Config) FaucetIdentity() (*identity.Identity, error) {
	seed, err := hex.DecodeString(c.Faucet.Seed)
	if err != nil {
		return nil, &Error{Field: "faucet.seed", Message: "not valid hex", Err: err}
	}
	alias := c.Faucet.Alias
	if alias == "" {
		alias = DefaultFaucetAlias
	}
	id, err := identity.FromSeed(alias, seed)
	if err != nil {
		return nil, &Error{Field: "faucet.seed", Message: "not a usable key", Err: err}
	}
	return id, nil
}

// GenesisSymbols returns the genesis symbol names in sorted order.
func (c *Config) GenesisSymbols() []string {
	return sortedKeys(c.Genesis)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Error reports an invalid configuration value.
type Error struct {
	File    string
	Line    int
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	loc := e.Field
	if e.File != "" {
		if e.Line > 0 {
			loc = fmt.Sprintf("%s:%d", e.File, e.Line)
		} else {
			loc = e.File
		}
		if e.Field != "" {
			loc += ": " + e.Field
		}
	}
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %s: %v", loc, e.Message, e.Err)
	}
	return fmt.Sprintf("config: %s: %s", loc, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }
