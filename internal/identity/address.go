package identity

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"
)

// AddressSize is the length of an Address in bytes.
const AddressSize = 32

const (
	addressVersion = 0x01
	checksumLength = 4
	encodedLength  = 1 + AddressSize + checksumLength
)

var (
	// ErrCannotDecodeAddress is returned for text that is not valid base58.
	ErrCannotDecodeAddress = errors.New("identity: cannot decode address")

	// ErrChecksumMismatch is returned when an encoded address fails its checksum.
	ErrChecksumMismatch = errors.New("identity: address checksum mismatch")
)

// Address is the ledger account identifier: SHA3-256 of the ed25519 public key.
type Address [AddressSize]byte

// AddressFromPublicKey derives the account address for pub.
func AddressFromPublicKey(pub ed25519.PublicKey) Address {
	return Address(sha3.Sum256(pub))
}

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Bytes returns a copy of the raw address.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressSize)
	copy(b, a[:])
	return b
}

// String renders version || address || checksum in base58.
func (a Address) String() string {
	buf := make([]byte, 0, encodedLength)
	buf = append(buf, addressVersion)
	buf = append(buf, a[:]...)
	sum := sha3.Sum256(buf)
	buf = append(buf, sum[:checksumLength]...)
	return base58.Encode(buf)
}

// Short returns the first characters of the text form, for logs.
func (a Address) Short() string {
	s := a.String()
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

// ParseAddress decodes the text form produced by String.
func ParseAddress(s string) (Address, error) {
	raw, err := base58.Decode(s)
	if err != nil || len(raw) != encodedLength {
		return Address{}, fmt.Errorf("%w: %q", ErrCannotDecodeAddress, s)
	}
	if raw[0] != addressVersion {
		return Address{}, fmt.Errorf("%w: unsupported version 0x%02x", ErrCannotDecodeAddress, raw[0])
	}
	checksumStart := len(raw) - checksumLength
	sum := sha3.Sum256(raw[:checksumStart])
	if !bytes.Equal(sum[:checksumLength], raw[checksumStart:]) {
		return Address{}, fmt.Errorf("%w: %q", ErrChecksumMismatch, s)
	}
	var a Address
	copy(a[:], raw[1:checksumStart])
	return a, nil
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
