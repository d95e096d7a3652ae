package solana

import (
	"strings"

	"github.com/juju/errors"
	"github.com/mr-tron/base58"
)

const (
	PublicKeyLength = 32
	SignatureLength = 64
)

// PublicKey is an ed25519 public key or program derived address.
type PublicKey [PublicKeyLength]byte

// SystemProgramID is the native system program.
var SystemProgramID = PublicKey{}

// PublicKeyFromBase58 parses a base58 address. Malformed input is reported as NotValid.
func PublicKeyFromBase58(s string) (PublicKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PublicKey{}, errors.NotValidf("empty public key")
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return PublicKey{}, errors.NotValidf("public key %q", s)
	}
	if len(raw) != PublicKeyLength {
		return PublicKey{}, errors.NotValidf("public key %q (length %d)", s, len(raw))
	}
	var pk PublicKey
	copy(pk[:], raw)
	return pk, nil
}

// MustPublicKey parses s and panics on failure. Only for compile-time constants.
func MustPublicKey(s string) PublicKey {
	pk, err := PublicKeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return pk
}

func (p PublicKey) String() string {
	return base58.Encode(p[:])
}

func (p PublicKey) Bytes() []byte {
	return p[:]
}

func (p PublicKey) IsZero() bool {
	return p == PublicKey{}
}

func (p PublicKey) Equals(o PublicKey) bool {
	return p == o
}

func (p PublicKey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PublicKey) UnmarshalText(text []byte) error {
	pk, err := PublicKeyFromBase58(string(text))
	if err != nil {
		return err
	}
	*p = pk
	return nil
}

// Hash is a recent blockhash.
type Hash [32]byte

func HashFromBase58(s string) (Hash, error) {
	pk, err := PublicKeyFromBase58(s)
	if err != nil {
		return Hash{}, errors.Annotate(err, "blockhash")
	}
	return Hash(pk), nil
}

func (h Hash) String() string {
	return base58.Encode(h[:])
}

// Signature is an ed25519 transaction signature; its base58 form is the transaction id.
type Signature [SignatureLength]byte

func SignatureFromBase58(s string) (Signature, error) {
	raw, err := base58.Decode(strings.TrimSpace(s))
	if err != nil || len(raw) != SignatureLength {
		return Signature{}, errors.NotValidf("signature %q", s)
	}
	var sig Signature
	copy(sig[:], raw)
	return sig, nil
}

func (s Signature) String() string {
	return base58.Encode(s[:])
}

func (s Signature) IsZero() bool {
	return s == Signature{}
}

func (s Signature) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
