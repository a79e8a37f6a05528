// Package signerpk handles the public key of the boost signer. Operators
// configure the key rather than an address so the configured value can be
// checked against the signer's keystore.
package signerpk

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PubKey is a typed public key: one type byte followed by the raw key.
type PubKey struct {
	Type uint8
	Raw  []byte
}

// Types lists the supported key types.
var Types = struct {
	Secp256k1 uint8
}{
	Secp256k1: 0xc0,
}

var (
	ErrEmpty       = errors.New("empty pubkey")
	ErrUnsupported = errors.New("unsupported pubkey type")
)

// FromECDSA wraps an uncompressed secp256k1 public key.
func FromECDSA(pub *ecdsa.PublicKey) PubKey {
	return PubKey{
		Type: Types.Secp256k1,
		Raw:  crypto.FromECDSAPub(pub),
	}
}

func (pk PubKey) Empty() bool {
	return len(pk.Raw) == 0 && pk.Type == 0
}

func (pk PubKey) String() string {
	return "0x" + common.Bytes2Hex(pk.Bytes())
}

// Bytes returns the type byte followed by the raw key.
func (pk PubKey) Bytes() []byte {
	return append([]byte{pk.Type}, pk.Raw...)
}

func (pk PubKey) Copy() PubKey {
	return PubKey{
		Type: pk.Type,
		Raw:  common.CopyBytes(pk.Raw),
	}
}

// ECDSA decodes the key. Both the 65-byte uncompressed and the 33-byte
// compressed encodings are accepted.
func (pk PubKey) ECDSA() (*ecdsa.PublicKey, error) {
	if pk.Type != Types.Secp256k1 {
		return nil, fmt.Errorf("%w: 0x%x", ErrUnsupported, pk.Type)
	}
	if len(pk.Raw) == 33 {
		return crypto.DecompressPubkey(pk.Raw)
	}
	return crypto.UnmarshalPubkey(pk.Raw)
}

// Address returns the account address of the key, the value boost
// signatures are checked against.
func (pk PubKey) Address() (common.Address, error) {
	pub, err := pk.ECDSA()
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// FromString parses a hex key, with or without the 0x prefix.
func FromString(str string) (PubKey, error) {
	return FromBytes(common.FromHex(str))
}

func FromBytes(b []byte) (PubKey, error) {
	if len(b) == 0 {
		return PubKey{}, ErrEmpty
	}
	return PubKey{b[0], common.CopyBytes(b[1:])}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (pk *PubKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (pk *PubKey) UnmarshalText(input []byte) error {
	res, err := FromString(string(input))
	if err != nil {
		return err
	}
	*pk = res
	return nil
}
