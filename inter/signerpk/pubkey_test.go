package signerpk

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

func TestFromString(t *testing.T) {
	require := require.New(t)

	key, err := crypto.HexToECDSA(testKey)
	require.NoError(err)
	exp := FromECDSA(&key.PublicKey)
	require.Len(exp.Raw, 65)

	for _, str := range []string{exp.String(), exp.String()[2:]} {
		got, err := FromString(str)
		require.NoError(err)
		require.Equal(exp, got)
	}

	for _, str := range []string{"", "0x", "-"} {
		_, err := FromString(str)
		require.ErrorIs(err, ErrEmpty, str)
	}
}

func TestAddress(t *testing.T) {
	require := require.New(t)

	key, err := crypto.HexToECDSA(testKey)
	require.NoError(err)
	want := crypto.PubkeyToAddress(key.PublicKey)

	addr, err := FromECDSA(&key.PublicKey).Address()
	require.NoError(err)
	require.Equal(want, addr)

	compressed := PubKey{Type: Types.Secp256k1, Raw: crypto.CompressPubkey(&key.PublicKey)}
	addr, err = compressed.Address()
	require.NoError(err)
	require.Equal(want, addr)

	_, err = PubKey{Type: 0x01, Raw: compressed.Raw}.Address()
	require.ErrorIs(err, ErrUnsupported)

	_, err = PubKey{Type: Types.Secp256k1, Raw: []byte{0x04, 0x01}}.Address()
	require.Error(err)
}

func TestEmpty(t *testing.T) {
	require.True(t, PubKey{}.Empty())
	require.False(t, PubKey{Type: Types.Secp256k1, Raw: []byte{0x01}}.Empty())
}

func TestCopy(t *testing.T) {
	require := require.New(t)

	original := PubKey{Type: Types.Secp256k1, Raw: []byte{0xAA, 0xBB}}
	cp := original.Copy()
	require.Equal(original, cp)

	cp.Raw[0] = 0xFF
	require.Equal(uint8(0xAA), original.Raw[0])
	require.Equal([]byte{0xc0, 0xAA, 0xBB}, original.Bytes())
}

func TestMarshalUnmarshal(t *testing.T) {
	require := require.New(t)

	original := PubKey{Type: Types.Secp256k1, Raw: common.FromHex("0x02aabbcc")}
	data, err := json.Marshal(&original)
	require.NoError(err)
	require.Equal(`"`+original.String()+`"`, string(data))

	var decoded PubKey
	require.NoError(json.Unmarshal(data, &decoded))
	require.Equal(original, decoded)
}
