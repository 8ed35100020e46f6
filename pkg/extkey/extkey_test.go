package extkey

import (
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schulterklopfer/electrum2descriptors/pkg/slip132"
)

const (
	vpubKey = "vpub5VXaSncXqxLbdmvrC4Y8z9CszPwuEscADoetWhfrxDFzPUbL5nbVtanYDkrVEutkv9n5A5aCcvRC9swbjDKgHjCZ2tAeae8VsBuPbS8KpXv"
	tpubKey = "tpubD9ZjaMn3rbP1cAVwJy6UcEjFfTLT7W6DbfHdS3Wn48meExtVfKmiH9meWCrSmE9qXLYbGcHC5LxLcdfLZTzwme23qAJoRzRhzbd68dHeyjp"
	yprvKey = "yprvAHwhK6RbpuS3dgCYHM5jc2ZvEKd7Bi61u9FVhYMpgMSuZS613T1xxQeKTffhrHY79hZ5PsskBjcc6C2V7DrnsMsNaGDaWev3GLRQRgV7hxF"
	xprvKey = "xprv9y7S1RkggDtZnP1RSzJ7PwUR4MUfF66Wz2jGv9TwJM52WLGmnnrQLLzBSTi7rNtBk4SGeQHBj5G4CuQvPXSn58BmhvX9vk6YzcMm37VuNYD"
	tprvKey = "tprv8ZgxMBicQKsPeYnCHtn5QZqhTgkkDmXebfQMXWmX7ThXJFCbzDTKFNRsB43GUmHzu2pdGcnnegFy175kFcgZQYC5BFPnRdYDPQyqetpyjb5"
)

func TestDecodeVpub(t *testing.T) {
	key, err := Decode(vpubKey)
	require.NoError(t, err)

	assert.Equal(t, slip132.TestNet, key.Network())
	assert.Equal(t, slip132.ScriptP2WPKH, key.Script())
	assert.False(t, key.IsPrivate())
	assert.Equal(t, vpubKey, key.String())
	assert.Equal(t, tpubKey, key.Canonical().String())
}

func TestDecodeYprv(t *testing.T) {
	key, err := Decode(yprvKey)
	require.NoError(t, err)

	assert.Equal(t, slip132.MainNet, key.Network())
	assert.Equal(t, slip132.ScriptP2SHWPKH, key.Script())
	assert.True(t, key.IsPrivate())
	assert.Equal(t, xprvKey, key.Canonical().String())

	// Canonicalizing changes the version prefix only.
	canonical := key.Canonical()
	assert.Equal(t, key.Depth(), canonical.Depth())
	assert.Equal(t, key.ParentFingerprint(), canonical.ParentFingerprint())
	assert.Equal(t, key.ChildNum(), canonical.ChildNum())
	assert.Equal(t, key.ChainCode(), canonical.ChainCode())
}

func TestDecodeCheckRoundTrip(t *testing.T) {
	version, body, err := DecodeCheck(vpubKey)
	require.NoError(t, err)
	require.Len(t, body, 74)
	assert.Equal(t, vpubKey, EncodeCheck(version, body))
}

func TestDecodeInvalidBase58(t *testing.T) {
	// 0, O, I and l are not in the base58 alphabet.
	_, err := Decode(strings.Replace(vpubKey, "v", "0", 1))
	assert.ErrorIs(t, err, ErrInvalidBase58)

	_, err = Decode("")
	assert.ErrorIs(t, err, ErrInvalidBase58)
}

func TestDecodeInvalidLength(t *testing.T) {
	_, err := Decode(vpubKey[:50])
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestDecodeInvalidChecksum(t *testing.T) {
	flipped := []byte(vpubKey)
	if flipped[50] == 'a' {
		flipped[50] = 'b'
	} else {
		flipped[50] = 'a'
	}
	_, err := Decode(string(flipped))
	assert.ErrorIs(t, err, ErrInvalidChecksum)
}

func TestDecodeUnknownVersion(t *testing.T) {
	_, body, err := DecodeCheck(vpubKey)
	require.NoError(t, err)

	_, err = Decode(EncodeCheck(slip132.Version{0xde, 0xad, 0xbe, 0xef}, body))
	assert.ErrorIs(t, err, slip132.ErrUnknownVersion)
}

func TestEncodeCheckBadBodyPanics(t *testing.T) {
	assert.Panics(t, func() {
		EncodeCheck(slip132.Xpub, make([]byte, 73))
	})
}

func TestWithVersionMismatch(t *testing.T) {
	key, err := Decode(vpubKey)
	require.NoError(t, err)

	// A testnet public key cannot carry a mainnet or private prefix.
	_, err = key.WithVersion(slip132.Xpub)
	assert.ErrorIs(t, err, slip132.ErrNoCanonicalVersion)
	_, err = key.WithVersion(slip132.Tprv)
	assert.ErrorIs(t, err, slip132.ErrNoCanonicalVersion)
}

func TestCodecAgreesWithHdkeychain(t *testing.T) {
	for _, s := range []string{vpubKey, tpubKey, yprvKey, tprvKey} {
		hk, err := hdkeychain.NewKeyFromString(s)
		require.NoError(t, err)
		assert.Equal(t, s, hk.String())

		key, err := Decode(s)
		require.NoError(t, err)
		assert.Equal(t, s, key.String())
	}
}

func TestNeuter(t *testing.T) {
	key, err := Decode(tprvKey)
	require.NoError(t, err)

	pub, err := key.Neuter()
	require.NoError(t, err)
	assert.False(t, pub.IsPrivate())
	assert.Equal(t, slip132.ScriptUnspecified, pub.Script())

	hk, err := hdkeychain.NewKeyFromString(tprvKey)
	require.NoError(t, err)
	hkPub, err := hk.Neuter()
	require.NoError(t, err)
	assert.Equal(t, hkPub.String(), pub.String())
}

func TestNeuterKeepsScriptHint(t *testing.T) {
	key, err := Decode(tprvKey)
	require.NoError(t, err)

	vprvVersion, err := slip132.ReverseLookup(slip132.TestNet, slip132.ScriptP2WPKH, slip132.PrivateKey)
	require.NoError(t, err)
	vprv, err := key.WithVersion(vprvVersion)
	require.NoError(t, err)

	pub, err := vprv.Neuter()
	require.NoError(t, err)
	assert.False(t, pub.IsPrivate())
	assert.Equal(t, slip132.ScriptP2WPKH, pub.Script())

	// Same public key as the plain neutered version, different prefix.
	plain, err := key.Neuter()
	require.NoError(t, err)
	assert.Equal(t, plain.String(), pub.Canonical().String())

	// A neutered public key passes through unchanged.
	again, err := pub.Neuter()
	require.NoError(t, err)
	assert.Equal(t, pub, again)
}
