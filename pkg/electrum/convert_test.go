package electrum

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schulterklopfer/electrum2descriptors/pkg/descriptor"
	"github.com/schulterklopfer/electrum2descriptors/pkg/extkey"
)

// Vectors from SLIP-0132.
const (
	slipXpub = "xpub6BosfCnifzxcFwrSzQiqu2DBVTshkCXacvNsWGYJVVhhawA7d4R5WSWGFNbi8Aw6ZRc1brxMyWMzG3DSSSSoekkudhUd9yLb6qx39T9nMdj"
	slipYpub = "ypub6Ww3ibxVfGzLrAH1PNcjyAWenMTbbAosGNB6VvmSEgytSER9azLDWCxoJwW7Ke7icmizBMXrzBx9979FfaHxHcrArf3zbeJJJUZPf663zsP"
	slipZpub = "zpub6rFR7y4Q2AijBEqTUquhVz398htDFrtymD9xYYfG1m4wAcvPhXNfE3EfH1r1ADqtfSdVCToUG868RvUUkgDKf31mGDtKsAYz2oz2AGutZYs"
)

func TestKeyToDescriptors(t *testing.T) {
	pair, err := KeyToDescriptors(vpubKey)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"wpkh(" + tpubKey + "/0/*)",
		"wpkh(" + tpubKey + "/1/*)",
	}, pair.Strings())

	pair, err = KeyToDescriptors(yprvKey)
	require.NoError(t, err)
	assert.Equal(t, "sh(wpkh("+xprvKey+"/0/*))", pair.Receive)
	assert.Equal(t, "sh(wpkh("+xprvKey+"/1/*))", pair.Change)

	// Plain keys fall back to the legacy pkh wrapping and stay unchanged.
	pair, err = KeyToDescriptors(slipXpub)
	require.NoError(t, err)
	assert.Equal(t, "pkh("+slipXpub+"/0/*)", pair.Receive)
}

func TestKeyToDescriptorsWrapping(t *testing.T) {
	tests := []struct {
		key  string
		open string
	}{
		{slipYpub, "sh(wpkh(xpub"},
		{slipZpub, "wpkh(xpub"},
	}
	for _, tt := range tests {
		pair, err := KeyToDescriptors(tt.key)
		require.NoError(t, err, tt.key)
		assert.True(t, strings.HasPrefix(pair.Receive, tt.open), pair.Receive)
		assert.True(t, strings.HasSuffix(pair.Receive, "/0/*)") || strings.HasSuffix(pair.Receive, "/0/*))"), pair.Receive)
		assert.Equal(t, strings.Replace(pair.Receive, "/0/*", "/1/*", 1), pair.Change)
	}
}

func TestKeyToDescriptorsRejectsGarbage(t *testing.T) {
	_, err := KeyToDescriptors("not a key")
	assert.ErrorIs(t, err, extkey.ErrInvalidBase58)
}

func TestFromDescriptorStandard(t *testing.T) {
	wallet, err := FromDescriptor("wpkh(" + tpubKey + "/0/*)")
	require.NoError(t, err)
	assert.Equal(t, "standard", wallet.WalletType)
	assert.Equal(t, "p2wpkh", wallet.ScriptType)
	require.Len(t, wallet.Keystores, 1)
	// The keystore key carries the SLIP-0132 prefix again.
	assert.Equal(t, vpubKey, wallet.Keystores[0].Xpub)
	assert.Empty(t, wallet.Keystores[0].Xprv)

	pair, err := wallet.ToDescriptors(false)
	require.NoError(t, err)
	assert.Equal(t, "wpkh("+tpubKey+"/0/*)", pair.Receive)
	assert.Equal(t, "wpkh("+tpubKey+"/1/*)", pair.Change)
}

func TestFromDescriptorMultisigRoundTrip(t *testing.T) {
	desc := "wsh(sortedmulti(2," + segwitTprv + "/0/*," + segwitTpub + "/0/*))"
	wallet, err := FromDescriptor(desc)
	require.NoError(t, err)
	assert.Equal(t, "2of2", wallet.WalletType)
	assert.Equal(t, "p2wsh", wallet.ScriptType)
	require.Len(t, wallet.Keystores, 2)

	// The private keystore stores both the xprv and the derived xpub,
	// prefixed for segwit multisig.
	assert.True(t, strings.HasPrefix(wallet.Keystores[0].Xprv, "Vprv"), wallet.Keystores[0].Xprv)
	assert.True(t, strings.HasPrefix(wallet.Keystores[0].Xpub, "Vpub"), wallet.Keystores[0].Xpub)
	assert.True(t, strings.HasPrefix(wallet.Keystores[1].Xpub, "Vpub"), wallet.Keystores[1].Xpub)
	assert.Empty(t, wallet.Keystores[1].Xprv)

	pair, err := wallet.ToDescriptors(false)
	require.NoError(t, err)
	assert.Equal(t, desc, pair.Receive)
	assert.Equal(t, strings.Replace(desc, "/0/*", "/1/*", 2), pair.Change)
}

func TestFromDescriptorLegacyMultisig(t *testing.T) {
	desc := "sh(sortedmulti(2," + multisigTprv + "/0/*," + multisigTpub + "/0/*))"
	wallet, err := FromDescriptor(desc)
	require.NoError(t, err)

	// No SLIP-0132 prefix is defined for legacy multisig, the keys stay
	// plain.
	assert.Equal(t, multisigTprv, wallet.Keystores[0].Xprv)
	assert.Equal(t, multisigTpub, wallet.Keystores[1].Xpub)

	pair, err := wallet.ToDescriptors(false)
	require.NoError(t, err)
	assert.Equal(t, desc, pair.Receive)
}

func TestFromDescriptorRequiresReceiveBranch(t *testing.T) {
	for _, desc := range []string{
		"wpkh(" + tpubKey + ")",
		"wpkh(" + tpubKey + "/1/*)",
	} {
		_, err := FromDescriptor(desc)
		assert.ErrorIs(t, err, descriptor.ErrMalformedDescriptor, desc)
	}
}

func TestFullConversionRoundTrip(t *testing.T) {
	// Descriptor key plus the original version bytes reproduces the
	// SLIP-0132 input exactly.
	key, err := extkey.Decode(vpubKey)
	require.NoError(t, err)

	pair, err := KeyToDescriptors(vpubKey)
	require.NoError(t, err)
	parsed, err := descriptor.Parse(pair.Receive)
	require.NoError(t, err)
	require.Len(t, parsed.Keys, 1)

	embedded, err := extkey.Decode(parsed.Keys[0])
	require.NoError(t, err)
	restored, err := embedded.WithVersion(key.Version())
	require.NoError(t, err)
	assert.Equal(t, vpubKey, restored.String())
}
