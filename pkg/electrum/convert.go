package electrum

import (
	"fmt"

	"github.com/schulterklopfer/electrum2descriptors/pkg/descriptor"
	"github.com/schulterklopfer/electrum2descriptors/pkg/extkey"
	"github.com/schulterklopfer/electrum2descriptors/pkg/slip132"
)

// KeyToDescriptors converts a bare extended key string to its receive and
// change descriptor pair. The SLIP-0132 prefix selects the wrapping, plain
// xpub/tpub/xprv/tprv keys get the legacy pkh wrapping, and the embedded
// key is normalized to the plain prefix.
func KeyToDescriptors(s string) (descriptor.Pair, error) {
	key, err := extkey.Decode(s)
	if err != nil {
		return descriptor.Pair{}, err
	}
	kind, err := kindForScript(key.Script(), false)
	if err != nil {
		return descriptor.Pair{}, err
	}
	sk := descriptor.ScriptKind{Kind: kind}
	return descriptor.Build(key.Canonical().String(), sk, nil, descriptor.BuildOpts{})
}

// ToDescriptors produces the receive and change descriptor for the wallet.
// Electrum sorts multisig keys at script construction, so multisig wallets
// get sortedmulti unless keepOrder asks for plain multi with the keystore
// order preserved.
func (w *WalletFile) ToDescriptors(keepOrder bool) (descriptor.Pair, error) {
	if len(w.Keystores) == 0 {
		return descriptor.Pair{}, fmt.Errorf("%w: no keystores", ErrInvalidWalletFile)
	}
	sk, err := w.scriptKind()
	if err != nil {
		return descriptor.Pair{}, err
	}

	keys := make([]string, 0, len(w.Keystores))
	network := slip132.Network(0)
	for i, ks := range w.Keystores {
		key, err := extkey.Decode(ks.Key())
		if err != nil {
			return descriptor.Pair{}, err
		}
		if i == 0 {
			network = key.Network()
		} else if key.Network() != network {
			return descriptor.Pair{}, fmt.Errorf("%w: keystores span multiple networks", ErrInvalidWalletFile)
		}
		keys = append(keys, key.Canonical().String())
	}

	opts := descriptor.BuildOpts{Sorted: sk.Multisig() && !keepOrder}
	return descriptor.Build(keys[0], sk, keys[1:], opts)
}

// FromDescriptor rebuilds wallet fields from an external descriptor. Only
// the receive branch descriptor is accepted; the change descriptor is
// implied, so every key must carry the /0/* wildcard suffix.
func FromDescriptor(desc string) (*WalletFile, error) {
	parsed, err := descriptor.Parse(desc)
	if err != nil {
		return nil, err
	}
	if parsed.Branch != descriptor.BranchReceive {
		return nil, fmt.Errorf("%w: external descriptor with /0/* keys required",
			descriptor.ErrMalformedDescriptor)
	}

	script := kindScript(parsed.ScriptKind.Kind)
	keystores := make([]Keystore, 0, len(parsed.Keys))
	for _, s := range parsed.Keys {
		key, err := extkey.Decode(s)
		if err != nil {
			return nil, err
		}
		ks, err := newKeystore(key, script)
		if err != nil {
			return nil, err
		}
		keystores = append(keystores, ks)
	}

	w := &WalletFile{
		Addresses:  Addresses{Change: []string{}, Receiving: []string{}},
		WalletType: "standard",
		Keystores:  keystores,
	}
	switch {
	case parsed.ScriptKind.Multisig():
		w.WalletType = fmt.Sprintf("%dof%d", parsed.ScriptKind.Threshold, parsed.ScriptKind.Signers)
		w.ScriptType = parsed.ScriptKind.Kind.String()
	case singleKinds[parsed.ScriptKind.Kind]:
		w.ScriptType = parsed.ScriptKind.Kind.String()
	}
	// Bare wsh/sh(wsh) single key wallets carry no tag; the SLIP-0132
	// prefix on the keystore key already states the script kind.
	return w, nil
}

// newKeystore stores a key the electrum way: SLIP-0132 prefixed when the
// script kind defines a prefix, and with the public key derived alongside
// a private one.
func newKeystore(key *extkey.ExtendedKey, script slip132.Script) (Keystore, error) {
	ks := Keystore{Type: "bip32"}

	pub := key
	if key.IsPrivate() {
		s, err := slip132String(key, script)
		if err != nil {
			return Keystore{}, err
		}
		ks.Xprv = s
		if pub, err = key.Neuter(); err != nil {
			return Keystore{}, err
		}
	}

	s, err := slip132String(pub, script)
	if err != nil {
		return Keystore{}, err
	}
	ks.Xpub = s
	return ks, nil
}

// slip132String serializes a key under the SLIP-0132 prefix for script, or
// under the plain prefix when no SLIP-0132 prefix is defined.
func slip132String(key *extkey.ExtendedKey, script slip132.Script) (string, error) {
	if script == slip132.ScriptUnspecified {
		return key.Canonical().String(), nil
	}
	v, err := slip132.ReverseLookup(key.Network(), script, key.Kind())
	if err != nil {
		return "", err
	}
	prefixed, err := key.WithVersion(v)
	if err != nil {
		return "", err
	}
	return prefixed.String(), nil
}
