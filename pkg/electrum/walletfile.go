// Package electrum maps electrum wallet files and electrum style SLIP-0132
// extended keys to output descriptors and back.
package electrum

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/schulterklopfer/electrum2descriptors/pkg/descriptor"
	"github.com/schulterklopfer/electrum2descriptors/pkg/extkey"
	"github.com/schulterklopfer/electrum2descriptors/pkg/slip132"
)

var (
	// ErrUnsupportedWalletType is returned for wallet or script type tags
	// outside the supported set.
	ErrUnsupportedWalletType = errors.New("unsupported wallet type")
	// ErrInvalidWalletFile is returned when required fields are missing or
	// inconsistent.
	ErrInvalidWalletFile = errors.New("invalid wallet file")
)

// Keystore mirrors one keystore section of an electrum wallet file:
// "keystore" for standard wallets, "x1/".."xN/" for multisig ones. Keys are
// stored the electrum way, SLIP-0132 prefixed where a prefix is defined.
type Keystore struct {
	Type string `json:"type"`
	Xprv string `json:"xprv,omitempty"`
	Xpub string `json:"xpub"`
}

// Key returns the private key when the keystore holds one, the public key
// otherwise.
func (ks Keystore) Key() string {
	if ks.Xprv != "" {
		return ks.Xprv
	}
	return ks.Xpub
}

// Addresses mirrors the addresses section of a wallet file. The conversion
// never fills it, but round trips carry it through.
type Addresses struct {
	Change    []string `json:"change"`
	Receiving []string `json:"receiving"`
}

// WalletFile is the decoded field mapping of an electrum wallet file.
type WalletFile struct {
	Addresses  Addresses
	WalletType string // "standard" or "MofN"
	ScriptType string // optional explicit script tag, e.g. "p2wpkh"
	Keystores  []Keystore
}

// multisigParams parses an "MofN" wallet type. ok is false for "standard"
// or anything else.
func (w *WalletFile) multisigParams() (m, n int, ok bool) {
	left, right, found := strings.Cut(w.WalletType, "of")
	if !found {
		return 0, 0, false
	}
	m, err := strconv.Atoi(left)
	if err != nil {
		return 0, 0, false
	}
	n, err = strconv.Atoi(right)
	if err != nil {
		return 0, 0, false
	}
	return m, n, true
}

func (w *WalletFile) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWalletFile, err)
	}
	return w.fromFields(fields)
}

func (w *WalletFile) fromFields(fields map[string]json.RawMessage) error {
	raw, ok := fields["wallet_type"]
	if !ok {
		return fmt.Errorf("%w: missing wallet_type", ErrInvalidWalletFile)
	}
	if err := json.Unmarshal(raw, &w.WalletType); err != nil {
		return fmt.Errorf("%w: wallet_type: %v", ErrInvalidWalletFile, err)
	}
	if raw, ok := fields["script_type"]; ok {
		if err := json.Unmarshal(raw, &w.ScriptType); err != nil {
			return fmt.Errorf("%w: script_type: %v", ErrInvalidWalletFile, err)
		}
	}
	if raw, ok := fields["addresses"]; ok {
		if err := json.Unmarshal(raw, &w.Addresses); err != nil {
			return fmt.Errorf("%w: addresses: %v", ErrInvalidWalletFile, err)
		}
	}

	m, n, multisig := w.multisigParams()
	if !multisig {
		if w.WalletType != "standard" {
			return fmt.Errorf("%w: %q", ErrUnsupportedWalletType, w.WalletType)
		}
		raw, ok := fields["keystore"]
		if !ok {
			return fmt.Errorf("%w: missing keystore", ErrInvalidWalletFile)
		}
		var ks Keystore
		if err := json.Unmarshal(raw, &ks); err != nil {
			return fmt.Errorf("%w: keystore: %v", ErrInvalidWalletFile, err)
		}
		if ks.Key() == "" {
			return fmt.Errorf("%w: keystore holds neither xprv nor xpub", ErrInvalidWalletFile)
		}
		w.Keystores = []Keystore{ks}
		return nil
	}

	if n < 2 {
		return fmt.Errorf("%w: multisig with fewer than two signers", ErrInvalidWalletFile)
	}
	if m < 1 || m > n {
		return fmt.Errorf("%w: threshold %d out of range for %d signers", ErrInvalidWalletFile, m, n)
	}
	w.Keystores = make([]Keystore, 0, n)
	for i := 1; i <= n; i++ {
		raw, ok := fields[fmt.Sprintf("x%d/", i)]
		if !ok {
			return fmt.Errorf("%w: wallet declares %s but has %d keystores",
				descriptor.ErrMissingCosignerKey, w.WalletType, i-1)
		}
		var ks Keystore
		if err := json.Unmarshal(raw, &ks); err != nil {
			return fmt.Errorf("%w: x%d/: %v", ErrInvalidWalletFile, i, err)
		}
		if ks.Key() == "" {
			return fmt.Errorf("%w: x%d/ holds neither xprv nor xpub", ErrInvalidWalletFile, i)
		}
		w.Keystores = append(w.Keystores, ks)
	}
	return nil
}

func (w *WalletFile) MarshalJSON() ([]byte, error) {
	fields := map[string]interface{}{
		"addresses":   w.Addresses,
		"wallet_type": w.WalletType,
	}
	if w.ScriptType != "" {
		fields["script_type"] = w.ScriptType
	}
	if _, _, multisig := w.multisigParams(); !multisig {
		if len(w.Keystores) != 1 {
			return nil, fmt.Errorf("%w: standard wallet needs exactly one keystore", ErrInvalidWalletFile)
		}
		fields["keystore"] = w.Keystores[0]
	} else {
		for i, ks := range w.Keystores {
			fields[fmt.Sprintf("x%d/", i+1)] = ks
		}
	}
	return json.Marshal(fields)
}

// scriptTags maps the explicit wallet file tag to a descriptor kind.
var scriptTags = map[string]descriptor.Kind{
	"p2pkh":       descriptor.P2PKH,
	"p2wpkh":      descriptor.P2WPKH,
	"p2wpkh-p2sh": descriptor.P2SHWPKH,
	"p2sh":        descriptor.P2SH,
	"p2wsh":       descriptor.P2WSH,
	"p2wsh-p2sh":  descriptor.P2SHWSH,
}

var singleKinds = map[descriptor.Kind]bool{
	descriptor.P2PKH:    true,
	descriptor.P2WPKH:   true,
	descriptor.P2SHWPKH: true,
}

// scriptKind resolves the wallet's script kind from its explicit tag when
// present, otherwise from the SLIP-0132 prefix of the first keystore key.
func (w *WalletFile) scriptKind() (descriptor.ScriptKind, error) {
	m, n, multisig := w.multisigParams()

	var kind descriptor.Kind
	if w.ScriptType != "" {
		k, ok := scriptTags[w.ScriptType]
		if !ok {
			return descriptor.ScriptKind{}, fmt.Errorf("%w: script type %q",
				ErrUnsupportedWalletType, w.ScriptType)
		}
		if multisig == singleKinds[k] {
			return descriptor.ScriptKind{}, fmt.Errorf("%w: script type %q does not fit wallet type %q",
				ErrInvalidWalletFile, w.ScriptType, w.WalletType)
		}
		kind = k
	} else {
		key, err := extkey.Decode(w.Keystores[0].Key())
		if err != nil {
			return descriptor.ScriptKind{}, err
		}
		kind, err = kindForScript(key.Script(), multisig)
		if err != nil {
			return descriptor.ScriptKind{}, err
		}
	}

	if !multisig {
		return descriptor.ScriptKind{Kind: kind}, nil
	}
	return descriptor.ScriptKind{Kind: kind, Threshold: m, Signers: n}, nil
}

// kindForScript maps a version prefix script hint to the descriptor kind it
// stands for in a single or multisig wallet. Plain prefixes mean legacy:
// pkh for standard wallets, sh(multi) for multisig ones.
func kindForScript(script slip132.Script, multisig bool) (descriptor.Kind, error) {
	if !multisig {
		switch script {
		case slip132.ScriptUnspecified, slip132.ScriptP2PKH:
			return descriptor.P2PKH, nil
		case slip132.ScriptP2SHWPKH:
			return descriptor.P2SHWPKH, nil
		case slip132.ScriptP2WPKH:
			return descriptor.P2WPKH, nil
		case slip132.ScriptP2SHWSH:
			return descriptor.P2SHWSH, nil
		case slip132.ScriptP2WSH:
			return descriptor.P2WSH, nil
		}
	} else {
		switch script {
		case slip132.ScriptUnspecified, slip132.ScriptP2PKH:
			return descriptor.P2SH, nil
		case slip132.ScriptP2SHWSH:
			return descriptor.P2SHWSH, nil
		case slip132.ScriptP2WSH:
			return descriptor.P2WSH, nil
		}
	}
	return 0, fmt.Errorf("%w: script kind %s in a %s wallet",
		ErrUnsupportedWalletType, script, walletKindName(multisig))
}

func walletKindName(multisig bool) string {
	if multisig {
		return "multisig"
	}
	return "standard"
}

// kindScript is the inverse of kindForScript for re-prefixing keystore
// keys: descriptor kinds without a SLIP-0132 prefix map to
// ScriptUnspecified and keep the plain version.
func kindScript(kind descriptor.Kind) slip132.Script {
	switch kind {
	case descriptor.P2SHWPKH:
		return slip132.ScriptP2SHWPKH
	case descriptor.P2WPKH:
		return slip132.ScriptP2WPKH
	case descriptor.P2SHWSH:
		return slip132.ScriptP2SHWSH
	case descriptor.P2WSH:
		return slip132.ScriptP2WSH
	}
	return slip132.ScriptUnspecified
}
