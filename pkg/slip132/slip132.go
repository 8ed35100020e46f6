// Package slip132 holds the static mapping between the 4 byte version
// prefixes of serialized extended keys and their meaning: the network the
// key belongs to, whether it is public or private, and the script template
// a SLIP-0132 prefix destines it for.
//
// The table is electrum's XPUB_HEADERS/XPRV_HEADERS for mainnet and
// testnet, which follow SLIP-0132:
// https://github.com/satoshilabs/slips/blob/master/slip-0132.md
package slip132

import (
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	// ErrUnknownVersion is returned when a version prefix is not in the table.
	ErrUnknownVersion = errors.New("unknown version bytes")
	// ErrNoCanonicalVersion is returned when no SLIP-0132 prefix is defined
	// for a requested (network, script, key kind) combination.
	ErrNoCanonicalVersion = errors.New("no SLIP-0132 version defined")
)

// Network is the chain a key belongs to.
type Network byte

const (
	MainNet Network = iota
	TestNet
)

func (n Network) String() string {
	switch n {
	case MainNet:
		return "mainnet"
	case TestNet:
		return "testnet"
	}
	return fmt.Sprintf("network(%d)", byte(n))
}

// KeyKind distinguishes extended public keys from extended private keys.
type KeyKind byte

const (
	PublicKey KeyKind = iota
	PrivateKey
)

func (k KeyKind) String() string {
	if k == PrivateKey {
		return "private"
	}
	return "public"
}

// Script is the script template a version prefix hints at.
// ScriptUnspecified marks the plain xpub/tpub/xprv/tprv prefixes, which
// carry no script hint.
type Script byte

const (
	ScriptUnspecified Script = iota
	ScriptP2PKH
	ScriptP2SHWPKH
	ScriptP2WPKH
	ScriptP2SHWSH
	ScriptP2WSH
)

func (s Script) String() string {
	switch s {
	case ScriptUnspecified:
		return "standard"
	case ScriptP2PKH:
		return "p2pkh"
	case ScriptP2SHWPKH:
		return "p2wpkh-p2sh"
	case ScriptP2WPKH:
		return "p2wpkh"
	case ScriptP2SHWSH:
		return "p2wsh-p2sh"
	case ScriptP2WSH:
		return "p2wsh"
	}
	return fmt.Sprintf("script(%d)", byte(s))
}

// Version is the 4 byte prefix of a serialized extended key.
type Version [4]byte

// The plain BIP-32 versions, which every SLIP-0132 prefix canonicalizes to.
var (
	Xpub = Version{0x04, 0x88, 0xb2, 0x1e}
	Xprv = Version{0x04, 0x88, 0xad, 0xe4}
	Tpub = Version{0x04, 0x35, 0x87, 0xcf}
	Tprv = Version{0x04, 0x35, 0x83, 0x94}
)

// VersionFromBytes converts the leading bytes of a serialized key into a
// Version. b must be at least 4 bytes.
func VersionFromBytes(b []byte) (Version, error) {
	var v Version
	if len(b) < len(v) {
		return v, fmt.Errorf("%w: %x", ErrUnknownVersion, b)
	}
	copy(v[:], b)
	return v, nil
}

func (v Version) String() string {
	return hex.EncodeToString(v[:])
}

// Info is what a version prefix encodes.
type Info struct {
	Name    string
	Network Network
	Kind    KeyKind
	Script  Script
}

type entry struct {
	version Version
	info    Info
}

var table = []entry{
	{Xpub, Info{"xpub", MainNet, PublicKey, ScriptUnspecified}},
	{Version{0x04, 0x9d, 0x7c, 0xb2}, Info{"ypub", MainNet, PublicKey, ScriptP2SHWPKH}},
	{Version{0x04, 0xb2, 0x47, 0x46}, Info{"zpub", MainNet, PublicKey, ScriptP2WPKH}},
	{Version{0x02, 0x95, 0xb4, 0x3f}, Info{"Ypub", MainNet, PublicKey, ScriptP2SHWSH}},
	{Version{0x02, 0xaa, 0x7e, 0xd3}, Info{"Zpub", MainNet, PublicKey, ScriptP2WSH}},
	{Xprv, Info{"xprv", MainNet, PrivateKey, ScriptUnspecified}},
	{Version{0x04, 0x9d, 0x78, 0x78}, Info{"yprv", MainNet, PrivateKey, ScriptP2SHWPKH}},
	{Version{0x04, 0xb2, 0x43, 0x0c}, Info{"zprv", MainNet, PrivateKey, ScriptP2WPKH}},
	{Version{0x02, 0x95, 0xb0, 0x05}, Info{"Yprv", MainNet, PrivateKey, ScriptP2SHWSH}},
	{Version{0x02, 0xaa, 0x7a, 0x99}, Info{"Zprv", MainNet, PrivateKey, ScriptP2WSH}},
	{Tpub, Info{"tpub", TestNet, PublicKey, ScriptUnspecified}},
	{Version{0x04, 0x4a, 0x52, 0x62}, Info{"upub", TestNet, PublicKey, ScriptP2SHWPKH}},
	{Version{0x04, 0x5f, 0x1c, 0xf6}, Info{"vpub", TestNet, PublicKey, ScriptP2WPKH}},
	{Version{0x02, 0x42, 0x89, 0xef}, Info{"Upub", TestNet, PublicKey, ScriptP2SHWSH}},
	{Version{0x02, 0x57, 0x54, 0x83}, Info{"Vpub", TestNet, PublicKey, ScriptP2WSH}},
	{Tprv, Info{"tprv", TestNet, PrivateKey, ScriptUnspecified}},
	{Version{0x04, 0x4a, 0x4e, 0x28}, Info{"uprv", TestNet, PrivateKey, ScriptP2SHWPKH}},
	{Version{0x04, 0x5f, 0x18, 0xbc}, Info{"vprv", TestNet, PrivateKey, ScriptP2WPKH}},
	{Version{0x02, 0x42, 0x85, 0xb5}, Info{"Uprv", TestNet, PrivateKey, ScriptP2SHWSH}},
	{Version{0x02, 0x57, 0x50, 0x48}, Info{"Vprv", TestNet, PrivateKey, ScriptP2WSH}},
}

// Lookup resolves a version prefix. Info.Script is ScriptUnspecified for
// the plain BIP-32 prefixes.
func Lookup(v Version) (Info, error) {
	for _, e := range table {
		if e.version == v {
			return e.info, nil
		}
	}
	return Info{}, fmt.Errorf("%w: %s", ErrUnknownVersion, v)
}

// ReverseLookup returns the SLIP-0132 version prefix for the given
// combination. Script kinds without a defined prefix (the plain ones and
// p2pkh) fail with ErrNoCanonicalVersion rather than falling back to a
// default.
func ReverseLookup(network Network, script Script, kind KeyKind) (Version, error) {
	if script != ScriptUnspecified {
		for _, e := range table {
			if e.info.Network == network && e.info.Script == script && e.info.Kind == kind {
				return e.version, nil
			}
		}
	}
	return Version{}, fmt.Errorf("%w for %s %s %s key",
		ErrNoCanonicalVersion, network, script, kind)
}

// Canonicalize maps any known version prefix to the plain BIP-32 version
// for the same network and key kind. Descriptors must not carry the script
// hint, so keys are normalized through this before being embedded.
func Canonicalize(v Version) (Version, error) {
	info, err := Lookup(v)
	if err != nil {
		return Version{}, err
	}
	for _, e := range table {
		if e.info.Network == info.Network && e.info.Kind == info.Kind &&
			e.info.Script == ScriptUnspecified {
			return e.version, nil
		}
	}
	// Unreachable while every (network, kind) pair has a plain entry.
	return Version{}, fmt.Errorf("%w for %s %s key", ErrNoCanonicalVersion, info.Network, info.Kind)
}
