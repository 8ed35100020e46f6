// Package descriptor builds and parses the output descriptor forms an
// electrum wallet can map to:
//
//	pkh(KEY)  sh(wpkh(KEY))  wpkh(KEY)  wsh(KEY)  sh(wsh(KEY))
//	sh(multi(m,KEYS))  wsh(multi(m,KEYS))  sh(wsh(multi(m,KEYS)))
//
// with multi interchangeable with sortedmulti, and every key carrying a
// /0/* (receive) or /1/* (change) derivation suffix.
package descriptor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrUnsupportedGrammar is returned for descriptor nestings outside the
	// supported forms, e.g. tr(...) or sh(sh(...)).
	ErrUnsupportedGrammar = errors.New("unsupported descriptor grammar")
	// ErrMalformedDescriptor is returned for syntax errors within a
	// supported form.
	ErrMalformedDescriptor = errors.New("malformed descriptor")
	// ErrMissingCosignerKey is returned when a multisig kind is not given
	// exactly its expected number of keys.
	ErrMissingCosignerKey = errors.New("missing cosigner key")
)

// Kind is the wrapping template of a descriptor.
type Kind byte

const (
	P2PKH Kind = iota
	P2SHWPKH
	P2WPKH
	P2SH
	P2WSH
	P2SHWSH
)

func (k Kind) String() string {
	switch k {
	case P2PKH:
		return "p2pkh"
	case P2SHWPKH:
		return "p2wpkh-p2sh"
	case P2WPKH:
		return "p2wpkh"
	case P2SH:
		return "p2sh"
	case P2WSH:
		return "p2wsh"
	case P2SHWSH:
		return "p2wsh-p2sh"
	}
	return fmt.Sprintf("kind(%d)", byte(k))
}

// ScriptKind pairs a wrapping template with multisig parameters.
// Threshold and Signers are zero for single signature kinds.
type ScriptKind struct {
	Kind      Kind
	Threshold int
	Signers   int
}

// Multisig reports whether the kind embeds a multi expression.
func (sk ScriptKind) Multisig() bool { return sk.Threshold > 0 }

// Branch is the derivation branch a descriptor is bound to. Its integer
// value is the path segment.
type Branch int

const (
	BranchUnspecified Branch = -1
	BranchReceive     Branch = 0
	BranchChange      Branch = 1
)

// Pair is the receive and change descriptor produced together for one
// conversion request.
type Pair struct {
	Receive string
	Change  string
}

// Strings returns the pair in receive, change order.
func (p Pair) Strings() []string { return []string{p.Receive, p.Change} }

// BuildOpts controls descriptor construction.
type BuildOpts struct {
	// Sorted selects sortedmulti over multi for multisig kinds. Key order
	// changes the resulting script hash, so there is no silent default:
	// callers state what they want. Electrum wallets sort.
	Sorted bool
}

// Build wraps a canonical extended key string, plus cosigner keys for
// multisig kinds, into the receive and change descriptor pair. Multisig
// kinds require exactly Signers-1 cosigners; key order is preserved.
func Build(key string, sk ScriptKind, cosigners []string, opts BuildOpts) (Pair, error) {
	if !sk.Multisig() {
		if len(cosigners) > 0 {
			return Pair{}, fmt.Errorf("%w: %s takes a single key", ErrMalformedDescriptor, sk.Kind)
		}
		open, close, ok := singleWrapping(sk.Kind)
		if !ok {
			return Pair{}, fmt.Errorf("%w: %s without multisig parameters", ErrUnsupportedGrammar, sk.Kind)
		}
		return Pair{
			Receive: open + key + suffix(BranchReceive) + close,
			Change:  open + key + suffix(BranchChange) + close,
		}, nil
	}

	keys := append([]string{key}, cosigners...)
	if len(keys) != sk.Signers {
		return Pair{}, fmt.Errorf("%w: have %d keys, want %d", ErrMissingCosignerKey, len(keys), sk.Signers)
	}
	if sk.Threshold > sk.Signers {
		return Pair{}, fmt.Errorf("%w: threshold %d exceeds %d keys",
			ErrMalformedDescriptor, sk.Threshold, sk.Signers)
	}
	open, close, ok := multiWrapping(sk.Kind)
	if !ok {
		return Pair{}, fmt.Errorf("%w: %s multisig", ErrUnsupportedGrammar, sk.Kind)
	}
	fn := "multi"
	if opts.Sorted {
		fn = "sortedmulti"
	}

	build := func(branch Branch) string {
		parts := make([]string, 0, len(keys)+1)
		parts = append(parts, strconv.Itoa(sk.Threshold))
		for _, k := range keys {
			parts = append(parts, k+suffix(branch))
		}
		return open + fn + "(" + strings.Join(parts, ",") + ")" + close
	}
	return Pair{Receive: build(BranchReceive), Change: build(BranchChange)}, nil
}

func suffix(branch Branch) string {
	return fmt.Sprintf("/%d/*", branch)
}

func singleWrapping(k Kind) (open, close string, ok bool) {
	switch k {
	case P2PKH:
		return "pkh(", ")", true
	case P2SHWPKH:
		return "sh(wpkh(", "))", true
	case P2WPKH:
		return "wpkh(", ")", true
	case P2WSH:
		return "wsh(", ")", true
	case P2SHWSH:
		return "sh(wsh(", "))", true
	}
	return "", "", false
}

func multiWrapping(k Kind) (open, close string, ok bool) {
	switch k {
	case P2SH:
		return "sh(", ")", true
	case P2WSH:
		return "wsh(", ")", true
	case P2SHWSH:
		return "sh(wsh(", "))", true
	}
	return "", "", false
}
