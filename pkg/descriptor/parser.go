package descriptor

import (
	"fmt"
	"strconv"
	"strings"
)

// Parsed is the result of taking a descriptor apart.
type Parsed struct {
	ScriptKind ScriptKind
	// Keys are the embedded extended key strings, stripped of their branch
	// suffix, in the order they appear.
	Keys []string
	// Branch is the derivation branch shared by all keys, or
	// BranchUnspecified when the keys carry no /0/* or /1/* suffix.
	Branch Branch
	// Sorted reports whether a multisig expression used sortedmulti.
	Sorted bool
}

// Parse recognizes the exact descriptor forms produced by Build. Any other
// nesting fails with ErrUnsupportedGrammar, syntax errors within a
// supported form with ErrMalformedDescriptor.
func Parse(desc string) (*Parsed, error) {
	s := strings.TrimSpace(desc)
	if s == "" {
		return nil, fmt.Errorf("%w: empty descriptor", ErrMalformedDescriptor)
	}
	if strings.ContainsAny(s, " \t\r\n") {
		return nil, fmt.Errorf("%w: descriptor contains whitespace", ErrMalformedDescriptor)
	}

	var wrappers []string
	for {
		name, inner, isCall, err := unwrap(s)
		if err != nil {
			return nil, err
		}
		if !isCall {
			break
		}
		wrappers = append(wrappers, name)
		s = inner
		if name == "multi" || name == "sortedmulti" {
			break
		}
		if len(wrappers) > 3 {
			return nil, fmt.Errorf("%w: nesting too deep", ErrUnsupportedGrammar)
		}
	}

	chain := strings.Join(wrappers, "/")
	sorted := strings.HasSuffix(chain, "sortedmulti")
	if sorted {
		chain = strings.TrimSuffix(chain, "sortedmulti") + "multi"
	}

	switch chain {
	case "pkh":
		return parseSingle(P2PKH, s)
	case "wpkh":
		return parseSingle(P2WPKH, s)
	case "sh/wpkh":
		return parseSingle(P2SHWPKH, s)
	case "wsh":
		return parseSingle(P2WSH, s)
	case "sh/wsh":
		return parseSingle(P2SHWSH, s)
	case "sh/multi":
		return parseMulti(P2SH, s, sorted)
	case "wsh/multi":
		return parseMulti(P2WSH, s, sorted)
	case "sh/wsh/multi":
		return parseMulti(P2SHWSH, s, sorted)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedGrammar, chain)
}

func parseSingle(kind Kind, content string) (*Parsed, error) {
	key, branch, err := splitBranch(content)
	if err != nil {
		return nil, err
	}
	return &Parsed{
		ScriptKind: ScriptKind{Kind: kind},
		Keys:       []string{key},
		Branch:     branch,
	}, nil
}

func parseMulti(kind Kind, content string, sorted bool) (*Parsed, error) {
	parts := strings.Split(content, ",")
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: multisig with fewer than two keys", ErrMalformedDescriptor)
	}
	threshold, err := strconv.Atoi(parts[0])
	if err != nil || threshold < 1 {
		return nil, fmt.Errorf("%w: invalid threshold %q", ErrMalformedDescriptor, parts[0])
	}

	keys := make([]string, 0, len(parts)-1)
	branch := BranchUnspecified
	for i, part := range parts[1:] {
		key, b, err := splitBranch(part)
		if err != nil {
			return nil, err
		}
		if i > 0 && b != branch {
			return nil, fmt.Errorf("%w: inconsistent derivation branches", ErrMalformedDescriptor)
		}
		branch = b
		keys = append(keys, key)
	}
	if threshold > len(keys) {
		return nil, fmt.Errorf("%w: threshold %d exceeds %d keys",
			ErrMalformedDescriptor, threshold, len(keys))
	}

	return &Parsed{
		ScriptKind: ScriptKind{Kind: kind, Threshold: threshold, Signers: len(keys)},
		Keys:       keys,
		Branch:     branch,
		Sorted:     sorted,
	}, nil
}

// unwrap peels one `name(inner)` layer off s. isCall is false when s does
// not look like a function call at all, i.e. it is a key expression.
func unwrap(s string) (name, inner string, isCall bool, err error) {
	idx := strings.IndexByte(s, '(')
	if idx <= 0 || !isFuncName(s[:idx]) {
		return "", "", false, nil
	}
	if !strings.HasSuffix(s, ")") {
		return "", "", false, fmt.Errorf("%w: unbalanced parentheses", ErrMalformedDescriptor)
	}
	inner = s[idx+1 : len(s)-1]
	if inner == "" {
		return "", "", false, fmt.Errorf("%w: empty %s expression", ErrMalformedDescriptor, s[:idx])
	}
	return s[:idx], inner, true, nil
}

func isFuncName(s string) bool {
	for _, c := range s {
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}

// splitBranch separates the /0/* or /1/* suffix from a key expression.
func splitBranch(s string) (string, Branch, error) {
	branch := BranchUnspecified
	switch {
	case strings.HasSuffix(s, suffix(BranchReceive)):
		s, branch = s[:len(s)-4], BranchReceive
	case strings.HasSuffix(s, suffix(BranchChange)):
		s, branch = s[:len(s)-4], BranchChange
	}
	if s == "" || strings.ContainsAny(s, "(),/*") {
		return "", branch, fmt.Errorf("%w: malformed key expression %q", ErrMalformedDescriptor, s)
	}
	return s, branch, nil
}
