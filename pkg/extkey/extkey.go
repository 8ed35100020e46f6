// Package extkey implements the checksum verified base58 codec for the
// fixed 78 byte extended key serialization and the ExtendedKey type built
// on top of it.
package extkey

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/schulterklopfer/electrum2descriptors/pkg/slip132"
)

// The serialized format is:
//   version (4) || depth (1) || parent fingerprint (4) ||
//   child num (4) || chain code (32) || key data (33) || checksum (4)
const (
	serializedKeyLen = 4 + 1 + 4 + 4 + 32 + 33 // 78 bytes
	bodyLen          = serializedKeyLen - 4
	checksumLen      = 4
)

var (
	// ErrInvalidBase58 is returned for input outside the base58 alphabet.
	ErrInvalidBase58 = errors.New("invalid base58 string")
	// ErrInvalidLength is returned when the decoded data is not 82 bytes.
	ErrInvalidLength = errors.New("invalid extended key length")
	// ErrInvalidChecksum is returned when the trailing 4 bytes do not match
	// the double hash of the payload.
	ErrInvalidChecksum = errors.New("invalid checksum")
	// ErrInvalidKeyData is returned when the 33 byte key field is neither a
	// valid compressed public key nor a 0x00 prefixed private key scalar.
	ErrInvalidKeyData = errors.New("invalid key material")
)

// DecodeCheck base58-decodes s, verifies the trailing checksum and returns
// the version prefix together with the 74 byte key body. It does not
// interpret what the version bytes mean.
func DecodeCheck(s string) (slip132.Version, []byte, error) {
	var version slip132.Version

	decoded := base58.Decode(s)
	if len(decoded) == 0 {
		return version, nil, fmt.Errorf("%w: %q", ErrInvalidBase58, s)
	}
	if len(decoded) != serializedKeyLen+checksumLen {
		return version, nil, fmt.Errorf("%w: got %d bytes, want %d",
			ErrInvalidLength, len(decoded), serializedKeyLen+checksumLen)
	}

	// Split the payload and checksum up and ensure the checksum matches.
	payload := decoded[:serializedKeyLen]
	checkSum := decoded[serializedKeyLen:]
	expectedCheckSum := chainhash.DoubleHashB(payload)[:checksumLen]
	if !bytes.Equal(checkSum, expectedCheckSum) {
		return version, nil, fmt.Errorf("%w: got %x, want %x",
			ErrInvalidChecksum, checkSum, expectedCheckSum)
	}

	copy(version[:], payload[:4])
	return version, payload[4:], nil
}

// EncodeCheck serializes version and the 74 byte key body with the 4 byte
// double hash checksum appended. A body of any other length is a caller
// bug, not an input error.
func EncodeCheck(version slip132.Version, body []byte) string {
	if len(body) != bodyLen {
		panic(fmt.Sprintf("extkey: body must be %d bytes, got %d", bodyLen, len(body)))
	}
	payload := make([]byte, 0, serializedKeyLen+checksumLen)
	payload = append(payload, version[:]...)
	payload = append(payload, body...)
	payload = append(payload, chainhash.DoubleHashB(payload)[:checksumLen]...)
	return base58.Encode(payload)
}

// ExtendedKey is a decoded BIP-32 extended key. It is immutable; methods
// that change the version prefix return a copy.
type ExtendedKey struct {
	info      slip132.Info
	version   slip132.Version
	depth     byte
	parentFP  [4]byte
	childNum  uint32
	chainCode [32]byte
	keyData   [33]byte
}

// Decode parses a base58 extended key string with a known version prefix.
func Decode(s string) (*ExtendedKey, error) {
	version, body, err := DecodeCheck(s)
	if err != nil {
		return nil, err
	}

	info, err := slip132.Lookup(version)
	if err != nil {
		return nil, err
	}

	k := &ExtendedKey{
		info:     info,
		version:  version,
		depth:    body[0],
		childNum: binary.BigEndian.Uint32(body[5:9]),
	}
	copy(k.parentFP[:], body[1:5])
	copy(k.chainCode[:], body[9:41])
	copy(k.keyData[:], body[41:74])

	if err := k.validateKeyData(); err != nil {
		return nil, err
	}
	return k, nil
}

// The key data is a private key if it starts with 0x00. Serialized
// compressed pubkeys start with 0x02 or 0x03.
func (k *ExtendedKey) validateKeyData() error {
	if k.info.Kind == slip132.PrivateKey {
		if k.keyData[0] != 0x00 {
			return fmt.Errorf("%w: private key data must start with 0x00", ErrInvalidKeyData)
		}
		// The scalar must be within the range of the order of the secp256k1
		// curve and not be 0.
		keyNum := new(big.Int).SetBytes(k.keyData[1:])
		if keyNum.Cmp(btcec.S256().N) >= 0 || keyNum.Sign() == 0 {
			return fmt.Errorf("%w: private key scalar out of range", ErrInvalidKeyData)
		}
		return nil
	}
	if _, err := btcec.ParsePubKey(k.keyData[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKeyData, err)
	}
	return nil
}

func (k *ExtendedKey) Version() slip132.Version { return k.version }

func (k *ExtendedKey) Network() slip132.Network { return k.info.Network }

// Script returns the script hint of the key's version prefix,
// slip132.ScriptUnspecified for plain xpub/tpub/xprv/tprv keys.
func (k *ExtendedKey) Script() slip132.Script { return k.info.Script }

func (k *ExtendedKey) Kind() slip132.KeyKind { return k.info.Kind }

func (k *ExtendedKey) IsPrivate() bool { return k.info.Kind == slip132.PrivateKey }

func (k *ExtendedKey) Depth() byte { return k.depth }

func (k *ExtendedKey) ParentFingerprint() [4]byte { return k.parentFP }

func (k *ExtendedKey) ChildNum() uint32 { return k.childNum }

func (k *ExtendedKey) ChainCode() [32]byte { return k.chainCode }

func (k *ExtendedKey) body() []byte {
	body := make([]byte, 0, bodyLen)
	body = append(body, k.depth)
	body = append(body, k.parentFP[:]...)
	body = binary.BigEndian.AppendUint32(body, k.childNum)
	body = append(body, k.chainCode[:]...)
	body = append(body, k.keyData[:]...)
	return body
}

// String serializes the key under its current version prefix.
func (k *ExtendedKey) String() string {
	return EncodeCheck(k.version, k.body())
}

// WithVersion returns a copy of k serialized under a different version
// prefix. The new version must agree with the key on network and key kind.
func (k *ExtendedKey) WithVersion(v slip132.Version) (*ExtendedKey, error) {
	info, err := slip132.Lookup(v)
	if err != nil {
		return nil, err
	}
	if info.Network != k.info.Network || info.Kind != k.info.Kind {
		return nil, fmt.Errorf("%w: %s does not fit a %s %s key",
			slip132.ErrNoCanonicalVersion, info.Name, k.info.Network, k.info.Kind)
	}
	nk := *k
	nk.version = v
	nk.info = info
	return &nk, nil
}

// Canonical returns k under the plain BIP-32 version prefix for its network
// and key kind, dropping any SLIP-0132 script hint.
func (k *ExtendedKey) Canonical() *ExtendedKey {
	// k's version came out of the table, so canonicalizing cannot fail.
	v, err := slip132.Canonicalize(k.version)
	if err != nil {
		panic(err)
	}
	nk, err := k.WithVersion(v)
	if err != nil {
		panic(err)
	}
	return nk
}

// Neuter returns the extended public key for a private k, keeping the
// script hint of the original version prefix. Public keys are returned
// unchanged.
func (k *ExtendedKey) Neuter() (*ExtendedKey, error) {
	if !k.IsPrivate() {
		return k, nil
	}
	hk, err := hdkeychain.NewKeyFromString(k.Canonical().String())
	if err != nil {
		return nil, err
	}
	pub, err := hk.Neuter()
	if err != nil {
		return nil, err
	}
	nk, err := Decode(pub.String())
	if err != nil {
		return nil, err
	}
	if k.info.Script == slip132.ScriptUnspecified {
		return nk, nil
	}
	v, err := slip132.ReverseLookup(k.info.Network, k.info.Script, slip132.PublicKey)
	if err != nil {
		return nil, err
	}
	return nk.WithVersion(v)
}
