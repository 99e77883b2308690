package siws

import (
	"bytes"
	"crypto/sha256"
	"math/big"
	"strings"
)

const c32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// Address versions
const (
	VersionMainnetSingleSig byte = 22
	VersionMainnetMultiSig  byte = 20
	VersionTestnetSingleSig byte = 26
	VersionTestnetMultiSig  byte = 21
)

var big32 = big.NewInt(32)

// C32Encode encodes bytes in Crockford base32 as used by c32check. Each
// leading zero byte becomes one leading '0'.
func C32Encode(data []byte) string {
	zeros := 0
	for zeros < len(data) && data[zeros] == 0 {
		zeros++
	}

	n := new(big.Int).SetBytes(data)
	mod := new(big.Int)
	var digits []byte
	for n.Sign() > 0 {
		n.DivMod(n, big32, mod)
		digits = append(digits, c32Alphabet[mod.Int64()])
	}

	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}

	return strings.Repeat("0", zeros) + string(digits)
}

// C32Decode reverses C32Encode. Input is normalized first: lower case is
// accepted, O reads as 0 and I, L read as 1.
func C32Decode(s string) ([]byte, error) {
	s = normalizeC32(s)

	zeros := 0
	for zeros < len(s) && s[zeros] == '0' {
		zeros++
	}

	n := new(big.Int)
	for i := zeros; i < len(s); i++ {
		idx := strings.IndexByte(c32Alphabet, s[i])
		if idx < 0 {
			return nil, ErrInvalidAddress
		}
		n.Mul(n, big32)
		n.Add(n, big.NewInt(int64(idx)))
	}

	out := make([]byte, zeros, zeros+len(n.Bytes()))
	return append(out, n.Bytes()...), nil
}

func normalizeC32(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "O", "0")
	s = strings.ReplaceAll(s, "L", "1")
	return strings.ReplaceAll(s, "I", "1")
}

func c32Checksum(version byte, data []byte) []byte {
	first := sha256.Sum256(append([]byte{version}, data...))
	second := sha256.Sum256(first[:])
	return second[:4]
}

// EncodeAddress renders a Stacks address for a version and hash160
func EncodeAddress(version byte, hash160 []byte) (string, error) {
	if len(hash160) != 20 || int(version) >= len(c32Alphabet) {
		return "", ErrInvalidAddress
	}
	payload := append(append([]byte{}, hash160...), c32Checksum(version, hash160)...)
	return "S" + string(c32Alphabet[version]) + C32Encode(payload), nil
}

// DecodeAddress returns the version and hash160 of a Stacks address after
// checking its checksum.
func DecodeAddress(address string) (byte, []byte, error) {
	if len(address) < 3 || (address[0] != 'S' && address[0] != 's') {
		return 0, nil, ErrInvalidAddress
	}

	idx := strings.IndexByte(c32Alphabet, normalizeC32(address[1:2])[0])
	if idx < 0 {
		return 0, nil, ErrInvalidAddress
	}
	version := byte(idx)

	payload, err := C32Decode(address[2:])
	if err != nil {
		return 0, nil, err
	}
	if len(payload) != 24 {
		return 0, nil, ErrInvalidAddress
	}

	hash, checksum := payload[:20], payload[20:]
	if !bytes.Equal(checksum, c32Checksum(version, hash)) {
		return 0, nil, ErrInvalidAddress
	}

	return version, hash, nil
}

// ValidAddress reports whether the address decodes with a valid checksum
func ValidAddress(address string) bool {
	_, _, err := DecodeAddress(address)
	return err == nil
}
