package siws

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/goliatone/go-errors"
	"golang.org/x/crypto/ripemd160"

	"github.com/sigle/sigle-auth"
)

const messagePrefix = "\x17Stacks Signed Message:\n"

// DefaultClockSkew tolerates wallets whose clock runs ahead of ours
const DefaultClockSkew = time.Minute

// HashMessage returns the Stacks signed-message hash of text
func HashMessage(text string) []byte {
	var buf bytes.Buffer
	buf.WriteString(messagePrefix)
	buf.Write(encodeVarint(uint64(len(text))))
	buf.WriteString(text)
	sum := sha256.Sum256(buf.Bytes())
	return sum[:]
}

// encodeVarint writes a bitcoin style variable length integer
func encodeVarint(n uint64) []byte {
	switch {
	case n < 0xfd:
		return []byte{byte(n)}
	case n <= 0xffff:
		b := make([]byte, 3)
		b[0] = 0xfd
		binary.LittleEndian.PutUint16(b[1:], uint16(n))
		return b
	case n <= 0xffffffff:
		b := make([]byte, 5)
		b[0] = 0xfe
		binary.LittleEndian.PutUint32(b[1:], uint32(n))
		return b
	default:
		b := make([]byte, 9)
		b[0] = 0xff
		binary.LittleEndian.PutUint64(b[1:], n)
		return b
	}
}

// Hash160 is ripemd160(sha256(data))
func Hash160(data []byte) []byte {
	sha := sha256.Sum256(data)
	h := ripemd160.New()
	h.Write(sha[:])
	return h.Sum(nil)
}

// RecoverPublicKey recovers the signing key from a hex RSV signature. The
// recovery byte may be 0-3 or 27-30 and a 0x prefix is accepted.
func RecoverPublicKey(hash []byte, signature string) (*secp256k1.PublicKey, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), "0x"))
	if err != nil || len(sig) != 65 {
		return nil, ErrInvalidSignature
	}

	recID := sig[64]
	if recID >= 27 {
		recID -= 27
	}
	if recID > 3 {
		return nil, ErrInvalidSignature
	}

	compact := make([]byte, 65)
	compact[0] = 27 + 4 + recID
	copy(compact[1:], sig[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, hash)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryAuth, "signature recovery failed").
			WithTextCode(TextCodeInvalidSignature).
			WithCode(errors.CodeUnauthorized)
	}
	return pub, nil
}

// PublicKeyAddress derives the single-sig address of a public key
func PublicKeyAddress(version byte, pub *secp256k1.PublicKey) (string, error) {
	return EncodeAddress(version, Hash160(pub.SerializeCompressed()))
}

// Verifier checks sign-in messages and their signatures
type Verifier struct {
	// MaxAge rejects messages issued longer ago. Zero disables the check.
	MaxAge time.Duration
	// ClockSkew is the tolerance for Issued At and Not Before
	ClockSkew time.Duration

	now func() time.Time
}

// NewVerifier returns a Verifier with the given message max age
func NewVerifier(maxAge time.Duration) *Verifier {
	return &Verifier{
		MaxAge:    maxAge,
		ClockSkew: DefaultClockSkew,
		now:       time.Now,
	}
}

// WithClock sets the time source
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	if now != nil {
		v.now = now
	}
	return v
}

// Verify implements auth.SignatureVerifier
func (v *Verifier) Verify(ctx context.Context, params auth.VerifyParams) (auth.VerifiedIdentity, error) {
	if err := ctx.Err(); err != nil {
		return auth.VerifiedIdentity{}, err
	}

	msg, err := ParseMessage(params.Message)
	if err != nil {
		return auth.VerifiedIdentity{}, err
	}

	if !domainMatches(msg.Domain, params.Domain) {
		return auth.VerifiedIdentity{}, ErrDomainMismatch.Clone().WithMetadata(map[string]any{
			"expected": params.Domain,
			"got":      msg.Domain,
		})
	}

	if params.Nonce == "" || subtle.ConstantTimeCompare([]byte(msg.Nonce), []byte(params.Nonce)) != 1 {
		return auth.VerifiedIdentity{}, ErrNonceMismatch
	}

	if err := v.checkTimes(msg); err != nil {
		return auth.VerifiedIdentity{}, err
	}

	version, hash, err := DecodeAddress(msg.Address)
	if err != nil {
		return auth.VerifiedIdentity{}, err
	}
	if version != VersionMainnetSingleSig && version != VersionTestnetSingleSig {
		return auth.VerifiedIdentity{}, ErrInvalidAddress
	}

	pub, err := RecoverPublicKey(HashMessage(params.Message), params.Signature)
	if err != nil {
		return auth.VerifiedIdentity{}, err
	}

	if !bytes.Equal(Hash160(pub.SerializeCompressed()), hash) &&
		!bytes.Equal(Hash160(pub.SerializeUncompressed()), hash) {
		return auth.VerifiedIdentity{}, ErrInvalidSignature
	}

	return auth.VerifiedIdentity{Address: msg.Address}, nil
}

func (v *Verifier) checkTimes(msg *Message) error {
	now := v.now()

	issuedAt, err := msg.IssuedAtTime()
	if err != nil {
		return ErrInvalidMessage
	}
	if issuedAt.After(now.Add(v.ClockSkew)) {
		return ErrNotYetValid
	}
	if v.MaxAge > 0 && now.Sub(issuedAt) > v.MaxAge {
		return ErrExpired
	}

	if exp, ok, err := msg.ExpirationTimeValue(); ok {
		if err != nil {
			return ErrInvalidMessage
		}
		if !now.Before(exp) {
			return ErrExpired
		}
	}

	if nbf, ok, err := msg.NotBeforeValue(); ok {
		if err != nil {
			return ErrInvalidMessage
		}
		if now.Add(v.ClockSkew).Before(nbf) {
			return ErrNotYetValid
		}
	}

	return nil
}

// domainMatches compares the message domain with the expected one, which
// may be given as a bare host or as the application URL.
func domainMatches(got, expected string) bool {
	if strings.Contains(expected, "://") {
		u, err := url.Parse(expected)
		if err != nil {
			return false
		}
		expected = u.Host
	}
	return expected != "" && strings.EqualFold(got, expected)
}
