package siws

import (
	"bytes"
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigle/sigle-auth"
)

var fixedNow = time.Date(2024, 6, 1, 12, 1, 0, 0, time.UTC)

func testKey(t *testing.T) (*secp256k1.PrivateKey, string) {
	t.Helper()
	priv := secp256k1.PrivKeyFromBytes(bytes.Repeat([]byte{0x42}, 32))
	addr, err := PublicKeyAddress(VersionMainnetSingleSig, priv.PubKey())
	require.NoError(t, err)
	return priv, addr
}

func signRSV(priv *secp256k1.PrivateKey, text string) string {
	compact := ecdsa.SignCompact(priv, HashMessage(text), true)
	rsv := append(append([]byte{}, compact[1:]...), compact[0]-31)
	return hex.EncodeToString(rsv)
}

func signedMessage(t *testing.T, mutate ...func(m *Message)) (string, string, string) {
	t.Helper()
	priv, addr := testKey(t)
	m := sampleMessage()
	m.Address = addr
	for _, fn := range mutate {
		fn(m)
	}
	text := m.String()
	return text, signRSV(priv, text), addr
}

func newTestVerifier() *Verifier {
	return NewVerifier(10 * time.Minute).WithClock(func() time.Time { return fixedNow })
}

func TestHashMessagePrefix(t *testing.T) {
	assert.Len(t, HashMessage("hello"), 32)
	assert.NotEqual(t, HashMessage("hello"), HashMessage("hello "))
	assert.Equal(t, []byte{0xfd, 0x2c, 0x01}, encodeVarint(300))
	assert.Equal(t, []byte{5}, encodeVarint(5))
}

// RSV signatures made with private key 1 and RFC 6979 nonces, so any
// conforming Stacks signer produces the same bytes.
const (
	vectorAddress   = "SP1THWXQ8368SDN2MJGE4BMDKMCHZ2GSVTS1X0BPM"
	vectorHash160   = "751e76e8199196d454941c45d1b3a323f1433bd6"
	helloWorldHash  = "953a54a2525205a2272ec27770ede65f6687a1e20725203f3198674c10b28f73"
	helloWorldSig   = "c3fe3a5dbca4e69582ced5fe8b6d901dca43cfb291fa4115bcd3fcf81fd414427aae4eb44167f3215a3c4b97e1b62f29d266bdf6d3482b001057537e29d3275501"
	vectorSIWSHash  = "f2c8de3625b5330848a0c19ae1b2d734933ac646c6f2c9f24f0d6a4656cdce0c"
	vectorSIWSSig   = "78fdeaa323a2a9a6928264a99e638364c2c7d1a29a5f1758936760c2679668a72cf07521116143b446e30001cd76e5c672e15b46bec58622e5705e1da657279501"
	vectorSIWSNonce = "a1b2c3d4e5f6a7b8"
)

const vectorSIWSText = "app.sigle.io wants you to sign in with your Stacks account:\n" +
	vectorAddress + "\n\n" +
	"Sign in to Sigle\n\n" +
	"URI: https://app.sigle.io\n" +
	"Version: 1\n" +
	"Chain ID: 1\n" +
	"Nonce: " + vectorSIWSNonce + "\n" +
	"Issued At: 2024-06-01T12:00:00.000Z"

func TestHashMessageKnownVector(t *testing.T) {
	assert.Equal(t, helloWorldHash, hex.EncodeToString(HashMessage("Hello World")))
	assert.Equal(t, vectorSIWSHash, hex.EncodeToString(HashMessage(vectorSIWSText)))
}

func TestRecoverKnownSignature(t *testing.T) {
	pub, err := RecoverPublicKey(HashMessage("Hello World"), helloWorldSig)
	require.NoError(t, err)
	assert.Equal(t, vectorHash160, hex.EncodeToString(Hash160(pub.SerializeCompressed())))

	addr, err := PublicKeyAddress(VersionMainnetSingleSig, pub)
	require.NoError(t, err)
	assert.Equal(t, vectorAddress, addr)
}

func TestVerifyKnownSignature(t *testing.T) {
	m := sampleMessage()
	m.Address = vectorAddress
	require.Equal(t, vectorSIWSText, m.String())

	got, err := newTestVerifier().Verify(context.Background(), auth.VerifyParams{
		Message:   vectorSIWSText,
		Signature: vectorSIWSSig,
		Domain:    "https://app.sigle.io",
		Nonce:     vectorSIWSNonce,
	})
	require.NoError(t, err)
	assert.Equal(t, vectorAddress, got.Address)

	_, err = newTestVerifier().Verify(context.Background(), auth.VerifyParams{
		Message:   vectorSIWSText,
		Signature: helloWorldSig,
		Domain:    "https://app.sigle.io",
		Nonce:     vectorSIWSNonce,
	})
	assert.Error(t, err)
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	text, sig, addr := signedMessage(t)

	id, err := newTestVerifier().Verify(context.Background(), auth.VerifyParams{
		Message:   text,
		Signature: sig,
		Domain:    "app.sigle.io",
		Nonce:     "a1b2c3d4e5f6a7b8",
	})
	require.NoError(t, err)
	assert.Equal(t, addr, id.Address)
}

func TestVerifyAcceptsPrefixedSignatureAndURLDomain(t *testing.T) {
	text, sig, addr := signedMessage(t)

	raw, err := hex.DecodeString(sig)
	require.NoError(t, err)
	raw[64] += 27

	id, err := newTestVerifier().Verify(context.Background(), auth.VerifyParams{
		Message:   text,
		Signature: "0x" + hex.EncodeToString(raw),
		Domain:    "https://app.sigle.io",
		Nonce:     "a1b2c3d4e5f6a7b8",
	})
	require.NoError(t, err)
	assert.Equal(t, addr, id.Address)
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	text, sig, _ := signedMessage(t)

	m, err := ParseMessage(text)
	require.NoError(t, err)
	m.Statement = "Sign in to something else"

	_, err = newTestVerifier().Verify(context.Background(), auth.VerifyParams{
		Message:   m.String(),
		Signature: sig,
		Domain:    "app.sigle.io",
		Nonce:     "a1b2c3d4e5f6a7b8",
	})
	assert.True(t, errors.Is(err, ErrInvalidSignature), "got %v", err)
}

func TestVerifyRejectsOtherSigner(t *testing.T) {
	text, _, _ := signedMessage(t)
	other := secp256k1.PrivKeyFromBytes(bytes.Repeat([]byte{0x07}, 32))

	_, err := newTestVerifier().Verify(context.Background(), auth.VerifyParams{
		Message:   text,
		Signature: signRSV(other, text),
		Domain:    "app.sigle.io",
		Nonce:     "a1b2c3d4e5f6a7b8",
	})
	assert.True(t, errors.Is(err, ErrInvalidSignature), "got %v", err)
}

func TestVerifyRejectsMalformedSignature(t *testing.T) {
	text, _, _ := signedMessage(t)

	for _, sig := range []string{"", "zz", "00", hex.EncodeToString(make([]byte, 64)) + "09"} {
		_, err := newTestVerifier().Verify(context.Background(), auth.VerifyParams{
			Message:   text,
			Signature: sig,
			Domain:    "app.sigle.io",
			Nonce:     "a1b2c3d4e5f6a7b8",
		})
		assert.Error(t, err, sig)
	}
}

func TestVerifyRejectsNonceMismatch(t *testing.T) {
	text, sig, _ := signedMessage(t)

	_, err := newTestVerifier().Verify(context.Background(), auth.VerifyParams{
		Message:   text,
		Signature: sig,
		Domain:    "app.sigle.io",
		Nonce:     "ffffffffffffffff",
	})
	assert.True(t, errors.Is(err, ErrNonceMismatch), "got %v", err)
}

func TestVerifyRejectsDomainMismatch(t *testing.T) {
	text, sig, _ := signedMessage(t)

	_, err := newTestVerifier().Verify(context.Background(), auth.VerifyParams{
		Message:   text,
		Signature: sig,
		Domain:    "evil.example.com",
		Nonce:     "a1b2c3d4e5f6a7b8",
	})
	require.Error(t, err)

	var richErr *errors.Error
	require.True(t, errors.As(err, &richErr))
	assert.Equal(t, TextCodeDomainMismatch, richErr.TextCode)
}

func TestVerifyTimeBounds(t *testing.T) {
	params := func(text, sig string) auth.VerifyParams {
		return auth.VerifyParams{Message: text, Signature: sig, Domain: "app.sigle.io", Nonce: "a1b2c3d4e5f6a7b8"}
	}

	text, sig, _ := signedMessage(t, func(m *Message) {
		m.ExpirationTime = "2024-06-01T12:00:30Z"
	})
	_, err := newTestVerifier().Verify(context.Background(), params(text, sig))
	assert.True(t, errors.Is(err, ErrExpired), "expired: %v", err)

	text, sig, _ = signedMessage(t, func(m *Message) {
		m.NotBefore = "2024-06-01T13:00:00Z"
	})
	_, err = newTestVerifier().Verify(context.Background(), params(text, sig))
	assert.True(t, errors.Is(err, ErrNotYetValid), "not before: %v", err)

	text, sig, _ = signedMessage(t, func(m *Message) {
		m.IssuedAt = "2024-06-01T11:00:00Z"
	})
	_, err = newTestVerifier().Verify(context.Background(), params(text, sig))
	assert.True(t, errors.Is(err, ErrExpired), "max age: %v", err)

	noMaxAge := NewVerifier(0).WithClock(func() time.Time { return fixedNow })
	_, err = noMaxAge.Verify(context.Background(), params(text, sig))
	assert.NoError(t, err)
}

func TestVerifyRespectsContext(t *testing.T) {
	text, sig, _ := signedMessage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestVerifier().Verify(ctx, auth.VerifyParams{
		Message: text, Signature: sig, Domain: "app.sigle.io", Nonce: "a1b2c3d4e5f6a7b8",
	})
	assert.ErrorIs(t, err, context.Canceled)
}
