package siws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7"

func sampleMessage() *Message {
	return &Message{
		Domain:    "app.sigle.io",
		Address:   testAddress,
		Statement: "Sign in to Sigle",
		URI:       "https://app.sigle.io",
		Version:   "1",
		ChainID:   ChainIDMainnet,
		Nonce:     "a1b2c3d4e5f6a7b8",
		IssuedAt:  "2024-06-01T12:00:00.000Z",
	}
}

func TestParseMessageRoundTrip(t *testing.T) {
	m := sampleMessage()
	m.ExpirationTime = "2024-06-01T12:10:00.000Z"
	m.NotBefore = "2024-06-01T11:59:00Z"
	m.RequestID = "req-1"
	m.Resources = []string{"https://app.sigle.io/terms", "ipfs://bafy"}

	text := m.String()
	parsed, err := ParseMessage(text)
	require.NoError(t, err)

	assert.Equal(t, m, parsed)
	assert.Equal(t, text, parsed.String())
}

func TestParseMessageLayout(t *testing.T) {
	text := "app.sigle.io wants you to sign in with your Stacks account:\n" +
		testAddress + "\n" +
		"\n" +
		"Sign in to Sigle\n" +
		"\n" +
		"URI: https://app.sigle.io\n" +
		"Version: 1\n" +
		"Chain ID: 1\n" +
		"Nonce: a1b2c3d4e5f6a7b8\n" +
		"Issued At: 2024-06-01T12:00:00.000Z"

	m, err := ParseMessage(text)
	require.NoError(t, err)
	assert.Equal(t, "app.sigle.io", m.Domain)
	assert.Equal(t, testAddress, m.Address)
	assert.Equal(t, "Sign in to Sigle", m.Statement)
	assert.Equal(t, int64(1), m.ChainID)
	assert.Equal(t, text, m.String())
}

func TestParseMessageWithoutStatement(t *testing.T) {
	m := sampleMessage()
	m.Statement = ""

	parsed, err := ParseMessage(m.String())
	require.NoError(t, err)
	assert.Empty(t, parsed.Statement)

	compact := "localhost:3000 wants you to sign in with your Stacks account:\n" +
		testAddress + "\n\n" +
		"URI: http://localhost:3000\n" +
		"Version: 1\n" +
		"Chain ID: 2147483648\n" +
		"Nonce: 12345678\n" +
		"Issued At: 2024-06-01T12:00:00Z\n"

	parsed, err = ParseMessage(compact)
	require.NoError(t, err)
	assert.Equal(t, "localhost:3000", parsed.Domain)
	assert.Equal(t, int64(ChainIDTestnet), parsed.ChainID)
}

func TestParseMessageRejects(t *testing.T) {
	valid := sampleMessage()

	cases := map[string]func(m *Message) string{
		"bad address": func(m *Message) string {
			m.Address = "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ8"
			return m.String()
		},
		"bad version": func(m *Message) string {
			m.Version = "2"
			return m.String()
		},
		"short nonce": func(m *Message) string {
			m.Nonce = "abc"
			return m.String()
		},
		"bad issued at": func(m *Message) string {
			m.IssuedAt = "yesterday"
			return m.String()
		},
		"bad expiration": func(m *Message) string {
			m.ExpirationTime = "soon"
			return m.String()
		},
		"trailing garbage": func(m *Message) string {
			return m.String() + "\nExtra: field"
		},
		"wrong header": func(m *Message) string {
			return "app.sigle.io wants you to sign in with your Ethereum account:\n" + testAddress
		},
		"empty": func(m *Message) string {
			return ""
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			m := *valid
			_, err := ParseMessage(mutate(&m))
			assert.Error(t, err)
		})
	}
}
