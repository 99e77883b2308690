package siws

import (
	"strconv"
	"strings"
	"time"
)

const (
	headerSuffix   = " wants you to sign in with your Stacks account:"
	uriTag         = "URI: "
	versionTag     = "Version: "
	chainIDTag     = "Chain ID: "
	nonceTag       = "Nonce: "
	issuedAtTag    = "Issued At: "
	expirationTag  = "Expiration Time: "
	notBeforeTag   = "Not Before: "
	requestIDTag   = "Request ID: "
	resourcesTag   = "Resources:"
	resourcePrefix = "- "

	// MessageVersion is the only supported message version
	MessageVersion = "1"
)

// Chain ids
const (
	ChainIDMainnet = 1
	ChainIDTestnet = 2147483648
)

// Message is a parsed sign-in message. Time fields keep the text the wallet
// signed; use the accessor methods for parsed values.
type Message struct {
	Domain         string
	Address        string
	Statement      string
	URI            string
	Version        string
	ChainID        int64
	Nonce          string
	IssuedAt       string
	ExpirationTime string
	NotBefore      string
	RequestID      string
	Resources      []string
}

// ParseMessage parses the text of a sign-in message
func ParseMessage(text string) (*Message, error) {
	lines := strings.Split(text, "\n")
	p := &lineParser{lines: lines}

	header, ok := p.next()
	if !ok || !strings.HasSuffix(header, headerSuffix) {
		return nil, invalidMessage("missing header")
	}

	m := &Message{Domain: strings.TrimSuffix(header, headerSuffix)}
	if m.Domain == "" || strings.ContainsAny(m.Domain, " /") {
		return nil, invalidMessage("invalid domain")
	}

	if m.Address, ok = p.next(); !ok || !ValidAddress(m.Address) {
		return nil, invalidMessage("invalid address")
	}

	if blank, ok := p.next(); !ok || blank != "" {
		return nil, invalidMessage("expected blank line after address")
	}

	// an optional statement line sits between two blank lines
	if line, ok := p.peek(); ok && !strings.HasPrefix(line, uriTag) {
		p.next()
		if line != "" {
			m.Statement = line
			if blank, ok := p.next(); !ok || blank != "" {
				return nil, invalidMessage("expected blank line after statement")
			}
		}
	}

	var err error
	if m.URI, err = p.field(uriTag, true); err != nil {
		return nil, err
	}
	if m.Version, err = p.field(versionTag, true); err != nil {
		return nil, err
	}
	if m.Version != MessageVersion {
		return nil, invalidMessage("unsupported version")
	}

	chainID, err := p.field(chainIDTag, true)
	if err != nil {
		return nil, err
	}
	if m.ChainID, err = strconv.ParseInt(chainID, 10, 64); err != nil {
		return nil, invalidMessage("invalid chain id")
	}

	if m.Nonce, err = p.field(nonceTag, true); err != nil {
		return nil, err
	}
	if !validNonce(m.Nonce) {
		return nil, invalidMessage("nonce must be at least 8 alphanumeric characters")
	}

	if m.IssuedAt, err = p.field(issuedAtTag, true); err != nil {
		return nil, err
	}
	if _, err := m.IssuedAtTime(); err != nil {
		return nil, invalidMessage("invalid issued at")
	}

	if m.ExpirationTime, err = p.field(expirationTag, false); err != nil {
		return nil, err
	}
	if _, ok, err := m.ExpirationTimeValue(); ok && err != nil {
		return nil, invalidMessage("invalid expiration time")
	}

	if m.NotBefore, err = p.field(notBeforeTag, false); err != nil {
		return nil, err
	}
	if _, ok, err := m.NotBeforeValue(); ok && err != nil {
		return nil, invalidMessage("invalid not before")
	}

	if m.RequestID, err = p.field(requestIDTag, false); err != nil {
		return nil, err
	}

	if line, ok := p.peek(); ok && line == resourcesTag {
		p.next()
		for {
			line, ok := p.peek()
			if !ok || !strings.HasPrefix(line, resourcePrefix) {
				break
			}
			p.next()
			m.Resources = append(m.Resources, strings.TrimPrefix(line, resourcePrefix))
		}
	}

	if line, ok := p.next(); ok && line != "" {
		return nil, invalidMessage("unexpected line " + strconv.Quote(line))
	}
	if _, ok := p.next(); ok {
		return nil, invalidMessage("trailing content")
	}

	return m, nil
}

// String renders the message text the wallet signs
func (m *Message) String() string {
	var b strings.Builder

	b.WriteString(m.Domain + headerSuffix + "\n")
	b.WriteString(m.Address + "\n\n")
	if m.Statement != "" {
		b.WriteString(m.Statement + "\n")
	}
	b.WriteString("\n")

	b.WriteString(uriTag + m.URI + "\n")
	b.WriteString(versionTag + m.Version + "\n")
	b.WriteString(chainIDTag + strconv.FormatInt(m.ChainID, 10) + "\n")
	b.WriteString(nonceTag + m.Nonce + "\n")
	b.WriteString(issuedAtTag + m.IssuedAt)

	if m.ExpirationTime != "" {
		b.WriteString("\n" + expirationTag + m.ExpirationTime)
	}
	if m.NotBefore != "" {
		b.WriteString("\n" + notBeforeTag + m.NotBefore)
	}
	if m.RequestID != "" {
		b.WriteString("\n" + requestIDTag + m.RequestID)
	}
	if len(m.Resources) > 0 {
		b.WriteString("\n" + resourcesTag)
		for _, r := range m.Resources {
			b.WriteString("\n" + resourcePrefix + r)
		}
	}

	return b.String()
}

// IssuedAtTime parses the Issued At field
func (m *Message) IssuedAtTime() (time.Time, error) {
	return parseTimestamp(m.IssuedAt)
}

// ExpirationTimeValue parses the optional Expiration Time field
func (m *Message) ExpirationTimeValue() (time.Time, bool, error) {
	if m.ExpirationTime == "" {
		return time.Time{}, false, nil
	}
	t, err := parseTimestamp(m.ExpirationTime)
	return t, true, err
}

// NotBeforeValue parses the optional Not Before field
func (m *Message) NotBeforeValue() (time.Time, bool, error) {
	if m.NotBefore == "" {
		return time.Time{}, false, nil
	}
	t, err := parseTimestamp(m.NotBefore)
	return t, true, err
}

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func validNonce(n string) bool {
	if len(n) < 8 {
		return false
	}
	for _, r := range n {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

type lineParser struct {
	lines []string
	pos   int
}

func (p *lineParser) peek() (string, bool) {
	if p.pos >= len(p.lines) {
		return "", false
	}
	return p.lines[p.pos], true
}

func (p *lineParser) next() (string, bool) {
	line, ok := p.peek()
	if ok {
		p.pos++
	}
	return line, ok
}

func (p *lineParser) field(tag string, required bool) (string, error) {
	line, ok := p.peek()
	if !ok || !strings.HasPrefix(line, tag) {
		if required {
			return "", invalidMessage("missing " + strings.TrimSuffix(tag, ": "))
		}
		return "", nil
	}
	p.next()
	value := strings.TrimPrefix(line, tag)
	if required && value == "" {
		return "", invalidMessage("empty " + strings.TrimSuffix(tag, ": "))
	}
	return value, nil
}
