package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"

	"github.com/goliatone/go-router"
	"github.com/tidwall/gjson"
)

var (
	ErrTokenMismatch    = errors.New("CSRF token mismatch")
	ErrTokenMissing     = errors.New("CSRF token missing")
	ErrSecureKeyMissing = errors.New("CSRF secure key required")
)

// DefaultTokenLength is the default length for CSRF tokens, in bytes
const DefaultTokenLength = 32

// DefaultContextKey is the default key for storing CSRF tokens in context
const DefaultContextKey = "csrf_token"

// DefaultFormFieldName is the form field the token is submitted in
const DefaultFormFieldName = "csrfToken"

// DefaultHeaderName is the default header name for CSRF tokens
const DefaultHeaderName = "X-CSRF-Token"

// DefaultCookieName is the cookie holding the double-submit value
const DefaultCookieName = "authjs.csrf-token"

// Config defines the configuration for CSRF middleware
type Config struct {
	// Skip defines a function to skip middleware
	Skip func(router.Context) bool

	// TokenLength defines the number of random bytes in a token
	TokenLength int

	// ContextKey defines the key for storing the token in context
	ContextKey string

	// FormFieldName defines the name of the form field containing the token
	FormFieldName string

	// HeaderName defines the header name for the token
	HeaderName string

	// TokenLookup defines where to look for the token
	// Format: "form:csrfToken,header:X-CSRF-Token"
	TokenLookup string

	// CookieName is the cookie holding "token|hmac"
	CookieName string

	// Cookie builds the cookie written for a value. Defaults to a host-only
	// HttpOnly Lax cookie on "/".
	Cookie func(value string) *router.Cookie

	// ErrorHandler defines the error handler
	ErrorHandler router.ErrorHandler

	// SuccessHandler defines the success handler
	SuccessHandler router.HandlerFunc

	// SafeMethods defines HTTP methods that don't require CSRF protection
	SafeMethods []string

	// SecureKey signs the cookie value. At least 32 bytes.
	SecureKey []byte
}

// TokenExtractor defines a function to extract token from request
type TokenExtractor func(router.Context) (string, error)

// Protector issues and checks double-submit tokens. The token travels in the
// request body or a header and must match the signed value in the cookie.
type Protector struct {
	cfg Config
}

// NewProtector returns a Protector for the given config
func NewProtector(config ...Config) *Protector {
	return &Protector{cfg: configDefault(config...)}
}

// New creates a new CSRF middleware
func New(config ...Config) router.MiddlewareFunc {
	return NewProtector(config...).Middleware()
}

// Config returns the effective configuration
func (p *Protector) Config() Config {
	return p.cfg
}

// Middleware makes sure every request has a token and rejects unsafe
// requests whose submitted token does not match the cookie.
func (p *Protector) Middleware() router.MiddlewareFunc {
	cfg := p.cfg
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return hf(ctx)
			}

			if _, err := p.Ensure(ctx); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			// safe methods don't require validation
			method := strings.ToUpper(ctx.Method())
			if !slices.Contains(cfg.SafeMethods, method) {
				submitted := extractToken(ctx, cfg)
				if err := p.Verify(ctx, submitted); err != nil {
					return cfg.ErrorHandler(ctx, err)
				}
			}

			if err := cfg.SuccessHandler(ctx); err != nil {
				return err
			}
			return hf(ctx)
		}
	}
}

// Ensure returns the token bound to the request cookie, issuing a new one
// when the cookie is missing or was not signed by us.
func (p *Protector) Ensure(ctx router.Context) (string, error) {
	if token, ok := VerifyCookieValue(p.cfg.SecureKey, ctx.Cookies(p.cfg.CookieName)); ok {
		ctx.Locals(p.cfg.ContextKey, token)
		return token, nil
	}
	return p.Rotate(ctx)
}

// Rotate replaces the token with a fresh one. Called after every sign-in
// attempt so a token never signs two messages.
func (p *Protector) Rotate(ctx router.Context) (string, error) {
	token, err := generateToken(p.cfg.TokenLength)
	if err != nil {
		return "", err
	}

	ctx.Cookie(p.cfg.Cookie(CookieValue(p.cfg.SecureKey, token)))
	ctx.Locals(p.cfg.ContextKey, token)
	return token, nil
}

// Verify checks a submitted token against the signed cookie
func (p *Protector) Verify(ctx router.Context, submitted string) error {
	if submitted == "" {
		return ErrTokenMissing
	}

	token, ok := VerifyCookieValue(p.cfg.SecureKey, ctx.Cookies(p.cfg.CookieName))
	if !ok {
		return ErrTokenMismatch
	}

	if subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) != 1 {
		return ErrTokenMismatch
	}
	return nil
}

// CookieValue renders the double-submit cookie value "token|hmac"
func CookieValue(key []byte, token string) string {
	return token + "|" + sign(key, token)
}

// VerifyCookieValue splits a cookie value and checks its signature
func VerifyCookieValue(key []byte, value string) (string, bool) {
	token, sig, ok := strings.Cut(value, "|")
	if !ok || token == "" || sig == "" {
		return "", false
	}

	got, err := hex.DecodeString(sig)
	if err != nil {
		return "", false
	}
	want, _ := hex.DecodeString(sign(key, token))
	if !hmac.Equal(got, want) {
		return "", false
	}
	return token, true
}

func sign(key []byte, token string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// generateToken generates a cryptographically secure random token
func generateToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func extractToken(ctx router.Context, cfg Config) string {
	for _, extractor := range getExtractors(cfg.TokenLookup, cfg.FormFieldName, cfg.HeaderName) {
		token, err := extractor(ctx)
		if token != "" && err == nil {
			return token
		}
	}
	return ""
}

// getExtractors returns token extractors based on configuration
func getExtractors(tokenLookup, formField, header string) []TokenExtractor {
	var extractors []TokenExtractor

	if tokenLookup == "" {
		return append(extractors,
			extractorFromForm(formField),
			extractorFromHeader(header),
		)
	}

	// Parse tokenLookup: "form:csrfToken,header:X-CSRF-Token"
	for _, part := range strings.Split(tokenLookup, ",") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "form:") {
			extractors = append(extractors, extractorFromForm(strings.TrimPrefix(part, "form:")))
		} else if strings.HasPrefix(part, "header:") {
			extractors = append(extractors, extractorFromHeader(strings.TrimPrefix(part, "header:")))
		}
	}

	return extractors
}

// extractorFromForm extracts token from the request body, either an
// urlencoded form or a JSON object
func extractorFromForm(fieldName string) TokenExtractor {
	return func(ctx router.Context) (string, error) {
		body := ctx.Body()
		if len(body) == 0 {
			return "", nil
		}

		if strings.Contains(strings.ToLower(ctx.Header("Content-Type")), "json") {
			return gjson.GetBytes(body, fieldName).String(), nil
		}

		values, err := url.ParseQuery(string(body))
		if err != nil {
			return "", err
		}
		return values.Get(fieldName), nil
	}
}

// extractorFromHeader extracts token from request header
func extractorFromHeader(headerName string) TokenExtractor {
	return func(ctx router.Context) (string, error) {
		return ctx.Header(headerName), nil
	}
}

// configDefault returns a default config
func configDefault(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenLength == 0 {
		cfg.TokenLength = DefaultTokenLength
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.FormFieldName == "" {
		cfg.FormFieldName = DefaultFormFieldName
	}

	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}

	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}

	if cfg.Cookie == nil {
		name := cfg.CookieName
		cfg.Cookie = func(value string) *router.Cookie {
			return &router.Cookie{
				Name:     name,
				Value:    value,
				Path:     "/",
				HTTPOnly: true,
				SameSite: "Lax",
			}
		}
	}

	if cfg.SafeMethods == nil {
		cfg.SafeMethods = []string{"GET", "HEAD", "OPTIONS", "TRACE"}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return nil
		}
	}

	cfg.SecureKey = initializeSecureKey(cfg.SecureKey)

	return cfg
}

func defaultErrorHandler(ctx router.Context, err error) error {
	switch err {
	case ErrTokenMissing:
		return ctx.Status(router.StatusBadRequest).SendString("CSRF token missing")
	case ErrTokenMismatch:
		return ctx.Status(router.StatusForbidden).SendString("CSRF token mismatch")
	case ErrSecureKeyMissing:
		return ctx.Status(router.StatusInternalServerError).SendString("CSRF configuration error")
	default:
		return ctx.Status(router.StatusInternalServerError).SendString("CSRF validation error")
	}
}

func initializeSecureKey(current []byte) []byte {
	if len(current) > 0 {
		if len(current) < 32 {
			panic(fmt.Errorf("csrf: secure key must be at least 32 bytes, got %d", len(current)))
		}
		return current
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		panic(fmt.Errorf("csrf: unable to initialize secure key: %w", err))
	}
	return key
}
