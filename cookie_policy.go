package auth

import (
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

const (
	// DefaultContextKey is where the session middleware stores validated claims
	DefaultContextKey = "session"

	sessionCookieBase = "authjs.session-token"
	csrfCookieBase    = "authjs.csrf-token"
	securePrefix      = "__Secure-"
	hostPrefix        = "__Host-"
	cookieSameSite    = "Lax"
	cookiePath        = "/"
)

// CookieContext is the deployment context cookie attributes are derived from
type CookieContext struct {
	Hostname string
	Preview  bool
	Secure   bool
}

// CookieContextFromURL builds a CookieContext from the public application
// URL. Secure mirrors the https scheme.
func CookieContextFromURL(appURL string, preview bool) (CookieContext, error) {
	u, err := url.Parse(appURL)
	if err != nil {
		return CookieContext{}, errors.Wrap(err, errors.CategoryValidation, "invalid application url")
	}
	if u.Hostname() == "" {
		return CookieContext{}, errors.New("application url has no hostname", errors.CategoryValidation).
			WithMetadata(map[string]any{"url": appURL})
	}
	return CookieContext{
		Hostname: strings.ToLower(u.Hostname()),
		Preview:  preview,
		Secure:   strings.EqualFold(u.Scheme, "https"),
	}, nil
}

// CookiePolicy decides names and attributes of the auth cookies. It is a
// value computed once and shared by every cookie writer.
type CookiePolicy struct {
	ctx    CookieContext
	domain string
}

// NewCookiePolicy returns the policy for the given deployment context
func NewCookiePolicy(ctx CookieContext) CookiePolicy {
	return CookiePolicy{
		ctx:    ctx,
		domain: CookieDomain(ctx),
	}
}

// CookieDomain scopes cookies to the literal hostname on localhost and
// preview deployments, and to the top two labels everywhere else so
// subdomains share the session.
func CookieDomain(ctx CookieContext) string {
	if ctx.Hostname == "localhost" || ctx.Preview {
		return ctx.Hostname
	}
	labels := strings.Split(ctx.Hostname, ".")
	if len(labels) > 2 {
		labels = labels[len(labels)-2:]
	}
	return "." + strings.Join(labels, ".")
}

// Context returns the deployment context the policy was built from
func (p CookiePolicy) Context() CookieContext {
	return p.ctx
}

// Secure reports whether cookies carry the Secure flag
func (p CookiePolicy) Secure() bool {
	return p.ctx.Secure
}

// Domain returns the session cookie domain
func (p CookiePolicy) Domain() string {
	return p.domain
}

// SessionCookieName returns the session cookie name
func (p CookiePolicy) SessionCookieName() string {
	if p.ctx.Secure {
		return securePrefix + sessionCookieBase
	}
	return sessionCookieBase
}

// CSRFCookieName returns the csrf cookie name. The secure variant uses the
// host prefix, so the cookie never carries a domain.
func (p CookiePolicy) CSRFCookieName() string {
	if p.ctx.Secure {
		return hostPrefix + csrfCookieBase
	}
	return csrfCookieBase
}

// SessionCookie returns the cookie that stores a session token
func (p CookiePolicy) SessionCookie(token string, expires time.Time) *router.Cookie {
	return &router.Cookie{
		Name:     p.SessionCookieName(),
		Value:    token,
		Path:     cookiePath,
		Domain:   p.domain,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   p.ctx.Secure,
		SameSite: cookieSameSite,
	}
}

// ClearSessionCookie returns an expired session cookie
func (p CookiePolicy) ClearSessionCookie() *router.Cookie {
	c := p.SessionCookie("", time.Now().Add(-time.Hour*(24*365)))
	return c
}

// CSRFCookie returns the host-only cookie holding the csrf double-submit value
func (p CookiePolicy) CSRFCookie(value string) *router.Cookie {
	return &router.Cookie{
		Name:     p.CSRFCookieName(),
		Value:    value,
		Path:     cookiePath,
		HTTPOnly: true,
		Secure:   p.ctx.Secure,
		SameSite: cookieSameSite,
	}
}
