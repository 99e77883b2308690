package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-errors"
)

// DenialReason tells backend diagnostics why a sign-in was refused. Clients
// never see it.
type DenialReason string

const (
	DenialMalformedCredential DenialReason = "malformed_credential"
	DenialVerificationFailed  DenialReason = "verification_failed"
	DenialNonceReplayed       DenialReason = "nonce_replayed"
	DenialNonceStoreFailed    DenialReason = "nonce_store_failed"
	DenialSyncFailed          DenialReason = "sync_failed"
)

// AuthorizationResult is either an authorized User or a denial reason with
// the underlying cause.
type AuthorizationResult struct {
	User   *User
	Reason DenialReason
	Err    error
}

// Authorized reports whether the attempt produced an identity
func (r AuthorizationResult) Authorized() bool {
	return r.User != nil && r.Reason == ""
}

func denied(reason DenialReason, err error) AuthorizationResult {
	return AuthorizationResult{Reason: reason, Err: err}
}

// CredentialAuthorizer turns a submitted wallet credential into an
// application identity: shape check, signature verification, nonce
// consumption and identity sync, in that order. Every failure is reported
// and returned as a denial; nothing is retried.
type CredentialAuthorizer struct {
	domain   string
	verifier SignatureVerifier
	syncer   IdentitySyncer
	nonces   NonceStore
	reporter DiagnosticsReporter
	logger   Logger
}

// NewCredentialAuthorizer returns an authorizer expecting messages for domain
func NewCredentialAuthorizer(domain string, verifier SignatureVerifier, syncer IdentitySyncer) *CredentialAuthorizer {
	logger := defLogger{}
	return &CredentialAuthorizer{
		domain:   domain,
		verifier: verifier,
		syncer:   syncer,
		nonces:   NewMemoryNonceStore(DefaultNonceTTL),
		reporter: LoggerReporter{Logger: logger},
		logger:   logger,
	}
}

// WithLogger sets the logger. The default reporter follows it.
func (a *CredentialAuthorizer) WithLogger(logger Logger) *CredentialAuthorizer {
	a.logger = normalizeLogger(logger)
	if _, ok := a.reporter.(LoggerReporter); ok {
		a.reporter = LoggerReporter{Logger: a.logger}
	}
	return a
}

// WithNonceStore replaces the in-memory nonce store
func (a *CredentialAuthorizer) WithNonceStore(store NonceStore) *CredentialAuthorizer {
	if store != nil {
		a.nonces = store
	}
	return a
}

// WithDiagnosticsReporter replaces the default logging reporter
func (a *CredentialAuthorizer) WithDiagnosticsReporter(reporter DiagnosticsReporter) *CredentialAuthorizer {
	if reporter != nil {
		a.reporter = reporter
	}
	return a
}

// Domain returns the domain signed messages must be issued for
func (a *CredentialAuthorizer) Domain() string {
	return a.domain
}

// Authorize runs the sign-in checks for a credential
func (a *CredentialAuthorizer) Authorize(ctx context.Context, cred Credential) (result AuthorizationResult) {
	reason := DenialMalformedCredential
	address := ""

	defer func() {
		if r := recover(); r != nil {
			result = denied(reason, errors.New(fmt.Sprintf("panic during authorization: %v", r), errors.CategoryInternal))
		}
		if !result.Authorized() {
			a.reporter.Report(ctx, Diagnostic{
				Reason:    result.Reason,
				Message:   cred.Message,
				Signature: cred.Signature,
				Address:   address,
				Err:       result.Err,
			})
		}
	}()

	if err := cred.Validate(); err != nil {
		return denied(DenialMalformedCredential, errors.Wrap(err, errors.CategoryBadInput, "invalid credential"))
	}

	reason = DenialVerificationFailed
	if a.verifier == nil {
		return denied(reason, errors.New("signature verifier not configured", errors.CategoryInternal))
	}

	identity, err := a.verifier.Verify(ctx, VerifyParams{
		Message:   cred.Message,
		Signature: cred.Signature,
		Domain:    a.domain,
		Nonce:     cred.CSRFToken,
	})
	if err != nil {
		return denied(reason, err)
	}
	if identity.Address == "" {
		return denied(reason, errors.New("verifier returned no address", errors.CategoryAuth))
	}
	address = identity.Address

	reason = DenialNonceReplayed
	if err := a.nonces.Consume(ctx, cred.CSRFToken); err != nil {
		if !errors.Is(err, ErrNonceReplayed) {
			reason = DenialNonceStoreFailed
		}
		return denied(reason, err)
	}

	reason = DenialSyncFailed
	if a.syncer == nil {
		return denied(reason, errors.New("identity syncer not configured", errors.CategoryInternal))
	}

	id, err := a.syncer.SyncUser(ctx, identity.Address)
	if err != nil {
		return denied(reason, err)
	}
	if strings.TrimSpace(id) == "" {
		return denied(reason, errors.New("identity sync returned an empty id", errors.CategoryInternal))
	}

	return AuthorizationResult{
		User: &User{ID: id, Address: identity.Address},
	}
}

// AppDomain returns the host, with port when present, of the application
// URL. Signed messages must name this domain.
func AppDomain(appURL string) (string, error) {
	u, err := url.Parse(appURL)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryValidation, "invalid application url")
	}
	if u.Host == "" {
		return "", errors.New("application url has no host", errors.CategoryValidation)
	}
	return strings.ToLower(u.Host), nil
}
