package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sigle/sigle-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routerContext = router.Context

type fakeContext struct {
	routerContext
	method string
	path   string
}

var _ router.Context = (*fakeContext)(nil)

func (f *fakeContext) Method() string { return f.method }
func (f *fakeContext) Path() string   { return f.path }

type syncerFunc func(ctx context.Context, address string) (string, error)

func (f syncerFunc) SyncUser(ctx context.Context, address string) (string, error) {
	return f(ctx, address)
}

func TestMetrics_ReportCountsDenialsByReason(t *testing.T) {
	m := New()

	m.Report(context.Background(), auth.Diagnostic{Reason: auth.DenialVerificationFailed})
	m.Report(context.Background(), auth.Diagnostic{Reason: auth.DenialVerificationFailed})
	m.Report(context.Background(), auth.Diagnostic{Reason: auth.DenialSyncFailed})
	m.Report(context.Background(), auth.Diagnostic{})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.denials.WithLabelValues("verification_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.denials.WithLabelValues("sync_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.denials.WithLabelValues("unknown")))
}

func TestMetrics_RecordActivity(t *testing.T) {
	m := New()

	require.NoError(t, m.Record(context.Background(), auth.ActivityEvent{EventType: auth.ActivityEventSignInSuccess}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.signins.WithLabelValues(string(auth.ActivityEventSignInSuccess))))
}

func TestMetrics_Middleware(t *testing.T) {
	m := New()
	mw := m.Middleware()

	ok := mw(func(router.Context) error { return nil })
	fail := mw(func(router.Context) error { return errors.New("boom") })

	ctx := &fakeContext{method: "GET", path: "/api/auth/session"}
	require.NoError(t, ok(ctx))
	require.Error(t, fail(ctx))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/auth/session", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/auth/session", "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpInFlight))
}

func TestMetrics_ObserveSync(t *testing.T) {
	m := New()

	syncer := m.ObserveSync(syncerFunc(func(context.Context, string) (string, error) {
		return "user-1", nil
	}))

	id, err := syncer.SyncUser(context.Background(), "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7")
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)
	assert.Equal(t, 1, testutil.CollectAndCount(m.syncDuration))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Report(context.Background(), auth.Diagnostic{Reason: auth.DenialNonceReplayed})
	m.Report(context.Background(), auth.Diagnostic{Reason: auth.DenialNonceStoreFailed})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `sigle_auth_signin_denials_total{reason="nonce_replayed"} 1`)
	assert.Contains(t, string(body), `sigle_auth_signin_denials_total{reason="nonce_store_failed"} 1`)
}
