package auth_test

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/goliatone/go-router"
	"github.com/sigle/sigle-auth"
	"github.com/stretchr/testify/mock"
)

const (
	testAddress   = "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7"
	testSecret    = "test-signing-key-0123456789abcdef"
	testCSRFToken = "a1b2c3d4e5f6a7b8"
)

// MockVerifier implements auth.SignatureVerifier
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, params auth.VerifyParams) (auth.VerifiedIdentity, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(auth.VerifiedIdentity), args.Error(1)
}

// MockSyncer implements auth.IdentitySyncer
type MockSyncer struct {
	mock.Mock
}

func (m *MockSyncer) SyncUser(ctx context.Context, address string) (string, error) {
	args := m.Called(ctx, address)
	return args.String(0), args.Error(1)
}

// MockNonceStore implements auth.NonceStore
type MockNonceStore struct {
	mock.Mock
}

func (m *MockNonceStore) Consume(ctx context.Context, nonce string) error {
	return m.Called(ctx, nonce).Error(0)
}

// MockLogger implements auth.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

func quietLogger() *MockLogger {
	l := &MockLogger{}
	l.On("Debug", mock.Anything, mock.Anything).Maybe()
	l.On("Info", mock.Anything, mock.Anything).Maybe()
	l.On("Warn", mock.Anything, mock.Anything).Maybe()
	l.On("Error", mock.Anything, mock.Anything).Maybe()
	return l
}

type captureReporter struct {
	mu    sync.Mutex
	items []auth.Diagnostic
}

func (r *captureReporter) Report(_ context.Context, d auth.Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, d)
}

func (r *captureReporter) All() []auth.Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]auth.Diagnostic(nil), r.items...)
}

type captureSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *captureSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) All() []auth.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]auth.ActivityEvent(nil), s.events...)
}

type testConfig struct {
	appURL     string
	preview    bool
	maxAge     time.Duration
	issuer     string
	audience   []string
	contextKey string
}

func newTestConfig() *testConfig {
	return &testConfig{
		appURL: "https://app.sigle.io",
		maxAge: time.Hour,
		issuer: "sigle",
	}
}

func (c *testConfig) GetSigningKey() string           { return testSecret }
func (c *testConfig) GetIssuer() string               { return c.issuer }
func (c *testConfig) GetAudience() []string           { return c.audience }
func (c *testConfig) GetSessionMaxAge() time.Duration { return c.maxAge }
func (c *testConfig) GetAppURL() string               { return c.appURL }
func (c *testConfig) GetIsPreview() bool              { return c.preview }
func (c *testConfig) GetContextKey() string           { return c.contextKey }

type routerContext = router.Context

// fakeContext is a minimal router.Context backed by maps. Methods not
// overridden panic through the nil embedded interface.
type fakeContext struct {
	routerContext
	ctx        context.Context
	method     string
	body       []byte
	headers    map[string]string
	reqCookies map[string]string
	setCookies []*router.Cookie
	locals     map[any]any
	resHeaders map[string]string
	status     int
	payload    any
	nextCalled bool
}

var _ router.Context = (*fakeContext)(nil)

func newFakeContext() *fakeContext {
	return &fakeContext{
		ctx:        context.Background(),
		method:     "GET",
		headers:    map[string]string{},
		reqCookies: map[string]string{},
		locals:     map[any]any{},
		resHeaders: map[string]string{},
	}
}

func (f *fakeContext) Context() context.Context       { return f.ctx }
func (f *fakeContext) SetContext(ctx context.Context) { f.ctx = ctx }
func (f *fakeContext) Method() string                 { return f.method }
func (f *fakeContext) Path() string                   { return "/" }
func (f *fakeContext) Header(key string) string       { return f.headers[key] }

func (f *fakeContext) Body() []byte                   { return f.body }

func (f *fakeContext) SetHeader(key, val string) router.Context {
	f.resHeaders[key] = val
	return f
}

func (f *fakeContext) Cookies(key string, defaultValue ...string) string {
	if v, ok := f.reqCookies[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (f *fakeContext) Cookie(cookie *router.Cookie) {
	f.setCookies = append(f.setCookies, cookie)
	f.reqCookies[cookie.Name] = cookie.Value
}

func (f *fakeContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		f.locals[key] = value[0]
		return value[0]
	}
	return f.locals[key]
}

func (f *fakeContext) Bind(v any) error {
	return json.Unmarshal(f.body, v)
}

func (f *fakeContext) JSON(code int, v any) error {
	f.status = code
	f.payload = v
	return nil
}

func (f *fakeContext) Status(code int) router.Context {
	f.status = code
	return f
}

func (f *fakeContext) SendString(s string) error {
	f.payload = s
	return nil
}

func (f *fakeContext) Next() error {
	f.nextCalled = true
	return nil
}

func (f *fakeContext) lastCookie(name string) *router.Cookie {
	for i := len(f.setCookies) - 1; i >= 0; i-- {
		if f.setCookies[i].Name == name {
			return f.setCookies[i]
		}
	}
	return nil
}
