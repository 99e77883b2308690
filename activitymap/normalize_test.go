package activitymap_test

import (
	"context"
	"testing"
	"time"

	"github.com/sigle/sigle-auth"
	"github.com/sigle/sigle-auth/activitymap"
)

const address = "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7"

func TestNormalizeSuccess(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	event := auth.ActivityEvent{
		EventType:  auth.ActivityEventSignInSuccess,
		UserID:     "user-100",
		Address:    address,
		Metadata:   map[string]any{"ip": "127.0.0.1"},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	if out.ActorID != "user-100" {
		t.Fatalf("expected actor_id user-100, got %q", out.ActorID)
	}
	if out.Verb != string(auth.ActivityEventSignInSuccess) {
		t.Fatalf("expected verb %q, got %q", auth.ActivityEventSignInSuccess, out.Verb)
	}
	if out.ObjectType != "wallet" {
		t.Fatalf("expected object_type wallet, got %q", out.ObjectType)
	}
	if out.ObjectID != address {
		t.Fatalf("expected object_id %s, got %q", address, out.ObjectID)
	}
	if out.Channel != "auth" {
		t.Fatalf("expected channel auth, got %q", out.Channel)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}
	if out.Metadata["ip"] != "127.0.0.1" {
		t.Fatalf("expected metadata ip, got %#v", out.Metadata["ip"])
	}
	if out.Metadata[activitymap.MetadataKeyAddress] != address {
		t.Fatalf("expected metadata address, got %#v", out.Metadata[activitymap.MetadataKeyAddress])
	}
	if _, ok := out.Metadata[activitymap.MetadataKeyReason]; ok {
		t.Fatalf("expected no reason on success, got %+v", out.Metadata)
	}
	if len(event.Metadata) != 1 {
		t.Fatalf("expected source metadata to remain unchanged, got %+v", event.Metadata)
	}
}

func TestNormalizeFailureWithoutUser(t *testing.T) {
	t.Parallel()

	out := activitymap.Normalize(auth.ActivityEvent{
		EventType: auth.ActivityEventSignInFailure,
		Reason:    auth.DenialVerificationFailed,
	})

	if out.ActorID != "anonymous" {
		t.Fatalf("expected anonymous actor, got %q", out.ActorID)
	}
	if out.ObjectID != "" {
		t.Fatalf("expected empty object id, got %q", out.ObjectID)
	}
	if out.Metadata[activitymap.MetadataKeyReason] != string(auth.DenialVerificationFailed) {
		t.Fatalf("expected reason metadata, got %+v", out.Metadata)
	}
	if out.OccurredAt.IsZero() {
		t.Fatal("expected occurred_at to default to now")
	}
}

func TestNormalizeOptionOverrides(t *testing.T) {
	t.Parallel()

	out := activitymap.Normalize(
		auth.ActivityEvent{EventType: auth.ActivityEventSignInFailure, Address: address},
		activitymap.WithDefaultChannel(" wallet-auth "),
		activitymap.WithDefaultObjectType("account"),
		activitymap.WithActorFallback("system"),
		activitymap.WithObjectIDResolver(func(e auth.ActivityEvent) string { return "acct:" + e.Address }),
		nil,
	)

	if out.Channel != "wallet-auth" {
		t.Fatalf("expected channel wallet-auth, got %q", out.Channel)
	}
	if out.ObjectType != "account" {
		t.Fatalf("expected object_type account, got %q", out.ObjectType)
	}
	if out.ActorID != "system" {
		t.Fatalf("expected actor system, got %q", out.ActorID)
	}
	if out.ObjectID != "acct:"+address {
		t.Fatalf("unexpected object id %q", out.ObjectID)
	}
}

type lineLogger struct {
	lines []string
	args  [][]any
}

func (l *lineLogger) Debug(string, ...any) {}
func (l *lineLogger) Warn(string, ...any)  {}
func (l *lineLogger) Error(string, ...any) {}
func (l *lineLogger) Info(msg string, args ...any) {
	l.lines = append(l.lines, msg)
	l.args = append(l.args, args)
}

func TestAuditSink(t *testing.T) {
	t.Parallel()

	logger := &lineLogger{}
	sink := activitymap.NewAuditSink(logger)

	err := sink.Record(context.Background(), auth.ActivityEvent{
		EventType: auth.ActivityEventSignInSuccess,
		UserID:    "user-1",
		Address:   address,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logger.lines) != 1 || logger.lines[0] != "audit" {
		t.Fatalf("expected one audit line, got %v", logger.lines)
	}
	if logger.args[0][1] != "user-1" {
		t.Fatalf("expected actor user-1, got %#v", logger.args[0][1])
	}

	if err := activitymap.NewAuditSink(nil).Record(context.Background(), auth.ActivityEvent{}); err != nil {
		t.Fatalf("nil logger sink should be a no-op, got %v", err)
	}
}
