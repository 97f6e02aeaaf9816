package tracing

import (
	"context"
	"testing"
)

func TestNewTraceID(t *testing.T) {
	id1 := NewTraceID()
	id2 := NewTraceID()

	if id1 == "" {
		t.Error("NewTraceID returned empty string")
	}

	if id1 == id2 {
		t.Error("NewTraceID returned duplicate IDs")
	}
}

func TestNewRequestID(t *testing.T) {
	id1 := NewRequestID()
	id2 := NewRequestID()

	if id1 == "" {
		t.Error("NewRequestID returned empty string")
	}

	if id1 == id2 {
		t.Error("NewRequestID returned duplicate IDs")
	}
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	ctx = WithTraceID(ctx, "trace-123")
	ctx = WithRequestID(ctx, "request-456")
	ctx = WithSessionKey(ctx, "session:telegram:1:2")
	ctx = WithPlatform(ctx, "telegram")
	ctx = WithUserID(ctx, "42")

	if got := GetTraceID(ctx); got != "trace-123" {
		t.Errorf("Expected trace ID trace-123, got %s", got)
	}
	if got := GetRequestID(ctx); got != "request-456" {
		t.Errorf("Expected request ID request-456, got %s", got)
	}
	if got := GetSessionKey(ctx); got != "session:telegram:1:2" {
		t.Errorf("Expected session key session:telegram:1:2, got %s", got)
	}
	if got := GetPlatform(ctx); got != "telegram" {
		t.Errorf("Expected platform telegram, got %s", got)
	}
	if got := GetUserID(ctx); got != "42" {
		t.Errorf("Expected user ID 42, got %s", got)
	}
}

func TestEmptyContext(t *testing.T) {
	tc := FromContext(context.Background())

	if tc.TraceID != "" || tc.RequestID != "" || tc.SessionKey != "" || tc.Platform != "" || tc.UserID != "" {
		t.Errorf("Expected empty trace context, got %+v", tc)
	}
}

func TestNewContext(t *testing.T) {
	tc := &TraceContext{
		TraceID:   "trace-1",
		RequestID: "request-1",
		Platform:  "discord",
	}

	ctx := NewContext(context.Background(), tc)
	got := FromContext(ctx)

	if got.TraceID != "trace-1" || got.RequestID != "request-1" || got.Platform != "discord" {
		t.Errorf("Unexpected trace context %+v", got)
	}
	if got.SessionKey != "" {
		t.Errorf("Expected empty session key, got %s", got.SessionKey)
	}
}

func TestNewCommandContext(t *testing.T) {
	ctx := NewCommandContext(context.Background(), "telegram", "1001")

	if GetTraceID(ctx) == "" {
		t.Error("Expected trace ID to be set")
	}
	if GetRequestID(ctx) == "" {
		t.Error("Expected request ID to be set")
	}
	if GetPlatform(ctx) != "telegram" {
		t.Errorf("Expected platform telegram, got %s", GetPlatform(ctx))
	}
	if GetUserID(ctx) != "1001" {
		t.Errorf("Expected user ID 1001, got %s", GetUserID(ctx))
	}
}
