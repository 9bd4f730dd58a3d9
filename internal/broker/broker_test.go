package broker

import (
	"errors"
	"fmt"
	"testing"
)

func TestQueueArgsMatchesRetentionContract(t *testing.T) {
	args := queueArgs()
	if args["x-message-ttl"] != int64(3600000) {
		t.Errorf("x-message-ttl = %v, want 3600000", args["x-message-ttl"])
	}
	if args["x-max-length"] != int64(10000) {
		t.Errorf("x-max-length = %v, want 10000", args["x-max-length"])
	}
	if args["x-overflow"] != "drop-head" {
		t.Errorf("x-overflow = %v, want drop-head", args["x-overflow"])
	}
}

func TestDecodeWrapsMalformedJSON(t *testing.T) {
	var v struct{ Foo string }
	err := Decode([]byte("not json"), &v)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if _, ok := isMalformed(err); !ok {
		t.Error("expected malformed error classification")
	}
}

func TestMalformedIsClassifiedDirectlyNotWrapped(t *testing.T) {
	cause := errors.New("scan_id is required")
	err := Malformed(cause)
	if _, ok := isMalformed(err); !ok {
		t.Error("expected Malformed(err) to classify as malformed")
	}

	wrapped := fmt.Errorf("validating request: %w", err)
	if _, ok := isMalformed(wrapped); ok {
		t.Error("isMalformed unexpectedly saw through a %w-wrapped malformedError; callers must return Malformed(err) directly")
	}
}

func TestDecodeAcceptsValidJSON(t *testing.T) {
	var v struct {
		Foo string `json:"foo"`
	}
	if err := Decode([]byte(`{"foo":"bar"}`), &v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Foo != "bar" {
		t.Errorf("Foo = %q, want bar", v.Foo)
	}
}
