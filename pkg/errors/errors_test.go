package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"reflect"
	"testing"
)

func TestMetadataRegistry(t *testing.T) {
	want := map[Code]Metadata{
		CodeValidation:   {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true},
		CodeUnauthorized: {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required"},
		CodeForbidden:    {HTTPStatus: http.StatusForbidden, PublicMessage: "access denied"},
		CodeNotFound:     {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found"},
		CodeConflict:     {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected"},
		CodeInternal:     {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error", Retryable: true},
		CodeDependency:   {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "dependency unavailable", Retryable: true, DetailsAllowed: true},
	}
	for code, meta := range want {
		if got := MetadataFor(code); got != meta {
			t.Fatalf("code %s: got %+v want %+v", code, got, meta)
		}
	}
	if got := MetadataFor("TEAPOT"); got != want[CodeInternal] {
		t.Fatalf("unknown code should map to internal, got %+v", got)
	}
}

func TestNewAndWrap(t *testing.T) {
	bidErr := New(CodeValidation, "amount must be positive")
	if bidErr.Code() != CodeValidation || bidErr.Message() != "amount must be positive" {
		t.Fatalf("unexpected error %s / %q", bidErr.Code(), bidErr.Message())
	}
	if bidErr.Details() != nil || stdErrors.Unwrap(bidErr) != nil {
		t.Fatal("fresh error should carry no details or cause")
	}

	bidErr.WithDetails(map[string]any{"field": "amount"})
	if !reflect.DeepEqual(bidErr.Details(), map[string]any{"field": "amount"}) {
		t.Fatalf("details not kept: %v", bidErr.Details())
	}

	cause := stdErrors.New("unique violation")
	wrapped := Wrap(CodeConflict, cause, "insert auction")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatal("wrapped error lost its cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("wrap changed code to %s", wrapped.Code())
	}
}

func TestCodeLookupThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("place bid: %w", New(CodeNotFound, "auction not found"))

	if As(wrapped) == nil || CodeOf(wrapped) != CodeNotFound {
		t.Fatalf("code not found through fmt wrapping: %s", CodeOf(wrapped))
	}
	if !IsCode(wrapped, CodeNotFound) || IsCode(wrapped, CodeConflict) {
		t.Fatal("IsCode mismatch")
	}
	if As(nil) != nil || IsCode(nil, CodeInternal) {
		t.Fatal("nil error must not carry a code")
	}
	if CodeOf(stdErrors.New("plain")) != CodeInternal {
		t.Fatal("untyped errors should read as internal")
	}
}

func TestErrorString(t *testing.T) {
	if got := New(CodeNotFound, "auction not found").Error(); got != "NOT_FOUND: auction not found" {
		t.Fatalf("unexpected message %q", got)
	}
	got := Wrap(CodeDependency, stdErrors.New("connection refused"), "lookup auction").Error()
	if got != "DEPENDENCY_ERROR: lookup auction: connection refused" {
		t.Fatalf("cause missing from message %q", got)
	}
}

func TestDumpWalksChain(t *testing.T) {
	d := Dump(fmt.Errorf("finalize: %w", Wrap(CodeInternal, stdErrors.New("disk full"), "save auction")))
	if d.Code != CodeInternal || !d.Retryable {
		t.Fatalf("unexpected dump head %s retryable=%v", d.Code, d.Retryable)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d", len(d.Chain))
	}
	if d.PGCode != "" {
		t.Fatalf("unexpected pg code %q", d.PGCode)
	}

	empty := Dump(nil)
	if empty.TopMessage != "" || empty.Chain != nil {
		t.Fatalf("nil dump should be empty, got %+v", empty)
	}
}
