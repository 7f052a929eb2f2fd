package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorString_IncludesCodeAndMessage(t *testing.T) {
	err := New(CodeNotFound, "record not found")
	want := "NOT_FOUND: record not found"
	if err.Error() != want {
		t.Fatalf("error = %q, want %q", err.Error(), want)
	}
}

func TestWrap_UnwrapsToCause(t *testing.T) {
	cause := stderrors.New("disk gone")
	err := Wrap(CodeSnapshotCorrupt, "load snapshot", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to match errors.Is")
	}
}

func TestIs_MatchesSameCode(t *testing.T) {
	sentinel := New(CodeNotFound, "record not found")
	err := fmt.Errorf("load session: %w", Wrap(CodeNotFound, "no snapshot", nil))
	if !stderrors.Is(err, sentinel) {
		t.Fatal("expected same-code errors to match")
	}
	other := New(CodeEnvelopeInvalid, "bad envelope")
	if stderrors.Is(err, other) {
		t.Fatal("expected different-code errors not to match")
	}
}
