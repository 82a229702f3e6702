package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	if got := KindOf(New(KindNotFound, "gone")); got != KindNotFound {
		t.Errorf("KindOf = %v, want not_found", got)
	}
	if got := KindOf(errors.New("plain")); got != KindTransient {
		t.Errorf("KindOf(plain) = %v, want transient", got)
	}
}

func TestWrap(t *testing.T) {
	if Wrap(KindTransient, nil, "noop") != nil {
		t.Error("Wrap(nil) returned non-nil")
	}

	inner := errors.New("connection reset")
	err := Wrap(KindTransient, inner, "load settings")
	if !errors.Is(err, inner) {
		t.Error("wrapped error lost its cause")
	}
	if err.Error() != "load settings: connection reset" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := New(KindValidation, "bad input")
	wrapped := fmt.Errorf("handler: %w", err)
	if !IsValidation(wrapped) {
		t.Error("validation kind lost through fmt.Errorf wrapping")
	}
	if KindOf(wrapped) != KindValidation {
		t.Errorf("KindOf(wrapped) = %v, want validation", KindOf(wrapped))
	}
}

func TestKindPredicates(t *testing.T) {
	cases := []struct {
		kind Kind
		pred func(error) bool
	}{
		{KindValidation, IsValidation},
		{KindNotFound, IsNotFound},
		{KindConflict, IsConflict},
		{KindConfiguration, IsConfiguration},
	}
	for _, c := range cases {
		if !c.pred(New(c.kind, "x")) {
			t.Errorf("predicate for %v rejected its own kind", c.kind)
		}
		if c.pred(errors.New("plain")) {
			t.Errorf("predicate for %v matched an unclassified error", c.kind)
		}
	}
}

func TestKindString(t *testing.T) {
	if KindConflict.String() != "conflict" {
		t.Errorf("KindConflict.String() = %q", KindConflict.String())
	}
	if Kind(99).String() != "unknown" {
		t.Errorf("unknown kind String() = %q", Kind(99).String())
	}
}
