package colstore_test

import (
	"errors"
	"fmt"
	"testing"

	"colstore-go/internal/colstore"
)

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("loading: %w", colstore.NotFoundError("docs", "a.md"))

	if !errors.Is(err, colstore.ErrNotFound) {
		t.Error("errors.Is(err, ErrNotFound) = false, want true")
	}
	if errors.Is(err, colstore.ErrValidation) {
		t.Error("errors.Is(err, ErrValidation) = true, want false")
	}
	if errors.Is(colstore.NotFoundError("a", ""), colstore.NotFoundError("b", "")) {
		t.Error("two detailed errors should not match each other")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want colstore.ErrorKind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "already exists", err: colstore.AlreadyExistsError("docs"), want: colstore.KindAlreadyExists},
		{name: "wrapped validation", err: fmt.Errorf("x: %w", colstore.ValidationError("", "", "bad")), want: colstore.KindValidation},
		{name: "unclassified", err: errors.New("disk on fire"), want: colstore.KindStorage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := colstore.KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStorageError(t *testing.T) {
	if colstore.StorageError("docs", "", nil) != nil {
		t.Error("StorageError(nil) should be nil")
	}

	cause := errors.New("disk full")
	err := colstore.StorageError("docs", "a.md", cause)
	if !errors.Is(err, cause) {
		t.Error("StorageError should unwrap to its cause")
	}
	if !errors.Is(err, colstore.ErrStorage) {
		t.Error("StorageError should match ErrStorage")
	}

	nf := colstore.NotFoundError("docs", "")
	if got := colstore.StorageError("docs", "", nf); got != error(nf) {
		t.Errorf("StorageError() reclassified %v", got)
	}
}
