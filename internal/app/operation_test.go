package app

import (
	"errors"
	"testing"
	"time"
)

func TestNewOperation(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		operation  string
		parameters string
	}{
		{name: "with parameters", operation: "ReconcileCollection", parameters: "docs"},
		{name: "empty parameters", operation: "ListCollections", parameters: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation(tt.operation, tt.parameters, now)

			if op.Name != tt.operation {
				t.Errorf("Name = %q, want %q", op.Name, tt.operation)
			}
			if op.Parameters != tt.parameters {
				t.Errorf("Parameters = %q, want %q", op.Parameters, tt.parameters)
			}
			if op.ID != "20240115T103000Z" {
				t.Errorf("ID = %q, want 20240115T103000Z", op.ID)
			}
			if op.Status != StatusRunning || op.Finished() {
				t.Errorf("Status = %q, want running", op.Status)
			}
		})
	}
}

func TestOperation_Finish(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "success", err: nil, want: StatusSuccess},
		{name: "error", err: errors.New("boom"), want: StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation("SaveFile", "", time.Now())
			op.Finish(tt.err)
			if op.Status != tt.want {
				t.Errorf("Status = %q, want %q", op.Status, tt.want)
			}
			if !op.Finished() {
				t.Error("Finished() = false after Finish")
			}
		})
	}

	t.Run("first outcome wins", func(t *testing.T) {
		op := NewOperation("SaveFile", "", time.Now())
		op.Finish(errors.New("boom"))
		op.Finish(nil)
		if op.Status != StatusError {
			t.Errorf("Status = %q, want error", op.Status)
		}
	})
}
