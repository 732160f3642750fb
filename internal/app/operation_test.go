package app

import (
	"errors"
	"testing"
)

func TestNewOperation(t *testing.T) {
	op := NewOperation("CreateBackup", "Tav")

	if op.Persisted() {
		t.Error("new operation should not be persisted")
	}
	if op.Status != StatusSuccess {
		t.Errorf("Status = %q, want %q", op.Status, StatusSuccess)
	}

	op.ID = 7
	if !op.Persisted() {
		t.Error("operation with an id should be persisted")
	}
}

func TestOperation_Fail(t *testing.T) {
	op := NewOperation("Restore", "")

	if err := op.Fail(nil); err != nil {
		t.Fatalf("Fail(nil) = %v, want nil", err)
	}
	if op.Status != StatusSuccess {
		t.Errorf("Status after Fail(nil) = %q, want %q", op.Status, StatusSuccess)
	}

	boom := errors.New("boom")
	if err := op.Fail(boom); err != boom {
		t.Errorf("Fail(err) = %v, want the same error back", err)
	}
	if op.Status != StatusError {
		t.Errorf("Status = %q, want %q", op.Status, StatusError)
	}

	op.Fail(nil)
	if op.Status != StatusError {
		t.Error("a later nil must not clear an earlier failure")
	}
}

func TestJoinParams(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "plain", args: []string{"Tav", "Boss1"}, want: "Tav Boss1"},
		{name: "label with spaces", args: []string{"Tav", "Before Boss"}, want: `Tav "Before Boss"`},
		{name: "omitted profile", args: []string{""}, want: ""},
		{name: "omitted profile with ref", args: []string{"", "abc"}, want: "abc"},
		{name: "none", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinParams(tt.args...); got != tt.want {
				t.Errorf("joinParams(%q) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}
