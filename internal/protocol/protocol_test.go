package protocol

import (
	"strings"
	"testing"
)

func TestTargetRegister(t *testing.T) {
	t.Parallel()

	noop := func(args []any) (any, error) { return nil, nil }

	tests := []struct {
		name       string
		methodName string
		fn         Handler
		wantErr    string
	}{
		{name: "valid name", methodName: "InstallVersion", fn: noop},
		{name: "empty name", methodName: "", fn: noop, wantErr: "empty method name"},
		{name: "reserved prefix", methodName: "_close", fn: noop, wantErr: "reserved prefix"},
		{name: "nil handler", methodName: "Broken", fn: nil, wantErr: "nil handler"},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			target := NewTarget()
			err := target.Register(tc.methodName, tc.fn)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Register() error = %v", err)
				}
				if _, ok := target.lookup(tc.methodName); !ok {
					t.Errorf("registered method %q not found", tc.methodName)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Register() error = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestTargetRegisterDuplicate(t *testing.T) {
	t.Parallel()

	target := NewTarget()
	fn := func(args []any) (any, error) { return nil, nil }
	if err := target.Register("Ping", fn); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := target.Register("Ping", fn); err == nil {
		t.Error("duplicate Register() succeeded, want error")
	}
}

func TestMustRegisterPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("MustRegister() with reserved name did not panic")
		}
	}()
	NewTarget().MustRegister("_internal", func(args []any) (any, error) { return nil, nil })
}

func TestRemoteErrorString(t *testing.T) {
	t.Parallel()

	err := &RemoteError{Kind: KindNoSuchMethod, Message: "no such method: Frob"}
	want := "remote no-such-method: no such method: Frob"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
