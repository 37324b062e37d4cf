package process

import (
	"errors"
	"testing"
	"time"
)

func spec(argv ...string) Spec {
	return Spec{Name: "test", Argv: argv}
}

func TestProcess_BeforeStart(t *testing.T) {
	p := newProcess("id-1", spec("true"))

	if p.State() != StateCreated {
		t.Errorf("expected StateCreated, got %v", p.State())
	}
	if p.ExitCode() != -1 {
		t.Errorf("expected exit code -1 before start, got %d", p.ExitCode())
	}
	if p.Exited() {
		t.Error("expected Exited() to be false before start")
	}
	if p.Elapsed() != 0 {
		t.Errorf("expected zero elapsed before start, got %v", p.Elapsed())
	}
	if err := p.Kill(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
}

func TestProcess_StartTwice(t *testing.T) {
	p := newProcess("id", spec("true"))
	if err := p.start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	<-p.Done()

	if err := p.start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestProcess_ExitCode(t *testing.T) {
	tests := []struct {
		name  string
		argv  []string
		code  int
		isErr bool
	}{
		{"success", []string{"sh", "-c", "exit 0"}, 0, false},
		{"failure", []string{"sh", "-c", "exit 3"}, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProcess("id", spec(tt.argv...))
			if err := p.start(); err != nil {
				t.Fatalf("start failed: %v", err)
			}
			<-p.Done()

			if p.ExitCode() != tt.code {
				t.Errorf("expected exit code %d, got %d", tt.code, p.ExitCode())
			}
			if (p.Err() != nil) != tt.isErr {
				t.Errorf("expected error %v, got %v", tt.isErr, p.Err())
			}
			if p.State() != StateExited {
				t.Errorf("expected StateExited, got %v", p.State())
			}
		})
	}
}

func TestProcess_StartMissingExecutable(t *testing.T) {
	p := newProcess("id", spec("/nonexistent/analyzer"))
	if err := p.start(); err == nil {
		t.Fatal("expected error starting a missing executable")
	}
	if p.State() != StateCreated {
		t.Errorf("expected StateCreated after failed start, got %v", p.State())
	}
}

func TestProcess_Kill(t *testing.T) {
	p := newProcess("id", spec("sleep", "10"))
	if err := p.start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := p.Kill(); err != nil {
		t.Fatalf("kill failed: %v", err)
	}

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after kill")
	}

	if p.State() != StateKilled {
		t.Errorf("expected StateKilled, got %v", p.State())
	}
	if p.ExitCode() != -1 {
		t.Errorf("expected exit code -1 for a killed process, got %d", p.ExitCode())
	}
	if err := p.Kill(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning after exit, got %v", err)
	}
}

func TestProcess_Elapsed(t *testing.T) {
	p := newProcess("id", spec("sleep", "0.05"))
	if err := p.start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	<-p.Done()

	first := p.Elapsed()
	if first < 40*time.Millisecond {
		t.Errorf("expected at least 40ms, got %v", first)
	}
	time.Sleep(20 * time.Millisecond)
	if p.Elapsed() != first {
		t.Errorf("expected elapsed to stay fixed after exit, got %v then %v", first, p.Elapsed())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateCreated, "created"},
		{StateRunning, "running"},
		{StateExited, "exited"},
		{StateKilled, "killed"},
		{State(42), "unknown(42)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
