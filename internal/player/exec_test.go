package player

import (
	"io"
	"log/slog"
	"os/exec"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sleep stands in for a playback binary: it runs until terminated and takes
// its "file" as an argument.
func sleepPlayer(t *testing.T) *ExecPlayer {
	t.Helper()
	bin, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}
	return NewExecPlayer("sleep", bin, testLogger())
}

func TestExecPlayerLifecycle(t *testing.T) {
	p := sleepPlayer(t)

	if p.IsPlaying() {
		t.Fatal("idle player reports playing")
	}
	if p.CurrentFile() != "" {
		t.Fatal("idle player reports a file")
	}
	if p.SupportsPause() || p.PauseResume() {
		t.Fatal("exec player claims pause support")
	}

	if !p.Play("30", -1) {
		t.Fatal("Play failed")
	}
	if !p.IsPlaying() {
		t.Fatal("player not playing after Play")
	}
	if p.CurrentFile() != "30" {
		t.Errorf("CurrentFile = %q", p.CurrentFile())
	}

	p.Stop()
	if p.IsPlaying() {
		t.Error("player still playing after Stop")
	}
	if p.CurrentFile() != "" {
		t.Errorf("CurrentFile after stop = %q", p.CurrentFile())
	}
	// Stop on an idle player is safe.
	p.Stop()
}

func TestExecPlayerNaturalCompletion(t *testing.T) {
	p := sleepPlayer(t)
	if !p.Play("0.05", -1) {
		t.Fatal("Play failed")
	}
	deadline := time.After(5 * time.Second)
	for p.IsPlaying() {
		select {
		case <-deadline:
			t.Fatal("process never finished")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if p.CurrentFile() != "" {
		t.Errorf("CurrentFile after completion = %q", p.CurrentFile())
	}
}

func TestExecPlayerStopsPreviousOnPlay(t *testing.T) {
	p := sleepPlayer(t)
	if !p.Play("30", -1) {
		t.Fatal("first Play failed")
	}
	if !p.Play("31", -1) {
		t.Fatal("second Play failed")
	}
	if p.CurrentFile() != "31" {
		t.Errorf("CurrentFile = %q, want the newer file", p.CurrentFile())
	}
	p.Stop()
}
