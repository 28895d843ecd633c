package player

import (
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// ExecPlayer spawns a one-shot playback process (afplay, ffplay) with no
// control channel. Pause is unsupported; stopping means terminating the
// process.
type ExecPlayer struct {
	name   string
	bin    string
	logger *slog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	current string
	done    chan struct{}
}

func NewExecPlayer(name, bin string, logger *slog.Logger) *ExecPlayer {
	return &ExecPlayer{name: name, bin: bin, logger: logger}
}

func (p *ExecPlayer) Play(path string, volume float64) bool {
	p.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()

	var args []string
	switch p.name {
	case "afplay":
		if volume >= 0 {
			// afplay takes linear volume 0-1 directly.
			args = append(args, "-v", fmt.Sprintf("%.2f", volume))
		}
		args = append(args, path)
	case "ffplay":
		args = append(args, "-nodisp", "-autoexit", "-loglevel", "quiet")
		if volume >= 0 {
			args = append(args, "-volume", fmt.Sprintf("%d", int(volume*100)))
		}
		args = append(args, path)
	default:
		args = append(args, path)
	}

	cmd := exec.Command(p.bin, args...)
	if err := cmd.Start(); err != nil {
		p.logger.Error("player start failed", "player", p.name, "error", err)
		return false
	}
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	p.cmd = cmd
	p.current = path
	p.done = done
	p.logger.Debug("playing", "player", p.name, "file", path)
	return true
}

func (p *ExecPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil {
		return
	}
	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-p.done:
	case <-time.After(time.Second):
		_ = p.cmd.Process.Kill()
		<-p.done
	}
	p.cmd = nil
	p.current = ""
	p.done = nil
}

func (p *ExecPlayer) PauseResume() bool { return false }

func (p *ExecPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil {
		return false
	}
	select {
	case <-p.done:
		p.cmd = nil
		p.current = ""
		p.done = nil
		return false
	default:
		return true
	}
}

func (p *ExecPlayer) IsPaused() bool { return false }

func (p *ExecPlayer) SupportsPause() bool { return false }

func (p *ExecPlayer) CurrentFile() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil {
		return ""
	}
	return p.current
}
