package player

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

const (
	socketDialRetries  = 20
	socketDialInterval = 100 * time.Millisecond
	ipcTimeout         = 2 * time.Second
	quitGrace          = 2 * time.Second
)

// MPVPlayer drives an mpv subprocess over its JSON IPC socket. Pause and
// clean shutdown go through the socket; SIGKILL is the escalation path when
// mpv stops answering.
type MPVPlayer struct {
	logger *slog.Logger

	mu         sync.Mutex
	cmd        *exec.Cmd
	conn       net.Conn
	reader     *bufio.Reader
	socketPath string
	current    string
	paused     bool
	reqID      int
	done       chan struct{}
}

func NewMPVPlayer(logger *slog.Logger) *MPVPlayer {
	return &MPVPlayer{logger: logger}
}

func (p *MPVPlayer) Play(path string, volume float64) bool {
	p.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()

	sock := filepath.Join(os.TempDir(), fmt.Sprintf("ytune-mpv-%d.sock", os.Getpid()))
	_ = os.Remove(sock)

	args := []string{"--no-video", "--idle=no", "--keep-open=no", "--really-quiet", "--input-ipc-server=" + sock}
	if volume >= 0 {
		args = append(args, fmt.Sprintf("--volume=%d", int(volume*100)))
	}
	args = append(args, path)

	cmd := exec.Command("mpv", args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		p.logger.Error("mpv start failed", "error", err)
		return false
	}

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	conn := p.dialSocket(sock, done)
	if conn == nil {
		p.logger.Error("mpv socket never came up", "socket", sock)
		_ = cmd.Process.Kill()
		_ = os.Remove(sock)
		return false
	}

	p.cmd = cmd
	p.conn = conn
	p.reader = bufio.NewReader(conn)
	p.socketPath = sock
	p.current = path
	p.paused = false
	p.done = done
	p.logger.Debug("mpv playing", "file", path, "socket", sock)
	return true
}

// dialSocket waits for mpv to create its IPC socket, giving up early if the
// process already exited.
func (p *MPVPlayer) dialSocket(sock string, done chan struct{}) net.Conn {
	for i := 0; i < socketDialRetries; i++ {
		select {
		case <-done:
			return nil
		case <-time.After(socketDialInterval):
		}
		conn, err := net.Dial("unix", sock)
		if err == nil {
			return conn
		}
	}
	return nil
}

func (p *MPVPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil {
		return
	}

	if p.conn != nil {
		_ = p.sendLocked("quit")
	}
	select {
	case <-p.done:
	case <-time.After(quitGrace):
		p.logger.Warn("mpv ignored quit, escalating")
		_ = p.cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-p.done:
		case <-time.After(time.Second):
			_ = p.cmd.Process.Kill()
			<-p.done
		}
	}
	p.cleanupLocked()
}

func (p *MPVPlayer) PauseResume() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.conn == nil {
		return false
	}
	cur, err := p.getPropertyLocked("pause")
	if err != nil {
		p.logger.Debug("mpv pause query failed", "error", err)
		return false
	}
	want := true
	if b, ok := cur.(bool); ok {
		want = !b
	}
	if err := p.setPropertyLocked("pause", want); err != nil {
		p.logger.Debug("mpv pause toggle failed", "error", err)
		return false
	}
	p.paused = want
	return true
}

func (p *MPVPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil {
		return false
	}
	select {
	case <-p.done:
		p.cleanupLocked()
		return false
	default:
		return true
	}
}

func (p *MPVPlayer) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cmd != nil && p.paused
}

func (p *MPVPlayer) SupportsPause() bool { return true }

func (p *MPVPlayer) CurrentFile() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil {
		return ""
	}
	return p.current
}

func (p *MPVPlayer) cleanupLocked() {
	if p.conn != nil {
		_ = p.conn.Close()
	}
	if p.socketPath != "" {
		_ = os.Remove(p.socketPath)
	}
	p.cmd = nil
	p.conn = nil
	p.reader = nil
	p.socketPath = ""
	p.current = ""
	p.paused = false
	p.done = nil
}

type mpvResponse struct {
	Error     string      `json:"error"`
	Data      interface{} `json:"data"`
	RequestID int         `json:"request_id"`
	Event     string      `json:"event"`
}

// roundTripLocked sends one IPC command and reads responses until the one
// carrying our request id arrives. mpv interleaves event notifications on
// the same stream; those are skipped.
func (p *MPVPlayer) roundTripLocked(cmd []interface{}) (interface{}, error) {
	p.reqID++
	req := map[string]interface{}{"command": cmd, "request_id": p.reqID}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	_ = p.conn.SetDeadline(time.Now().Add(ipcTimeout))
	defer p.conn.SetDeadline(time.Time{})

	if _, err := p.conn.Write(append(payload, '\n')); err != nil {
		return nil, err
	}
	for {
		line, err := p.reader.ReadBytes('\n')
		if err != nil {
			return nil, err
		}
		var resp mpvResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			continue
		}
		if resp.Event != "" || resp.RequestID != p.reqID {
			continue
		}
		if resp.Error != "" && resp.Error != "success" {
			return nil, fmt.Errorf("mpv: %s", resp.Error)
		}
		return resp.Data, nil
	}
}

func (p *MPVPlayer) sendLocked(cmd ...interface{}) error {
	_, err := p.roundTripLocked(cmd)
	return err
}

func (p *MPVPlayer) getPropertyLocked(name string) (interface{}, error) {
	return p.roundTripLocked([]interface{}{"get_property", name})
}

func (p *MPVPlayer) setPropertyLocked(name string, value interface{}) error {
	return p.sendLocked("set_property", name, value)
}
