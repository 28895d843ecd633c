package player

import (
	"log/slog"
	"os/exec"

	"ytune/internal/domain"
)

// Player is the playback control surface. Two implementations exist: the
// mpv-backed controllable player (live pause over IPC) and the plain spawned
// process player (start and terminate only).
type Player interface {
	// Play starts playback of a local file, stopping any current playback
	// first. volume is 0.0-1.0, negative for the player default. Reports
	// whether playback actually started.
	Play(path string, volume float64) bool

	// Stop terminates playback. Safe to call when idle.
	Stop()

	// PauseResume toggles pause. Reports whether the toggle took effect;
	// always false for players without a control channel.
	PauseResume() bool

	IsPlaying() bool
	IsPaused() bool

	// SupportsPause reports whether live pause/resume is available.
	SupportsPause() bool

	// CurrentFile returns the path being played, "" when idle.
	CurrentFile() string
}

// simplePlayers are the fire-and-forget fallbacks tried in order.
var simplePlayers = []string{"afplay", "ffplay"}

// Detect picks the best available player. mpv is preferred for its pause
// support; otherwise the simple players are tried, honoring prefer first.
// No playable binary at all is a fatal configuration error.
func Detect(prefer string, logger *slog.Logger) (Player, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if prefer == "" || prefer == "mpv" {
		if _, err := exec.LookPath("mpv"); err == nil {
			logger.Info("using player", "player", "mpv", "pause", true)
			return NewMPVPlayer(logger), nil
		}
	}
	search := simplePlayers
	if prefer != "" {
		search = append([]string{prefer}, search...)
	}
	seen := map[string]bool{}
	for _, name := range search {
		if seen[name] {
			continue
		}
		seen[name] = true
		bin, err := exec.LookPath(name)
		if err != nil {
			continue
		}
		logger.Info("using player", "player", name, "pause", false)
		return NewExecPlayer(name, bin, logger), nil
	}
	return nil, domain.ErrNoPlayer
}
