package ytapi

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"ytune/internal/domain"
)

// ResolveAPIKey returns the YouTube Data API key to use, in priority order:
// the explicitly configured key, the environment, then an interactive prompt
// when stdin is a terminal. A missing key is domain.ErrAPIKeyMissing; callers
// performing duration-aware operations treat that as fatal.
func ResolveAPIKey(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	for _, env := range []string{"YTUNE_API_KEY", "YT_API_KEY"} {
		if key := os.Getenv(env); key != "" {
			return key, nil
		}
	}
	if term.IsTerminal(int(syscall.Stdin)) {
		fmt.Fprint(os.Stderr, "YouTube Data API key: ")
		keyBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err == nil {
			if key := strings.TrimSpace(string(keyBytes)); key != "" {
				return key, nil
			}
		}
	}
	return "", domain.ErrAPIKeyMissing
}
