package daemonrun

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	"vodbridge/internal/config"
)

// Dependency describes one external prerequisite of the upload loop.
type Dependency struct {
	Key       string
	Name      string
	Available bool
	Optional  bool
	Detail    string
}

// ProcessState reports whether a daemon currently holds the instance lock.
type ProcessState struct {
	Running bool
	PID     int
}

// PIDPath returns the file the running daemon records its pid in.
func PIDPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.StateDir, "vodbridge.pid")
}

// Inspect checks the instance lock without holding it.
func Inspect(cfg *config.Config) (ProcessState, error) {
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return ProcessState{}, fmt.Errorf("inspect lock: %w", err)
	}
	if ok {
		_ = lock.Unlock()
		return ProcessState{}, nil
	}
	state := ProcessState{Running: true}
	if data, err := os.ReadFile(PIDPath(cfg)); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil {
			state.PID = pid
		}
	}
	return state, nil
}

// CheckDependencies reports the listing binary, OAuth files and ntfy topic.
func CheckDependencies(cfg *config.Config) []Dependency {
	listing := ""
	if len(cfg.Twitch.Command) > 0 {
		listing = cfg.Twitch.Command[0]
	}
	deps := []Dependency{
		fileDependency("listing", "Twitch CLI", listing, binaryAvailable(listing), false),
		{
			Key:       "twitch_user_id",
			Name:      "Twitch user id",
			Available: strings.TrimSpace(cfg.Twitch.UserID) != "",
			Detail:    "twitch.user_id",
		},
		fileDependency("client_secrets", "Client secrets", cfg.YouTube.ClientSecrets, fileExists(cfg.YouTube.ClientSecrets), false),
		fileDependency("token", "OAuth token", cfg.YouTube.TokenPath, fileExists(cfg.YouTube.TokenPath), false),
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	ntfy := Dependency{Key: "ntfy", Name: "ntfy", Available: topic != "", Optional: true, Detail: topic}
	if topic == "" {
		ntfy.Detail = "not configured"
	}
	return append(deps, ntfy)
}

func fileDependency(key, name, target string, available, optional bool) Dependency {
	return Dependency{Key: key, Name: name, Available: available, Optional: optional, Detail: target}
}

func fileExists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
