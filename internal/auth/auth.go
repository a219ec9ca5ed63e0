// Package auth bootstraps the OAuth2 session used for YouTube uploads.
//
// Client secrets come from the JSON downloaded from the Google Cloud console.
// The token is cached on disk through statefile and rewritten whenever the
// access token is refreshed.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	yt "google.golang.org/api/youtube/v3"

	"vodbridge/internal/logging"
	"vodbridge/internal/statefile"
)

// ErrNoToken means no cached token exists; run the authorization flow.
var ErrNoToken = errors.New("no cached oauth token; run 'vodbridge auth'")

// Scopes requested from the user.
var Scopes = []string{yt.YoutubeUploadScope}

// Manager owns the OAuth client configuration and token cache.
type Manager struct {
	config *oauth2.Config
	token  *statefile.File
	logger *slog.Logger
}

// Load reads the client secrets file and prepares the token cache.
func Load(secretsPath, tokenPath string, logger *slog.Logger) (*Manager, error) {
	data, err := os.ReadFile(secretsPath)
	if err != nil {
		return nil, fmt.Errorf("read client secrets: %w", err)
	}
	cfg, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client secrets: %w", err)
	}
	return NewManager(cfg, tokenPath, logger), nil
}

// NewManager wraps an existing oauth2 config.
func NewManager(cfg *oauth2.Config, tokenPath string, logger *slog.Logger) *Manager {
	return &Manager{
		config: cfg,
		token:  statefile.New(tokenPath, 0o600),
		logger: logging.NewComponentLogger(logger, "auth"),
	}
}

// CachedToken returns the stored token or ErrNoToken.
func (m *Manager) CachedToken() (*oauth2.Token, error) {
	data, err := m.token.Read()
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrNoToken
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decode cached token %s: %w", m.token.Path(), err)
	}
	return &tok, nil
}

// SaveToken writes tok to the cache.
func (m *Manager) SaveToken(tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	return m.token.Replace(data)
}

// Client returns an HTTP client that authorizes requests with the cached
// token and persists refreshed tokens.
func (m *Manager) Client(ctx context.Context) (*http.Client, error) {
	tok, err := m.CachedToken()
	if err != nil {
		return nil, err
	}
	src := &persistingSource{
		base:   m.config.TokenSource(ctx, tok),
		last:   tok,
		save:   m.SaveToken,
		logger: m.logger,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

type persistingSource struct {
	mu     sync.Mutex
	base   oauth2.TokenSource
	last   *oauth2.Token
	save   func(*oauth2.Token) error
	logger *slog.Logger
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || tok.AccessToken != s.last.AccessToken {
		if err := s.save(tok); err != nil {
			logging.WarnWithContext(s.logger, "refreshed token not persisted", "token_persist_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on youtube.token_path"),
				logging.String(logging.FieldImpact, "the token is refreshed again on next start"),
			)
		} else {
			s.logger.Debug("oauth token refreshed", logging.String(logging.FieldEventType, "token_refreshed"))
		}
		s.last = tok
	}
	return tok, nil
}
