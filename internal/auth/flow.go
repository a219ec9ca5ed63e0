package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"vodbridge/internal/logging"
)

// Authorize runs the installed-app loopback flow: it prints the consent URL
// to out, waits for the browser redirect on 127.0.0.1, exchanges the code and
// caches the token.
func (m *Manager) Authorize(ctx context.Context, out io.Writer) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen for oauth redirect: %w", err)
	}
	defer listener.Close()

	cfg := *m.config
	cfg.RedirectURL = "http://" + listener.Addr().String() + "/"

	state, err := randomState()
	if err != nil {
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()
	url := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce, oauth2.S256ChallengeOption(verifier))

	codes := make(chan string, 1)
	failures := make(chan error, 1)
	server := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query := r.URL.Query()
			if query.Get("state") != state {
				http.Error(w, "state mismatch", http.StatusBadRequest)
				return
			}
			if msg := query.Get("error"); msg != "" {
				http.Error(w, "authorization failed: "+msg, http.StatusBadRequest)
				select {
				case failures <- fmt.Errorf("authorization denied: %s", msg):
				default:
				}
				return
			}
			fmt.Fprintln(w, "vodbridge is authorized. You can close this window.")
			select {
			case codes <- query.Get("code"):
			default:
			}
		}),
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case failures <- err:
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(out, "Open this URL in a browser to authorize uploads:\n\n  %s\n\nWaiting for the redirect on %s ...\n", url, cfg.RedirectURL)

	var code string
	select {
	case code = <-codes:
	case err := <-failures:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	if err := m.SaveToken(tok); err != nil {
		return nil, err
	}
	m.logger.Info("oauth token stored",
		logging.String("path", m.token.Path()),
		logging.String(logging.FieldEventType, "token_stored"),
	)
	return tok, nil
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
