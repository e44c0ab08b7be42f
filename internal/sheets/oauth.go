package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

// DefaultCallbackAddr is where the OAuth2 redirect is received.
const DefaultCallbackAddr = "localhost:8085"

const consentTimeout = 5 * time.Minute

// OAuth2Config describes the desktop OAuth client used by 'export auth'.
type OAuth2Config struct {
	ClientID     string
	ClientSecret string
	TokenFile    string
	CallbackAddr string
}

func (c OAuth2Config) callbackAddr() string {
	if c.CallbackAddr == "" {
		return DefaultCallbackAddr
	}
	return c.CallbackAddr
}

func (c OAuth2Config) oauth() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  "http://" + c.callbackAddr() + "/callback",
		Scopes:       []string{sheets.SpreadsheetsScope},
	}
}

// GetOrCreateToken returns the saved token when it carries a refresh token.
// Otherwise it runs the browser consent flow and saves the result.
func GetOrCreateToken(ctx context.Context, cfg OAuth2Config, show func(url string)) (*oauth2.Token, error) {
	if cfg.TokenFile != "" {
		if token, err := LoadToken(cfg.TokenFile); err == nil && token.RefreshToken != "" {
			slog.Debug("Using saved Google token", "file", cfg.TokenFile)
			return token, nil
		}
	}

	token, err := AuthenticateOAuth2Interactive(ctx, cfg, show)
	if err != nil {
		return nil, err
	}
	if cfg.TokenFile != "" {
		if err := saveToken(cfg.TokenFile, token); err != nil {
			slog.Warn("Could not save Google token", "file", cfg.TokenFile, "error", err)
		}
	}
	return token, nil
}

// AuthenticateOAuth2Interactive hands the consent URL to show and waits for
// Google to redirect back to the local callback listener.
func AuthenticateOAuth2Interactive(ctx context.Context, cfg OAuth2Config, show func(url string)) (*oauth2.Token, error) {
	oc := cfg.oauth()
	state := uuid.NewString()

	listener, err := net.Listen("tcp", cfg.callbackAddr())
	if err != nil {
		return nil, fmt.Errorf("failed to listen for the OAuth callback: %w", err)
	}
	codes := make(chan callbackResult, 1)
	srv := &http.Server{Handler: callbackHandler(state, codes), ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(listener) }()
	defer func() { _ = srv.Shutdown(context.Background()) }()

	show(oc.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	ctx, cancel := context.WithTimeout(ctx, consentTimeout)
	defer cancel()

	var res callbackResult
	select {
	case res = <-codes:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for Google consent: %w", ctx.Err())
	}
	if res.err != nil {
		return nil, res.err
	}

	token, err := oc.Exchange(ctx, res.code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return token, nil
}

type callbackResult struct {
	err  error
	code string
}

// callbackHandler delivers the first callback to out. Later hits are answered
// but dropped.
func callbackHandler(state string, out chan<- callbackResult) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		res := callbackResult{code: q.Get("code")}
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("google declined access: %s", q.Get("error"))
		case q.Get("state") != state:
			res.err = errors.New("OAuth state mismatch")
		case res.code == "":
			res.err = errors.New("no authorization code received")
		}

		if res.err != nil {
			http.Error(w, "Spice could not be authorized. Return to the terminal for details.", http.StatusBadRequest)
		} else {
			_, _ = fmt.Fprint(w, "Spice is authorized. You can close this window.")
		}
		select {
		case out <- res:
		default:
		}
	})
	return mux
}

// LoadToken reads a token written by GetOrCreateToken.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the config dir
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to decode token %s: %w", path, err)
	}
	return &token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
