package spotify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"spotifydlp/internal/core"
)

const loginShutdownTimeout = 5 * time.Second

// callbackResult is what the redirect handler hands back to the waiting login flow.
type callbackResult struct {
	code string
	err  error
}

// Login runs the browser authorization-code flow with PKCE. announce receives the URL the
// user has to open. The received token is saved to store.
func Login(
	ctx context.Context,
	cfg *core.SpotifyConfig,
	store *TokenStore,
	announce func(authURL string),
	logger *zap.Logger,
) (*oauth2.Token, error) {
	redirect, err := url.Parse(cfg.RedirectURL)
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("invalid redirect url %q", cfg.RedirectURL)
	}

	auth := spotifyauth.New(
		spotifyauth.WithRedirectURL(cfg.RedirectURL),
		spotifyauth.WithScopes(spotifyauth.ScopeUserLibraryRead),
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
	)

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("listen for login callback: %w", err)
	}

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.Handle(callbackPath(redirect), callbackHandler(state, results))

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("Login callback server failed", zap.Error(serveErr))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), loginShutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	announce(auth.AuthURL(state, oauth2.S256ChallengeOption(verifier)))
	logger.Info("Waiting for login callback", zap.String("redirect", cfg.RedirectURL))

	var result callbackResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result = <-results:
	}
	if result.err != nil {
		return nil, &core.AuthError{Op: "authorize", Err: result.err}
	}

	token, err := auth.Exchange(ctx, result.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, &core.AuthError{Op: "exchange code", Err: describeTokenError(err)}
	}

	if err := store.Save(token); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}

	logger.Info("Login completed", zap.String("token_path", store.Path()))
	return token, nil
}

func callbackPath(redirect *url.URL) string {
	if redirect.Path == "" {
		return "/"
	}
	return redirect.Path
}

// callbackHandler accepts the first redirect carrying the expected state and reports either
// its code or the authorization error.
func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}

		var result callbackResult
		switch {
		case q.Get("error") != "":
			result.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
			http.Error(w, "authorization failed, you can close this window", http.StatusForbidden)
		case q.Get("code") == "":
			result.err = errors.New("callback without code")
			http.Error(w, "missing code", http.StatusBadRequest)
		default:
			result.code = q.Get("code")
			fmt.Fprintln(w, "Login successful, you can close this window.")
		}

		select {
		case results <- result:
		default:
		}
	})
}
