package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"spotifydlp/internal/core"
)

// TokenProvider yields the bearer credential attached to every catalog request.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Session holds the bearer credential. A session created from a stored user token
// refreshes itself when the access token expires; a client-credentials session is fixed
// for the lifetime of the process.
type Session struct {
	mu     sync.RWMutex
	token  *oauth2.Token
	oauth  *oauth2.Config // nil when the session cannot refresh
	store  *TokenStore    // nil when refreshed tokens are not persisted
	client *http.Client
	logger *zap.Logger
}

type AuthOption func(*authOptions)

type authOptions struct {
	tokenURL string
	client   *http.Client
}

// WithTokenURL overrides the accounts token endpoint.
func WithTokenURL(tokenURL string) AuthOption {
	return func(o *authOptions) {
		o.tokenURL = tokenURL
	}
}

// WithAuthHTTPClient sets the HTTP client used against the token endpoint.
func WithAuthHTTPClient(client *http.Client) AuthOption {
	return func(o *authOptions) {
		o.client = client
	}
}

func buildAuthOptions(opts []AuthOption) authOptions {
	o := authOptions{tokenURL: spotifyauth.TokenURL}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func oauthContext(ctx context.Context, client *http.Client) context.Context {
	if client == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, client)
}

// Authenticate obtains an app token with the client-credentials grant.
func Authenticate(ctx context.Context, clientID, clientSecret string, opts ...AuthOption) (*Session, error) {
	o := buildAuthOptions(opts)

	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     o.tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	token, err := cfg.Token(oauthContext(ctx, o.client))
	if err != nil {
		return nil, &core.AuthError{Op: "client credentials", Err: describeTokenError(err)}
	}

	return &Session{token: token, client: o.client, logger: zap.NewNop()}, nil
}

// NewSession wraps an existing token pair. With a non-nil oauth config the session
// refreshes expired access tokens, and with a non-nil store it persists the result.
func NewSession(token *oauth2.Token, oauth *oauth2.Config, store *TokenStore, logger *zap.Logger, opts ...AuthOption) *Session {
	o := buildAuthOptions(opts)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		token:  token,
		oauth:  oauth,
		store:  store,
		client: o.client,
		logger: logger,
	}
}

// NewUserSession loads the token saved by the login flow.
func NewUserSession(cfg *core.SpotifyConfig, store *TokenStore, logger *zap.Logger, opts ...AuthOption) (*Session, error) {
	token, err := store.Load()
	if err != nil {
		if errors.Is(err, ErrNoToken) {
			return nil, &core.AuthError{Op: "load user token", Err: fmt.Errorf("%w at %s, run login first", err, store.Path())}
		}
		return nil, &core.AuthError{Op: "load user token", Err: err}
	}

	o := buildAuthOptions(opts)
	oauth := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   spotifyauth.AuthURL,
			TokenURL:  o.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: []string{spotifyauth.ScopeUserLibraryRead},
	}

	return NewSession(token, oauth, store, logger, opts...), nil
}

// CanRefresh reports whether the session holds a refresh token it can use.
func (s *Session) CanRefresh() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.oauth != nil && s.token != nil && s.token.RefreshToken != ""
}

// Token returns a usable access token, refreshing it first when it has expired.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	token := s.token
	refreshable := s.oauth != nil && token != nil && token.RefreshToken != ""
	s.mu.RUnlock()

	if token == nil {
		return "", &core.AuthError{Op: "token", Err: errors.New("session has no token")}
	}
	if token.Valid() || !refreshable {
		return token.AccessToken, nil
	}

	return s.refresh(ctx)
}

func (s *Session) refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Another request may have refreshed while we waited for the lock.
	if s.token.Valid() {
		return s.token.AccessToken, nil
	}

	stale := &oauth2.Token{RefreshToken: s.token.RefreshToken}
	fresh, err := s.oauth.TokenSource(oauthContext(ctx, s.client), stale).Token()
	if err != nil {
		return "", &core.AuthError{Op: "refresh token", Err: describeTokenError(err)}
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = s.token.RefreshToken
	}

	s.token = fresh
	s.logger.Debug("Refreshed access token", zap.Time("expiry", fresh.Expiry))

	if s.store != nil {
		if err := s.store.Save(fresh); err != nil {
			s.logger.Warn("Failed to save refreshed token", zap.Error(err))
		}
	}

	return fresh.AccessToken, nil
}

// describeTokenError reduces an oauth2 retrieve failure to the endpoint's error envelope.
func describeTokenError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return err
	}
	switch {
	case re.ErrorCode != "" && re.ErrorDescription != "":
		return fmt.Errorf("%s: %s", re.ErrorCode, re.ErrorDescription)
	case re.ErrorCode != "":
		return errors.New(re.ErrorCode)
	case re.Response != nil:
		return fmt.Errorf("token endpoint returned %s", re.Response.Status)
	default:
		return err
	}
}
