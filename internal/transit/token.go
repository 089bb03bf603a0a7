package transit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"commutewatch/internal/types"
)

// cachedToken is the on-disk token cache format. Tokens are issued per
// calendar day, so the expiry is the upcoming local midnight.
type cachedToken struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// TokenSource fetches and caches a daily NJ Transit API token. The token is
// obtained by posting the account credentials as a multipart form; a copy is
// written to disk so restarts within the same day reuse it. Safe for
// concurrent use.
type TokenSource struct {
	doer     Doer
	authURL  string
	username types.SecretString
	password types.SecretString
	path     string
	clock    types.Clock
	logger   types.Logger

	mu      sync.Mutex
	current cachedToken
}

// TokenSourceConfig holds the configuration for creating a TokenSource.
type TokenSourceConfig struct {
	Doer      Doer
	AuthURL   string // full endpoint, e.g. <base>/api/TrainData/getToken
	Username  types.SecretString
	Password  types.SecretString
	CacheDir  string
	CacheFile string // file name within CacheDir, e.g. "rail_token.json"
	Clock     types.Clock
	Logger    types.Logger
}

// NewTokenSource creates a TokenSource with the given configuration.
func NewTokenSource(cfg TokenSourceConfig) *TokenSource {
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &TokenSource{
		doer:     cfg.Doer,
		authURL:  cfg.AuthURL,
		username: cfg.Username,
		password: cfg.Password,
		path:     filepath.Join(cfg.CacheDir, cfg.CacheFile),
		clock:    clock,
		logger:   logger,
	}
}

// Token returns a valid token, in order of preference: the in-memory copy,
// the on-disk cache, or a fresh fetch from the provider.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if s.current.Token != "" && now.Before(s.current.Expires) {
		return s.current.Token, nil
	}

	if tok, ok := s.loadFile(now); ok {
		s.current = tok
		return tok.Token, nil
	}

	tok, err := s.fetch(ctx, now)
	if err != nil {
		return "", err
	}
	s.current = tok
	s.storeFile(tok)
	return tok.Token, nil
}

// Invalidate drops the cached token so the next Token call fetches a fresh
// one. Called when the provider rejects a token before its expected expiry.
func (s *TokenSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = cachedToken{}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove stale token cache", "path", s.path, "error", err)
	}
}

func (s *TokenSource) loadFile(now time.Time) (cachedToken, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return cachedToken{}, false
	}
	var tok cachedToken
	if err := json.Unmarshal(data, &tok); err != nil {
		s.logger.Warn("unreadable token cache, refetching", "path", s.path, "error", err)
		return cachedToken{}, false
	}
	if tok.Token == "" || !now.Before(tok.Expires) {
		return cachedToken{}, false
	}
	s.logger.Debug("loaded provider token from cache", "path", s.path)
	return tok, true
}

func (s *TokenSource) storeFile(tok cachedToken) {
	data, err := json.Marshal(tok)
	if err != nil {
		return
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		s.logger.Warn("failed to persist token cache", "path", s.path, "error", err)
	}
}

// fetch posts the credentials and caches the returned token until the next
// local midnight, which is when the provider rotates tokens.
func (s *TokenSource) fetch(ctx context.Context, now time.Time) (cachedToken, error) {
	resp, err := postForm(ctx, s.doer, s.authURL, map[string]string{
		"username": s.username.Unmask(),
		"password": s.password.Unmask(),
	})
	if err != nil {
		return cachedToken{}, err
	}

	var payload struct {
		UserToken string `json:"UserToken"`
	}
	if err := decodeResponse(resp, &payload); err != nil {
		return cachedToken{}, err
	}
	if payload.UserToken == "" {
		return cachedToken{}, types.NewAppError(
			types.ErrCodeUpstreamAuth,
			"provider returned an empty token",
			nil,
		)
	}

	s.logger.Info("fetched provider token", "endpoint", s.authURL)
	return cachedToken{
		Token:   payload.UserToken,
		Expires: nextMidnight(now),
	}, nil
}

// nextMidnight returns the first instant of the next calendar day in t's
// location.
func nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
