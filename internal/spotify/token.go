package spotify

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/oauth2"
)

const (
	// FilePermission is the permission for token files
	FilePermission = 0600
	// DirPermission is the permission for the token directory
	DirPermission = 0700
)

// ErrNoToken is returned by TokenStore.Load when no token has been saved yet.
var ErrNoToken = errors.New("no saved token")

// TokenData is the on-disk layout of a stored user token.
type TokenData struct {
	Token *oauth2.Token `json:"token"`
}

// TokenStore persists the user token pair as JSON.
type TokenStore struct {
	fs   afero.Fs
	path string
}

func NewTokenStore(fs afero.Fs, path string) *TokenStore {
	return &TokenStore{fs: fs, path: path}
}

func (s *TokenStore) Path() string {
	return s.path
}

func (s *TokenStore) Load() (*oauth2.Token, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}

	var tokenData TokenData
	if err := json.Unmarshal(data, &tokenData); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	if tokenData.Token == nil {
		return nil, ErrNoToken
	}

	return tokenData.Token, nil
}

func (s *TokenStore) Save(token *oauth2.Token) error {
	data, err := json.MarshalIndent(TokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), DirPermission); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}

	return afero.WriteFile(s.fs, s.path, data, FilePermission)
}
