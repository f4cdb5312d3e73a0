// Package credentials persists the signed-in user's tokens in a TOML file
// and watches that file for sign-in and sign-out by other processes.
package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Credentials is the content of the credentials file.
type Credentials struct {
	AccessToken  string    `toml:"access_token"`
	RefreshToken string    `toml:"refresh_token,omitempty"`
	UserID       string    `toml:"user_id"`
	Email        string    `toml:"email,omitempty"`
	ExpiresAt    time.Time `toml:"expires_at"`
}

// Expired reports whether the access token has a known expiry at or before now.
func (c Credentials) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// ActiveUserID returns the signed-in user, or "" when there is no usable token.
func (c Credentials) ActiveUserID(now time.Time) string {
	if c.AccessToken == "" || c.Expired(now) {
		return ""
	}
	return c.UserID
}

// Load reads the credentials file. A missing file is the signed-out state
// and returns zero Credentials.
func Load(path string) (Credentials, error) {
	var c Credentials
	if _, err := toml.DecodeFile(path, &c); err != nil {
		if os.IsNotExist(err) {
			return Credentials{}, nil
		}
		return Credentials{}, fmt.Errorf("read credentials %s: %w", path, err)
	}
	return c, nil
}

// Save writes c to path with owner-only permissions. The file is replaced
// with a rename so watchers never observe a partial write.
func Save(path string, c Credentials) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	f, err := os.CreateTemp(dir, ".credentials-*.toml")
	if err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := f.Chmod(0o600); err != nil {
		f.Close()
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// Clear removes the credentials file. Clearing an absent file is not an error.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// TokenSource returns a func that reads the current access token from path
// on every call, so a sign-in from another process takes effect immediately.
// Unreadable or expired credentials yield "".
func TokenSource(path string, now func() time.Time) func() string {
	if now == nil {
		now = time.Now
	}
	return func() string {
		c, err := Load(path)
		if err != nil || c.Expired(now()) {
			return ""
		}
		return c.AccessToken
	}
}
