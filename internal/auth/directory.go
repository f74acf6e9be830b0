package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"golang.org/x/text/cases"
)

var (
	// ErrInvalidCredentials indicates a sign-in attempt with an unknown user or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidUser is returned when adding a user without a name or password.
	ErrInvalidUser = errors.New("username and password are required")
)

// User is an entry in the directory.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}

// Credentials describes a user to seed. PasswordHash, when set, takes
// precedence over Password and must be an Argon2id hash from HashPassword.
type Credentials struct {
	Username     string `json:"username"`
	Password     string `json:"password,omitempty"`
	PasswordHash string `json:"password_hash,omitempty"`
}

// DefaultUsers returns the demo accounts.
func DefaultUsers() []Credentials {
	return []Credentials{
		{Username: "marcus", Password: "pw"},
		{Username: "josh", Password: "pw"},
		{Username: "tiffany", Password: "pw"},
	}
}

// Directory is an in-memory, concurrency-safe user store.
type Directory struct {
	mu     sync.RWMutex
	users  map[string]*User
	logger *slog.Logger
}

// NewDirectory creates a directory seeded with creds.
func NewDirectory(creds []Credentials) (*Directory, error) {
	d := &Directory{
		users:  make(map[string]*User),
		logger: slog.Default().With("component", "user_directory"),
	}
	if err := d.Replace(creds); err != nil {
		return nil, err
	}
	return d, nil
}

func foldKey(username string) string {
	return cases.Fold().String(strings.TrimSpace(username))
}

func buildUser(c Credentials) (*User, error) {
	name := strings.TrimSpace(c.Username)
	if name == "" || (c.Password == "" && c.PasswordHash == "") {
		return nil, ErrInvalidUser
	}

	hash := c.PasswordHash
	if hash == "" {
		var err error
		if hash, err = HashPassword(c.Password); err != nil {
			return nil, err
		}
	} else if err := ValidateHash(hash); err != nil {
		return nil, err
	}
	return &User{Username: name, PasswordHash: hash}, nil
}

// Replace swaps the directory content for creds atomically. On error the
// previous content is kept.
func (d *Directory) Replace(creds []Credentials) error {
	next := make(map[string]*User, len(creds))
	for _, c := range creds {
		u, err := buildUser(c)
		if err != nil {
			return fmt.Errorf("user %q: %w", c.Username, err)
		}
		next[foldKey(u.Username)] = u
	}

	d.mu.Lock()
	d.users = next
	d.mu.Unlock()

	d.logger.Info("User directory loaded", "user_count", len(next))
	return nil
}

// Add inserts or replaces a single user.
func (d *Directory) Add(c Credentials) error {
	u, err := buildUser(c)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.users[foldKey(u.Username)] = u
	d.mu.Unlock()
	return nil
}

// Lookup finds a user by name, ignoring case.
func (d *Directory) Lookup(username string) (*User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[foldKey(username)]
	return u, ok
}

// Usernames returns all user names, sorted.
func (d *Directory) Usernames() []string {
	d.mu.RLock()
	names := make([]string, 0, len(d.users))
	for _, u := range d.users {
		names = append(names, u.Username)
	}
	d.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Authenticate verifies a username and password pair.
func (d *Directory) Authenticate(ctx context.Context, username, password string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u, ok := d.Lookup(username)
	if !ok {
		return nil, ErrInvalidCredentials
	}

	match, err := ComparePassword(password, u.PasswordHash)
	if err != nil {
		d.logger.Error("Stored password hash is unreadable", "username", u.Username, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !match {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// LoadFile replaces the directory content with the JSON array at path.
func (d *Directory) LoadFile(fs afero.Fs, path string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("failed to read users file: %w", err)
	}

	var creds []Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return fmt.Errorf("failed to parse users file %s: %w", path, err)
	}
	if len(creds) == 0 {
		return fmt.Errorf("users file %s has no users", path)
	}
	return d.Replace(creds)
}
