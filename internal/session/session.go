// Package session derives the current user from the stored bearer token and
// owns the persisted token and theme.
//
// The token is decoded without verifying its signature. The resulting user
// id only decides what the client shows (for example the edit and delete
// actions on a post); the server re-checks every protected request.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/models"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/store"
)

// Fixed keys in the durable store.
const (
	KeyToken = "token"
	KeyTheme = "theme"
)

var ErrClosed = errors.New("session: closed")

// Decode reads the numeric subject of token. It never fails loudly: any
// malformed input reports ok == false, which callers treat as logged out.
func Decode(token string) (userID int64, ok bool) {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return 0, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0, false
	}
	return subject(claims["sub"])
}

func subject(v any) (int64, bool) {
	switch s := v.(type) {
	case string:
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	case float64:
		if s != math.Trunc(s) || math.IsInf(s, 0) || math.IsNaN(s) {
			return 0, false
		}
		// float64(math.MaxInt64) rounds up to 2^63, which is out of range
		if s >= math.MaxInt64 || s < math.MinInt64 {
			return 0, false
		}
		return int64(s), true
	case json.Number:
		id, err := s.Int64()
		return id, err == nil
	default:
		return 0, false
	}
}

// Context is the explicitly opened, explicitly closed holder of the session
// token and theme. All reads and writes of persisted state go through it.
type Context struct {
	mu     sync.RWMutex
	st     store.Store
	token  string
	userID int64
	authed bool
	theme  models.Theme
	closed bool
}

// Open loads the persisted token and theme from st.
func Open(st store.Store) (*Context, error) {
	tok, _, err := st.Get(KeyToken)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	theme, _, err := st.Get(KeyTheme)
	if err != nil {
		return nil, fmt.Errorf("load theme: %w", err)
	}
	c := &Context{st: st, theme: models.ParseTheme(theme)}
	c.setToken(tok)
	return c, nil
}

func (c *Context) setToken(tok string) {
	c.token = tok
	c.userID, c.authed = Decode(tok)
}

// Token returns the raw bearer token, empty when logged out.
func (c *Context) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// UserID returns the decoded subject. ok is false when there is no token or
// it could not be decoded.
func (c *Context) UserID() (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID, c.authed
}

// LoggedIn reports whether a token is present. A token whose subject cannot
// be decoded still authenticates requests; the server decides.
func (c *Context) LoggedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

func (c *Context) Theme() models.Theme {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.theme
}

// Login persists token and makes it current.
func (c *Context) Login(token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err := c.st.Set(KeyToken, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	c.setToken(token)
	return nil
}

// Logout removes the persisted token.
func (c *Context) Logout() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err := c.st.Delete(KeyToken); err != nil {
		return fmt.Errorf("remove token: %w", err)
	}
	c.setToken("")
	return nil
}

// ToggleTheme flips and persists the theme, returning the new value.
func (c *Context) ToggleTheme() (models.Theme, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return c.theme, ErrClosed
	}
	next := c.theme.Toggle()
	if err := c.st.Set(KeyTheme, string(next)); err != nil {
		return c.theme, fmt.Errorf("save theme: %w", err)
	}
	c.theme = next
	return next, nil
}

// Close releases the underlying store. Later mutations return ErrClosed.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.st.Close()
}
