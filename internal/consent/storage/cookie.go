package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"cookiegate/internal/consent/models"
	"cookiegate/internal/consent/store"
	"cookiegate/pkg/platform/sentinel"
)

const (
	// MaxCookieBytes is the browser ceiling for one serialized Set-Cookie
	// value, name and attributes included.
	MaxCookieBytes = 4096
	// CookieMaxAge is one year in seconds.
	CookieMaxAge = 31536000
)

// Jar reads and writes cookies for one browser profile.
type Jar interface {
	// Cookie returns the value of name or sentinel.ErrNotFound.
	Cookie(ctx context.Context, name string) (string, error)
	// SetCookie stores c; MaxAge < 0 deletes it.
	SetCookie(ctx context.Context, c *http.Cookie) error
}

// CookieTier stores the compact encoding in the consent cookie. The legacy
// cookie name is read as a fallback and cleared on every write.
type CookieTier struct {
	jar      Jar
	secure   bool
	maxBytes int
}

// NewCookieTier returns a cookie tier over jar.
func NewCookieTier(jar Jar, secure bool) *CookieTier {
	return &CookieTier{jar: jar, secure: secure, maxBytes: MaxCookieBytes}
}

func (t *CookieTier) Name() string { return TierCookie }

func (t *CookieTier) Read(ctx context.Context) (models.Record, error) {
	value, err := t.jar.Cookie(ctx, models.CookieName)
	if errors.Is(err, sentinel.ErrNotFound) {
		value, err = t.jar.Cookie(ctx, models.LegacyCookieName)
	}
	if err != nil {
		return models.Record{}, err
	}
	return models.DecodeCompact(value)
}

func (t *CookieTier) Write(ctx context.Context, record models.Record) error {
	value, err := models.EncodeCompact(record)
	if err != nil {
		return err
	}
	c := t.cookie(models.CookieName, value, CookieMaxAge)
	if size := len(c.String()); size > t.maxBytes {
		return fmt.Errorf("consent cookie is %d bytes, limit %d: %w", size, t.maxBytes, sentinel.ErrPayloadTooLarge)
	}
	if err := t.jar.SetCookie(ctx, c); err != nil {
		return fmt.Errorf("set consent cookie: %w", err)
	}
	return t.clearLegacy(ctx)
}

func (t *CookieTier) Delete(ctx context.Context) error {
	if err := t.jar.SetCookie(ctx, t.cookie(models.CookieName, "", -1)); err != nil {
		return fmt.Errorf("expire consent cookie: %w", err)
	}
	return t.clearLegacy(ctx)
}

func (t *CookieTier) clearLegacy(ctx context.Context) error {
	if _, err := t.jar.Cookie(ctx, models.LegacyCookieName); err != nil {
		return nil
	}
	if err := t.jar.SetCookie(ctx, t.cookie(models.LegacyCookieName, "", -1)); err != nil {
		return fmt.Errorf("expire legacy consent cookie: %w", err)
	}
	return nil
}

// The cookie is readable from scripts so the client-side gate can use it.
func (t *CookieTier) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   t.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// RequestJar serves one HTTP request: it reads inbound cookies and emits
// Set-Cookie headers. Writes made during the request are visible to later
// reads in the same request.
type RequestJar struct {
	mu      sync.Mutex
	r       *http.Request
	w       http.ResponseWriter
	pending map[string]*http.Cookie
}

// NewRequestJar binds a jar to one request/response pair.
func NewRequestJar(w http.ResponseWriter, r *http.Request) *RequestJar {
	return &RequestJar{r: r, w: w, pending: make(map[string]*http.Cookie)}
}

func (j *RequestJar) Cookie(_ context.Context, name string) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if c, ok := j.pending[name]; ok {
		if c.MaxAge < 0 {
			return "", sentinel.ErrNotFound
		}
		return c.Value, nil
	}
	c, err := j.r.Cookie(name)
	if err != nil {
		return "", sentinel.ErrNotFound
	}
	return c.Value, nil
}

// SetCookie replaces any Set-Cookie header already emitted for the same name
// and domain.
func (j *RequestJar) SetCookie(_ context.Context, c *http.Cookie) error {
	line := c.String()
	if line == "" {
		return fmt.Errorf("invalid cookie %q", c.Name)
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	header := j.w.Header()
	var kept []string
	for _, v := range header.Values("Set-Cookie") {
		if !sameCookie(v, c) {
			kept = append(kept, v)
		}
	}
	header.Del("Set-Cookie")
	for _, v := range kept {
		header.Add("Set-Cookie", v)
	}
	header.Add("Set-Cookie", line)

	if c.Domain == "" {
		cp := *c
		j.pending[c.Name] = &cp
	}
	return nil
}

func sameCookie(line string, c *http.Cookie) bool {
	if !strings.HasPrefix(line, c.Name+"=") {
		return false
	}
	existing, err := http.ParseSetCookie(line)
	if err != nil {
		return true
	}
	return strings.TrimPrefix(existing.Domain, ".") == strings.TrimPrefix(c.Domain, ".")
}

// StoreJar keeps cookies in a key-value store. Used by non-browser clients.
type StoreJar struct {
	kv store.KeyValue
}

const storeJarPrefix = "cookie:"

// NewStoreJar returns a jar persisting into kv.
func NewStoreJar(kv store.KeyValue) *StoreJar {
	return &StoreJar{kv: kv}
}

func (j *StoreJar) Cookie(ctx context.Context, name string) (string, error) {
	return j.kv.Get(ctx, storeJarPrefix+name)
}

func (j *StoreJar) SetCookie(ctx context.Context, c *http.Cookie) error {
	if c.MaxAge < 0 {
		return j.kv.Remove(ctx, storeJarPrefix+c.Name)
	}
	if c.String() == "" {
		return fmt.Errorf("invalid cookie %q", c.Name)
	}
	return j.kv.Set(ctx, storeJarPrefix+c.Name, c.Value)
}
