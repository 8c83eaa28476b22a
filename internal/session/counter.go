// Package session keeps the cookie-backed visit counter.
//
// A visit is counted once per rolling interval per browser. Two cookies carry
// the state: "count" holds the number of visits and "timecheck" the unix time
// after which the next request counts as a new visit. Nothing is stored on
// the server.
package session

import (
	"net/http"
	"strconv"
	"time"
)

const (
	CountCookie     = "count"
	TimecheckCookie = "timecheck"

	DefaultInterval = time.Hour
	DefaultMaxAge   = 365 * 24 * time.Hour
)

// State is the visitor's counter after a request has been seen.
type State struct {
	Count     int
	Timecheck time.Time

	// New is set when no valid count cookie was present.
	New bool
	// Incremented is set when this request started a new visit.
	Incremented bool
	// changed marks that the cookies need rewriting.
	changed bool
}

// Changed reports whether Advance produced a state that differs from what
// the browser sent.
func (s State) Changed() bool {
	return s.changed
}

type Counter struct {
	Interval time.Duration
	MaxAge   time.Duration
	Domain   string
	Secure   bool

	now func() time.Time
}

type Option func(*Counter)

func WithInterval(d time.Duration) Option {
	return func(c *Counter) {
		if d > 0 {
			c.Interval = d
		}
	}
}

func WithMaxAge(d time.Duration) Option {
	return func(c *Counter) {
		if d > 0 {
			c.MaxAge = d
		}
	}
}

func WithDomain(domain string) Option {
	return func(c *Counter) { c.Domain = domain }
}

func WithSecure(secure bool) Option {
	return func(c *Counter) { c.Secure = secure }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Counter) { c.now = now }
}

func NewCounter(opts ...Option) *Counter {
	c := &Counter{
		Interval: DefaultInterval,
		MaxAge:   DefaultMaxAge,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Read parses the counter cookies. ok is false when the count cookie is
// missing or unusable, which callers treat as a first visit. A missing or
// malformed timecheck leaves Timecheck zero.
func (c *Counter) Read(r *http.Request) (State, bool) {
	var s State

	cookie, err := r.Cookie(CountCookie)
	if err != nil {
		return s, false
	}
	count, err := strconv.Atoi(cookie.Value)
	if err != nil || count < 1 {
		return s, false
	}
	s.Count = count

	if cookie, err := r.Cookie(TimecheckCookie); err == nil {
		if ts, err := strconv.ParseInt(cookie.Value, 10, 64); err == nil && ts > 0 {
			s.Timecheck = time.Unix(ts, 0)
		}
	}

	return s, true
}

// Advance applies one request at now to the state read from the browser.
// A timecheck further ahead than one interval cannot have been issued by
// this counter and is reset like a missing one.
func (c *Counter) Advance(prev State, ok bool, now time.Time) State {
	next := now.Add(c.Interval)

	switch {
	case !ok:
		return State{Count: 1, Timecheck: next, New: true, changed: true}
	case prev.Timecheck.IsZero(), prev.Timecheck.After(next):
		return State{Count: prev.Count, Timecheck: next, changed: true}
	case !now.Before(prev.Timecheck):
		return State{Count: prev.Count + 1, Timecheck: next, Incremented: true, changed: true}
	default:
		return State{Count: prev.Count, Timecheck: prev.Timecheck}
	}
}

// Track reads the counter from r, advances it and writes the cookies back
// when they changed.
func (c *Counter) Track(w http.ResponseWriter, r *http.Request) State {
	prev, ok := c.Read(r)
	s := c.Advance(prev, ok, c.now())

	if s.changed {
		for _, cookie := range c.Cookies(s) {
			http.SetCookie(w, cookie)
		}
	}
	return s
}

// Cookies returns the count and timecheck cookies for s.
func (c *Counter) Cookies(s State) []*http.Cookie {
	maxAge := int(c.MaxAge / time.Second)
	return []*http.Cookie{
		c.cookie(CountCookie, strconv.Itoa(s.Count), maxAge),
		c.cookie(TimecheckCookie, strconv.FormatInt(s.Timecheck.Unix(), 10), maxAge),
	}
}

func (c *Counter) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   maxAge,
		Secure:   c.Secure,
		SameSite: SameSite(c.Secure),
	}
}

// SameSite returns None for secure cookies so cross-site embeds receive them,
// Lax otherwise.
func SameSite(secure bool) http.SameSite {
	if secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}
