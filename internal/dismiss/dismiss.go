// Package dismiss tracks per-message "closed" and "shown" flags in cookies.
package dismiss

import (
	"net/http"
	"strconv"
	"time"

	"github.com/message-inserter/message-inserter/internal/session"
)

const (
	closedPrefix = "sm-closed-"
	shownPrefix  = "sm-shown-"
)

// Expiry converts a configured days + hours pair into a duration. Zero means
// the flag lives for the browser session only.
func Expiry(days, hours int) time.Duration {
	if days < 0 {
		days = 0
	}
	if hours < 0 {
		hours = 0
	}
	return time.Duration(days)*24*time.Hour + time.Duration(hours)*time.Hour
}

func ClosedCookieName(id int64) string {
	return closedPrefix + strconv.FormatInt(id, 10)
}

func ShownCookieName(id int64) string {
	return shownPrefix + strconv.FormatInt(id, 10)
}

type Tracker struct {
	Domain string
	Secure bool
}

// Dismiss suppresses message id for the configured expiry.
func (t Tracker) Dismiss(w http.ResponseWriter, id int64, days, hours int, now time.Time) {
	cookie := t.cookie(ClosedCookieName(id))
	if d := Expiry(days, hours); d > 0 {
		cookie.Expires = now.Add(d)
		cookie.MaxAge = int(d / time.Second)
	}
	http.SetCookie(w, cookie)
}

// MarkShown records that message id was displayed during this browser
// session.
func (t Tracker) MarkShown(w http.ResponseWriter, id int64) {
	http.SetCookie(w, t.cookie(ShownCookieName(id)))
}

func (t Tracker) cookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "true",
		Path:     "/",
		Domain:   t.Domain,
		Secure:   t.Secure,
		SameSite: session.SameSite(t.Secure),
	}
}

func Closed(r *http.Request, id int64) bool {
	return flag(r, ClosedCookieName(id))
}

func Shown(r *http.Request, id int64) bool {
	return flag(r, ShownCookieName(id))
}

func flag(r *http.Request, name string) bool {
	c, err := r.Cookie(name)
	return err == nil && c.Value == "true"
}
