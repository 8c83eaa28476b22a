package session_test

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/message-inserter/message-inserter/internal/session"
)

var start = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func requestWith(cookies ...*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/regions/popup", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func countCookie(n int) *http.Cookie {
	return &http.Cookie{Name: session.CountCookie, Value: strconv.Itoa(n)}
}

func timecheckCookie(t time.Time) *http.Cookie {
	return &http.Cookie{Name: session.TimecheckCookie, Value: strconv.FormatInt(t.Unix(), 10)}
}

func responseCookies(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := make(map[string]*http.Cookie)
	for _, c := range w.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestTrack_FirstVisitSetsCountOne(t *testing.T) {
	c := session.NewCounter(session.WithClock(func() time.Time { return start }))
	w := httptest.NewRecorder()

	s := c.Track(w, requestWith())

	assert.Equal(t, 1, s.Count)
	assert.True(t, s.New)
	assert.False(t, s.Incremented)
	assert.Equal(t, start.Add(time.Hour), s.Timecheck)

	cookies := responseCookies(w)
	require.Contains(t, cookies, session.CountCookie)
	require.Contains(t, cookies, session.TimecheckCookie)
	assert.Equal(t, "1", cookies[session.CountCookie].Value)
	assert.Equal(t, strconv.FormatInt(start.Add(time.Hour).Unix(), 10), cookies[session.TimecheckCookie].Value)
	assert.Equal(t, 365*24*60*60, cookies[session.CountCookie].MaxAge)
}

func TestTrack_SameHourDoesNotIncrement(t *testing.T) {
	c := session.NewCounter(session.WithClock(func() time.Time { return start.Add(20 * time.Minute) }))
	w := httptest.NewRecorder()

	s := c.Track(w, requestWith(countCookie(4), timecheckCookie(start.Add(time.Hour))))

	assert.Equal(t, 4, s.Count)
	assert.False(t, s.Incremented)
	assert.False(t, s.Changed())
	assert.Empty(t, w.Result().Cookies(), "unchanged state should not rewrite cookies")
}

func TestTrack_AfterTimecheckIncrements(t *testing.T) {
	now := start.Add(61 * time.Minute)
	c := session.NewCounter(session.WithClock(func() time.Time { return now }))
	w := httptest.NewRecorder()

	s := c.Track(w, requestWith(countCookie(4), timecheckCookie(start.Add(time.Hour))))

	assert.Equal(t, 5, s.Count)
	assert.True(t, s.Incremented)
	assert.Equal(t, now.Add(time.Hour), s.Timecheck)
	assert.True(t, s.Timecheck.After(now))

	cookies := responseCookies(w)
	assert.Equal(t, "5", cookies[session.CountCookie].Value)
}

func TestTrack_ExactlyAtTimecheckIncrements(t *testing.T) {
	check := start.Add(time.Hour)
	c := session.NewCounter(session.WithClock(func() time.Time { return check }))

	s := c.Track(httptest.NewRecorder(), requestWith(countCookie(1), timecheckCookie(check)))

	assert.Equal(t, 2, s.Count)
}

func TestAdvance_AtMostOncePerInterval(t *testing.T) {
	c := session.NewCounter()

	s, ok := session.State{}, false
	now := start
	increments := 0
	// One request every 10 minutes for five hours.
	for i := 0; i < 30; i++ {
		s = c.Advance(s, ok, now)
		ok = true
		if s.Incremented {
			increments++
		}
		assert.True(t, s.Timecheck.After(now), "timecheck must stay in the future")
		now = now.Add(10 * time.Minute)
	}

	assert.Equal(t, 4, increments)
	assert.Equal(t, 5, s.Count)
}

func TestRead_InvalidCountIsFirstVisit(t *testing.T) {
	c := session.NewCounter()

	for _, value := range []string{"", "abc", "0", "-3", "1.5"} {
		_, ok := c.Read(requestWith(&http.Cookie{Name: session.CountCookie, Value: value}))
		assert.False(t, ok, "count %q should be rejected", value)
	}
}

func TestTrack_MissingTimecheckKeepsCount(t *testing.T) {
	c := session.NewCounter(session.WithClock(func() time.Time { return start }))
	w := httptest.NewRecorder()

	s := c.Track(w, requestWith(countCookie(7), &http.Cookie{Name: session.TimecheckCookie, Value: "soon"}))

	assert.Equal(t, 7, s.Count)
	assert.False(t, s.Incremented)
	assert.Equal(t, start.Add(time.Hour), s.Timecheck)
	assert.Equal(t, "7", responseCookies(w)[session.CountCookie].Value)
}

func TestTrack_FarFutureTimecheckIsReset(t *testing.T) {
	now := start
	c := session.NewCounter(session.WithClock(func() time.Time { return now }))

	w := httptest.NewRecorder()
	s := c.Track(w, requestWith(countCookie(3), timecheckCookie(time.Unix(9999999999, 0))))

	assert.Equal(t, 3, s.Count)
	assert.False(t, s.Incremented)
	assert.Equal(t, start.Add(time.Hour), s.Timecheck)
	cookies := responseCookies(w)
	require.Contains(t, cookies, session.TimecheckCookie)
	assert.Equal(t, strconv.FormatInt(start.Add(time.Hour).Unix(), 10), cookies[session.TimecheckCookie].Value)

	now = start.Add(time.Hour)
	w = httptest.NewRecorder()
	s = c.Track(w, requestWith(countCookie(3), cookies[session.TimecheckCookie]))

	assert.Equal(t, 4, s.Count)
	assert.True(t, s.Incremented)
}

func TestAdvance_TimecheckWithinOneIntervalIsKept(t *testing.T) {
	c := session.NewCounter()
	tc := start.Add(time.Hour)

	s := c.Advance(session.State{Count: 2, Timecheck: tc}, true, start)

	assert.Equal(t, 2, s.Count)
	assert.Equal(t, tc, s.Timecheck)
	assert.False(t, s.Changed())
}

func TestCounter_Options(t *testing.T) {
	c := session.NewCounter(
		session.WithInterval(30*time.Minute),
		session.WithMaxAge(30*24*time.Hour),
		session.WithDomain("example.com"),
		session.WithSecure(true),
		session.WithInterval(0), // ignored
	)

	s := c.Advance(session.State{}, false, start)
	assert.Equal(t, start.Add(30*time.Minute), s.Timecheck)

	cookies := c.Cookies(s)
	require.Len(t, cookies, 2)
	for _, cookie := range cookies {
		assert.Equal(t, 30*24*60*60, cookie.MaxAge)
		assert.Equal(t, "example.com", cookie.Domain)
		assert.True(t, cookie.Secure)
		assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
		assert.Equal(t, "/", cookie.Path)
	}
}
