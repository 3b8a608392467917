package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grumblr/internal/config"
	"grumblr/internal/db/dbtest"
	"grumblr/internal/feed"
	"grumblr/internal/models"
	"grumblr/internal/realtime"
	"grumblr/internal/render"
	"grumblr/internal/router"
	"grumblr/internal/store"
	"grumblr/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeMailer struct {
	mu    sync.Mutex
	links map[string]string
}

func (m *fakeMailer) SendVerificationEmail(email, username, link string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[username] = link
}

func (m *fakeMailer) link(username string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links[username]
}

type fixedCaptcha struct{}

func (fixedCaptcha) GenerateMathProblem() (string, int) { return "1 + 1", 2 }

// listener records everything the hub pushes to it
type listener struct {
	mu  sync.Mutex
	got [][]byte
}

func (l *listener) ID() string { return "test-listener" }

func (l *listener) Send(payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.got = append(l.got, append([]byte(nil), payload...))
	return nil
}

func (l *listener) Close() {}

func (l *listener) events(t *testing.T) []realtime.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]realtime.Event, 0, len(l.got))
	for _, p := range l.got {
		var ev realtime.Event
		require.NoError(t, json.Unmarshal(p, &ev))
		out = append(out, ev)
	}
	return out
}

type testApp struct {
	engine   *gin.Engine
	store    *store.Store
	hub      *realtime.Hub
	clock    *fakeClock
	mailer   *fakeMailer
	listener *listener
}

func newApp(t *testing.T, pageSize int, opts ...func(*config.Config)) *testApp {
	t.Helper()

	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	st := store.New(dbtest.New(t)).WithClock(clock.Now)
	renderer, err := render.New()
	require.NoError(t, err)

	cfg := &config.Config{
		Env:    "development",
		Server: config.ServerConfig{SessionSecret: "test-secret", SiteURL: "http://grumblr.test"},
		Stream: config.StreamConfig{
			PageSize:     pageSize,
			SendBuffer:   8,
			WriteTimeout: time.Second,
			PongWait:     2 * time.Second,
			PingPeriod:   time.Second,
			ReadLimit:    4 << 10,
		},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	hub := realtime.NewHub(zerolog.Nop())
	t.Cleanup(hub.Close)
	lst := &listener{}
	require.True(t, hub.Join(realtime.GlobalStream, lst))

	mailer := &fakeMailer{links: map[string]string{}}
	engine, err := router.NewEngine(router.Deps{
		Config:   cfg,
		Log:      zerolog.Nop(),
		Store:    st,
		Feed:     feed.NewService(st, pageSize, zerolog.Nop()),
		Renderer: renderer,
		Hub:      hub,
		Mailer:   mailer,
		Captcha:  fixedCaptcha{},
	})
	require.NoError(t, err)

	return &testApp{engine: engine, store: st, hub: hub, clock: clock, mailer: mailer, listener: lst}
}

func (a *testApp) do(method, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *testApp) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword("password1")
	require.NoError(t, err)
	user := &models.User{
		Username:  username,
		FirstName: strings.ToUpper(username[:1]) + username[1:],
		LastName:  "Test",
		Email:     username + "@example.com",
		Password:  hash,
		IsActive:  true,
		Profile:   models.DefaultProfile("🐸"),
	}
	require.NoError(t, a.store.CreateUser(context.Background(), user))
	return user
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "grumblr_session" {
			return c
		}
	}
	t.Fatalf("no session cookie in response (status %d)", w.Code)
	return nil
}

func (a *testApp) login(t *testing.T, username string) *http.Cookie {
	t.Helper()
	w := a.do("POST", "/auth/login", url.Values{"username": {username}, "password": {"password1"}}, nil)
	require.Equal(t, http.StatusFound, w.Code)
	return sessionCookie(t, w)
}

func (a *testApp) post(t *testing.T, cookie *http.Cookie, body string) {
	t.Helper()
	a.clock.Advance(time.Second)
	w := a.do("POST", "/api/post-message", url.Values{"message": {body}}, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

type cardJSON struct {
	ID     uint   `json:"id"`
	Author string `json:"author"`
	HTML   string `json:"html"`
}

type pageJSON struct {
	Messages    []cardJSON `json:"messages"`
	Comments    []cardJSON `json:"comments"`
	LastUpdated string     `json:"last_updated"`
	LastID      uint       `json:"last_id"`
}

func (a *testApp) getPage(t *testing.T, path string, cookie *http.Cookie) pageJSON {
	t.Helper()
	w := a.do("GET", path, nil, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var page pageJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	return page
}

func nextPath(base string, page pageJSON) string {
	return base + "/" + url.PathEscape(page.LastUpdated) + "?after_id=" + utils.UintToString(page.LastID)
}

func TestPostMessageTooLongIsRejected(t *testing.T) {
	app := newApp(t, 20)
	alice := app.createUser(t, "alice")
	cookie := app.login(t, "alice")

	for _, body := range []string{strings.Repeat("a", 43), "   ", ""} {
		w := app.do("POST", "/api/post-message", url.Values{"message": {body}}, cookie)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"message"`)
	}

	n, err := app.store.CountMessages(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, app.listener.events(t))
}

func TestPostMessageRejectsInvalidUTF8(t *testing.T) {
	app := newApp(t, 20)
	alice := app.createUser(t, "alice")
	cookie := app.login(t, "alice")

	w := app.do("POST", "/api/post-message", url.Values{"message": {"bad \xff\xfe bytes"}}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "UTF-8")

	n, err := app.store.CountMessages(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, app.listener.events(t))
}

func TestPostMessageAcceptsExactlyMaxLength(t *testing.T) {
	app := newApp(t, 20)
	app.createUser(t, "alice")
	cookie := app.login(t, "alice")

	app.post(t, cookie, strings.Repeat("ü", models.MaxMessageLength))
	assert.Len(t, app.listener.events(t), 1)
}

func TestPostMessageRequiresLogin(t *testing.T) {
	app := newApp(t, 20)
	w := app.do("POST", "/api/post-message", url.Values{"message": {"hi"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, app.listener.events(t))
}

func TestPostMessageBroadcastsOnceAndMatchesCatchUp(t *testing.T) {
	app := newApp(t, 20)
	app.createUser(t, "alice")
	cookie := app.login(t, "alice")

	app.post(t, cookie, "  the coffee is **cold**  ")

	events := app.listener.events(t)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, realtime.EventMessage, ev.Type)
	assert.Equal(t, "alice", ev.Author)
	assert.Contains(t, ev.HTML, "<strong>cold</strong>")

	page := app.getPage(t, "/api/get-messages/global", cookie)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, ev.ID, page.Messages[0].ID)
	assert.Equal(t, ev.HTML, page.Messages[0].HTML)
	assert.Equal(t, ev.ID, page.LastID)
}

func TestGetMessagesPagesThroughIdenticalTimestamps(t *testing.T) {
	app := newApp(t, 2)
	app.createUser(t, "alice")
	cookie := app.login(t, "alice")

	// 时钟不动，三条消息时间戳完全相同
	for _, body := range []string{"one", "two", "three"} {
		w := app.do("POST", "/api/post-message", url.Values{"message": {body}}, cookie)
		require.Equal(t, http.StatusOK, w.Code)
	}

	first := app.getPage(t, "/api/get-messages/global", nil)
	require.Len(t, first.Messages, 2)
	assert.Equal(t, first.Messages[1].ID, first.LastID)

	second := app.getPage(t, nextPath("/api/get-messages/global", first), nil)
	require.Len(t, second.Messages, 1)
	assert.Greater(t, second.Messages[0].ID, first.LastID)
	assert.Equal(t, first.LastUpdated, second.LastUpdated)

	empty := app.getPage(t, nextPath("/api/get-messages/global", second), nil)
	assert.Empty(t, empty.Messages)
	assert.Equal(t, second.LastUpdated, empty.LastUpdated)
	assert.Equal(t, second.LastID, empty.LastID)
}

func TestGetMessagesCursorWithoutIDIsStrict(t *testing.T) {
	app := newApp(t, 20)
	app.createUser(t, "alice")
	cookie := app.login(t, "alice")
	app.post(t, cookie, "old")

	first := app.getPage(t, "/api/get-messages/global", nil)
	require.Len(t, first.Messages, 1)

	app.post(t, cookie, "new")
	next := app.getPage(t, "/api/get-messages/global/"+url.PathEscape(first.LastUpdated), nil)
	require.Len(t, next.Messages, 1)
	assert.Contains(t, next.Messages[0].HTML, "new")
}

func TestGetMessagesBadTimestampStartsFromEpoch(t *testing.T) {
	app := newApp(t, 20)
	app.createUser(t, "alice")
	cookie := app.login(t, "alice")
	app.post(t, cookie, "hello")

	page := app.getPage(t, "/api/get-messages/global/not-a-time?after_id=99", nil)
	assert.Len(t, page.Messages, 1)
}

func TestFollowerView(t *testing.T) {
	app := newApp(t, 20)
	app.createUser(t, "alice")
	app.createUser(t, "bob")
	app.createUser(t, "carol")
	alice := app.login(t, "alice")
	bob := app.login(t, "bob")
	carol := app.login(t, "carol")

	w := app.do("GET", "/api/get-messages/follower", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	empty := app.getPage(t, "/api/get-messages/follower", alice)
	assert.Empty(t, empty.Messages)
	assert.Equal(t, feed.FormatTime(feed.Epoch), empty.LastUpdated)

	w = app.do("POST", "/profile/bob/follow", url.Values{}, alice)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/profile/bob", w.Header().Get("Location"))

	app.post(t, bob, "from bob")
	app.post(t, carol, "from carol")

	page := app.getPage(t, "/api/get-messages/follower", alice)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "bob", page.Messages[0].Author)

	w = app.do("POST", "/profile/bob/unfollow", url.Values{}, alice)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Empty(t, app.getPage(t, "/api/get-messages/follower", alice).Messages)
}

func TestProfileView(t *testing.T) {
	app := newApp(t, 20)
	app.createUser(t, "alice")
	app.createUser(t, "bob")
	alice := app.login(t, "alice")
	bob := app.login(t, "bob")

	app.post(t, alice, "mine")
	app.post(t, bob, "theirs")

	page := app.getPage(t, "/api/get-messages/profile/bob", nil)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "bob", page.Messages[0].Author)

	next := app.getPage(t, "/api/get-messages/profile/bob/"+url.PathEscape(page.LastUpdated)+"?after_id="+utils.UintToString(page.LastID), nil)
	assert.Empty(t, next.Messages)

	assert.Equal(t, http.StatusNotFound, app.do("GET", "/api/get-messages/profile/nobody", nil, nil).Code)
}

func TestUnknownViewIsNotFound(t *testing.T) {
	app := newApp(t, 20)
	assert.Equal(t, http.StatusNotFound, app.do("GET", "/api/get-messages/trending", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do("GET", "/api/get-messages/global/x/y", nil, nil).Code)
}

func TestComments(t *testing.T) {
	app := newApp(t, 20)
	app.createUser(t, "alice")
	app.createUser(t, "bob")
	alice := app.login(t, "alice")
	bob := app.login(t, "bob")

	app.post(t, alice, "who took my stapler")
	msgID := app.listener.events(t)[0].ID

	w := app.do("POST", "/api/post-comment/999", url.Values{"content": {"me"}}, bob)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do("POST", "/api/post-comment/"+utils.UintToString(msgID), url.Values{"content": {strings.Repeat("x", 43)}}, bob)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = app.do("POST", "/api/post-comment/"+utils.UintToString(msgID), url.Values{"content": {"\xc3\x28"}}, bob)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, app.listener.events(t), 1)

	app.clock.Advance(time.Second)
	w = app.do("POST", "/api/post-comment/"+utils.UintToString(msgID), url.Values{"content": {"it was @alice"}}, bob)
	require.Equal(t, http.StatusOK, w.Code)

	events := app.listener.events(t)
	require.Len(t, events, 2)
	ev := events[1]
	assert.Equal(t, realtime.EventComment, ev.Type)
	assert.Equal(t, msgID, ev.MessageID)
	assert.Contains(t, ev.HTML, `href="/profile/alice"`)

	page := app.getPage(t, "/api/get-comments/"+utils.UintToString(msgID), nil)
	require.Len(t, page.Comments, 1)
	assert.Equal(t, ev.HTML, page.Comments[0].HTML)

	next := app.getPage(t, nextPath("/api/get-comments/"+utils.UintToString(msgID), page), nil)
	assert.Empty(t, next.Comments)

	assert.Equal(t, http.StatusNotFound, app.do("GET", "/api/get-comments/999", nil, nil).Code)
}

func TestRegisterVerifyLogin(t *testing.T) {
	app := newApp(t, 20)

	w := app.do("GET", "/register", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	// html/template 会把 + 转义成 &#43;
	assert.Contains(t, w.Body.String(), "What is 1 &#43; 1?")
	cookie := sessionCookie(t, w)

	form := url.Values{
		"first_name":       {"Carol"},
		"last_name":        {"Grumbles"},
		"email":            {"carol@example.com"},
		"username":         {"carol"},
		"password":         {"password1"},
		"password_confirm": {"password1"},
		"captcha":          {"2"},
	}
	w = app.do("POST", "/register", form, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	user, err := app.store.UserByUsername(context.Background(), "carol")
	require.NoError(t, err)
	assert.False(t, user.IsActive)
	assert.Equal(t, "I love grumblr!", user.Profile.Signature)
	assert.True(t, utils.IsValidAvatar(user.Profile.Avatar))

	w = app.do("POST", "/auth/login", url.Values{"username": {"carol"}, "password": {"password1"}}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	link := app.mailer.link("carol")
	require.True(t, strings.HasPrefix(link, "http://grumblr.test/auth/user_verify?"), link)
	u, err := url.Parse(link)
	require.NoError(t, err)

	w = app.do("GET", "/auth/user_verify?username=carol&token=wrong", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do("GET", u.RequestURI(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do("POST", "/auth/login", url.Values{"username": {"carol"}, "password": {"password1"}, "next": {"/following"}}, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/following", w.Header().Get("Location"))

	w = app.do("GET", "/following", nil, sessionCookie(t, w))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterRejectsWrongCaptchaAndDuplicates(t *testing.T) {
	app := newApp(t, 20)
	app.createUser(t, "alice")

	form := url.Values{
		"first_name":       {"Alice"},
		"last_name":        {"Again"},
		"email":            {"alice2@example.com"},
		"username":         {"alice"},
		"password":         {"password1"},
		"password_confirm": {"password1"},
	}

	cookie := sessionCookie(t, app.do("GET", "/register", nil, nil))
	form.Set("captcha", "3")
	w := app.do("POST", "/register", form, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	cookie = sessionCookie(t, app.do("GET", "/register", nil, nil))
	form.Set("captcha", "2")
	w = app.do("POST", "/register", form, cookie)
	assert.Equal(t, http.StatusConflict, w.Code)

	cookie = sessionCookie(t, app.do("GET", "/register", nil, nil))
	form.Set("username", "alice2")
	form.Set("password_confirm", "different")
	w = app.do("POST", "/register", form, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	_, err := app.store.UserByUsername(context.Background(), "alice2")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLoginFailures(t *testing.T) {
	app := newApp(t, 20)
	app.createUser(t, "alice")

	w := app.do("POST", "/auth/login", url.Values{"username": {"alice"}, "password": {"nope"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do("POST", "/auth/login", url.Values{"username": {"alice"}, "password": {"password1"}, "next": {"//evil.example.com"}}, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestPagesRequireLogin(t *testing.T) {
	app := newApp(t, 20)
	app.createUser(t, "alice")

	w := app.do("GET", "/", nil, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login?next=%2F", w.Header().Get("Location"))

	cookie := app.login(t, "alice")
	w = app.do("GET", "/", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `id="post-form"`)

	w = app.do("GET", "/auth/logout", nil, cookie)
	require.Equal(t, http.StatusFound, w.Code)
	w = app.do("GET", "/", nil, sessionCookie(t, w))
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestProfilePages(t *testing.T) {
	app := newApp(t, 20)
	app.createUser(t, "alice")
	app.createUser(t, "bob")
	alice := app.login(t, "alice")

	w := app.do("GET", "/profile/", nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/profile/edit"`)

	w = app.do("GET", "/profile/bob", nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/profile/bob/follow"`)

	w = app.do("GET", "/profile/bob", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusNotFound, app.do("GET", "/profile/nobody", nil, alice).Code)
	assert.Equal(t, http.StatusBadRequest, app.do("POST", "/profile/alice/follow", url.Values{}, alice).Code)
}

func TestProfileEditAndPassword(t *testing.T) {
	app := newApp(t, 20)
	alice := app.createUser(t, "alice")
	cookie := app.login(t, "alice")

	w := app.do("POST", "/profile/edit", url.Values{"hometown": {"Paris"}, "avatar": {"not-an-emoji"}}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	avatar := utils.GetCommonEmojis()[0]
	w = app.do("POST", "/profile/edit", url.Values{"hometown": {"Paris"}, "avatar": {avatar}, "age": {"33"}}, cookie)
	require.Equal(t, http.StatusFound, w.Code)

	user, err := app.store.UserByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Paris", user.Profile.Hometown)
	assert.Equal(t, avatar, user.Profile.Avatar)
	assert.Equal(t, 33, user.Profile.Age)
	assert.Equal(t, "Grumbling!", user.Profile.Hobby)

	w = app.do("POST", "/profile/password", url.Values{"password": {"newpass1"}, "password_confirm": {"newpass2"}}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do("POST", "/profile/password", url.Values{"password": {"newpass1"}, "password_confirm": {"newpass1"}}, cookie)
	require.Equal(t, http.StatusFound, w.Code)

	w = app.do("POST", "/auth/login", url.Values{"username": {"alice"}, "password": {"newpass1"}}, nil)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestHealth(t *testing.T) {
	app := newApp(t, 20)
	w := app.do("GET", "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestFeeds(t *testing.T) {
	app := newApp(t, 20)
	app.createUser(t, "alice")
	app.createUser(t, "bob")
	alice := app.login(t, "alice")
	bob := app.login(t, "bob")

	app.post(t, alice, "older <grumble>")
	app.post(t, bob, "newer")

	w := app.do("GET", "/feed.xml", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/rss+xml; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "@alice: older &lt;grumble&gt;")
	assert.Less(t, strings.Index(body, "@bob: newer"), strings.Index(body, "@alice: older"))

	w = app.do("GET", "/profile/bob/feed.xml", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "@bob: newer")
	assert.NotContains(t, w.Body.String(), "@alice")

	assert.Equal(t, http.StatusNotFound, app.do("GET", "/profile/nobody/feed.xml", nil, nil).Code)

	w = app.do("GET", "/robots.txt", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Disallow: /api/")
}

func TestStreamScriptRetriesEventsDuringFetch(t *testing.T) {
	app := newApp(t, 20)
	w := app.do("GET", "/static/js/stream.js", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "pending = true;")
	assert.Contains(t, body, "if (pending) catchUp();")
}
