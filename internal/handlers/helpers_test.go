package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/noteshelf/noteshelf/config"
	"github.com/noteshelf/noteshelf/internal/services"
	"github.com/noteshelf/noteshelf/internal/session"
	"github.com/noteshelf/noteshelf/internal/store"
	"github.com/noteshelf/noteshelf/types"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memoryDB struct {
	mu     sync.Mutex
	users  map[string]types.User
	notes  []types.Note
	nextID int
}

func newMemoryDB() *memoryDB {
	return &memoryDB{users: make(map[string]types.User)}
}

func (m *memoryDB) hasUser(username string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[username]
	return ok
}

func (m *memoryDB) notesOf(owner string) []types.Note {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Note
	for _, n := range m.notes {
		if n.Owner == owner {
			out = append(out, n)
		}
	}
	return out
}

type userRepo struct{ db *memoryDB }

func (r userRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[username]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r userRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[user.Username]; ok {
		return types.User{}, &store.ConflictError{Field: "username"}
	}
	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, user.Email) {
			return types.User{}, &store.ConflictError{Field: "email"}
		}
	}
	user.CreatedAt = time.Now()
	r.db.users[user.Username] = user
	return user, nil
}

func (r userRepo) Delete(ctx context.Context, username string, beforeCommit func(context.Context, []types.Note) error) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[username]; !ok {
		return store.ErrNotFound
	}
	var kept, removed []types.Note
	for _, n := range r.db.notes {
		if n.Owner != username {
			kept = append(kept, n)
		} else {
			removed = append(removed, n)
		}
	}
	if beforeCommit != nil {
		if err := beforeCommit(ctx, removed); err != nil {
			return err
		}
	}
	r.db.notes = kept
	delete(r.db.users, username)
	return nil
}

type noteRepo struct{ db *memoryDB }

func (r noteRepo) Create(_ context.Context, note types.Note) (types.Note, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[note.Owner]; !ok {
		return types.Note{}, store.ErrNotFound
	}
	r.db.nextID++
	note.ID = r.db.nextID
	note.CreatedAt = time.Now()
	r.db.notes = append(r.db.notes, note)
	return note, nil
}

func (r noteRepo) Get(_ context.Context, id int) (types.Note, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, n := range r.db.notes {
		if n.ID == id {
			return n, nil
		}
	}
	return types.Note{}, store.ErrNotFound
}

func (r noteRepo) ListByOwner(_ context.Context, owner string) ([]types.Note, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []types.Note{}
	for _, n := range r.db.notes {
		if n.Owner == owner {
			out = append(out, n)
		}
	}
	return out, nil
}

// newTestServer wires the real services and session middleware over an
// in-memory database.
func newTestServer(t *testing.T) (*httptest.Server, *memoryDB) {
	t.Helper()

	db := newMemoryDB()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := services.NewUserService(userRepo{db}, bcrypt.MinCost)
	notes := services.NewNoteService(noteRepo{db}, nil)

	h, err := New(users, notes, logger)
	require.NoError(t, err)

	sessions := session.NewManager(config.SessionConfig{
		Secret:     "0123456789abcdef0123456789abcdef",
		TTL:        time.Hour,
		CookieName: "noteshelf_session",
	})

	router := chi.NewRouter()
	router.Use(sessions.Middleware)
	h.Routes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, db
}

type response struct {
	status   int
	body     string
	location string
}

// browser is an HTTP client with its own cookie jar that does not follow
// redirects.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newBrowser(t *testing.T, srv *httptest.Server) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:    t,
		base: srv.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) do(req *http.Request) response {
	b.t.Helper()
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return response{status: resp.StatusCode, body: string(body), location: resp.Header.Get("Location")}
}

func (b *browser) get(path string) response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.base+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

func (b *browser) post(path string, values url.Values) response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(values.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

var csrfPattern = regexp.MustCompile(`<meta name="csrf-token" content="([^"]+)">`)

// csrf loads a page that always renders and returns the session's token.
func (b *browser) csrf() string {
	b.t.Helper()
	resp := b.get("/no-such-page")
	m := csrfPattern.FindStringSubmatch(resp.body)
	require.Len(b.t, m, 2, "csrf token not found")
	return m[1]
}

// postForm posts values with a valid CSRF token.
func (b *browser) postForm(path string, values url.Values) response {
	b.t.Helper()
	if values == nil {
		values = url.Values{}
	}
	values.Set("csrf_token", b.csrf())
	return b.post(path, values)
}

func registration(username, password, email string) url.Values {
	return url.Values{
		"username":   {username},
		"password":   {password},
		"email":      {email},
		"first_name": {"First"},
		"last_name":  {"Last"},
	}
}

// registerAs creates an account and leaves the browser logged in as it.
func (b *browser) registerAs(username string) {
	b.t.Helper()
	resp := b.postForm("/register", registration(username, "secret123", username+"@example.com"))
	require.Equal(b.t, http.StatusSeeOther, resp.status, resp.body)
}

func (b *browser) addNote(owner, title, content string) response {
	b.t.Helper()
	return b.postForm("/users/"+owner+"/notes/add", url.Values{"title": {title}, "content": {content}})
}
