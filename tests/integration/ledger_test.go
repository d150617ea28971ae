// Package integration provides end-to-end tests for the Bodleian API.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/bodleian-io/bodleian/internal/domain"
	"github.com/bodleian-io/bodleian/internal/handler"
	"github.com/bodleian-io/bodleian/internal/lock"
	"github.com/bodleian-io/bodleian/internal/repository"
	"github.com/bodleian-io/bodleian/internal/repository/sqlite"
	"github.com/bodleian-io/bodleian/internal/service"
	"github.com/bodleian-io/bodleian/internal/session"
)

const sessionCookie = "session"

// testEnv holds the full stack over an in-memory database.
type testEnv struct {
	server *httptest.Server
	users  *service.UserService
	repos  *repository.Repositories
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ctx := context.Background()
	logger := zerolog.Nop()

	db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(":memory:"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	repos := sqlite.NewRepositories(db)
	sessions := session.NewMemoryStore()
	locker := lock.NewMemoryLocker()

	userSvc := service.NewUserService(repos.Users, logger)
	authSvc := service.NewAuthService(userSvc, sessions, time.Hour, logger)
	catalogSvc := service.NewCatalogService(repos.Books, repos.Users, repos.Transactions, 0, logger)
	ledgerSvc := service.NewLedgerService(repos, locker, nil, service.LedgerConfig{}, logger)

	router := handler.NewRouter(handler.RouterConfig{
		AuthHandler: handler.NewAuthHandler(handler.AuthConfig{
			UserService: userSvc,
			AuthService: authSvc,
			CookieName:  sessionCookie,
			SessionTTL:  time.Hour,
			Logger:      logger,
		}),
		CatalogHandler: handler.NewCatalogHandler(catalogSvc, logger),
		LedgerHandler:  handler.NewLedgerHandler(ledgerSvc, logger),
		AdminHandler:   handler.NewAdminHandler(catalogSvc, userSvc, logger),
		Middleware:     handler.NewMiddleware(authSvc, sessionCookie, nil, logger),
		Logger:         logger,
	})

	server := httptest.NewServer(router.Handler())
	t.Cleanup(server.Close)

	return &testEnv{server: server, users: userSvc, repos: repos}
}

// newClient returns an HTTP client with its own cookie jar.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func (e *testEnv) post(t *testing.T, client *http.Client, path string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := client.Post(e.server.URL+path, "application/json", &buf)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) get(t *testing.T, client *http.Client, path string) *http.Response {
	t.Helper()
	resp, err := client.Get(e.server.URL + path)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// register creates an account over HTTP and returns the user.
func (e *testEnv) register(t *testing.T, client *http.Client, username string) *domain.User {
	t.Helper()
	resp := e.post(t, client, "/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"phone":    "555-0100",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var user domain.User
	decode(t, resp, &user)
	return &user
}

// login opens a session; the client's jar keeps the cookie.
func (e *testEnv) login(t *testing.T, client *http.Client, username string) {
	t.Helper()
	resp := e.post(t, client, "/login", map[string]string{
		"username": username,
		"password": "correct-horse",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// createAdmin provisions an admin account directly, the way the admin CLI
// does.
func (e *testEnv) createAdmin(t *testing.T, username string) *domain.User {
	t.Helper()
	output, err := e.users.Register(context.Background(), service.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Phone:    "555-0199",
		Password: "correct-horse",
		Role:     domain.RoleAdmin,
	})
	require.NoError(t, err)
	return output.User
}

// requireCopyAccounting asserts that the copies off the shelf match the
// number of active loans for the book.
func requireCopyAccounting(t *testing.T, env *testEnv, bookID string) {
	t.Helper()
	ctx := context.Background()

	book, err := env.repos.Books.GetByID(ctx, bookID)
	require.NoError(t, err)

	active, err := env.repos.Transactions.CountActiveByBook(ctx, bookID)
	require.NoError(t, err)

	require.Equal(t, int64(book.TotalCopies-book.AvailableCopies), active,
		"copies off the shelf must equal active loans")
}

func TestLibraryWorkflow(t *testing.T) {
	env := newTestEnv(t)

	admin := newClient(t)
	env.createAdmin(t, "librarian")
	env.login(t, admin, "librarian")

	alice := newClient(t)
	aliceUser := env.register(t, alice, "alice")
	env.login(t, alice, "alice")

	bob := newClient(t)
	bobUser := env.register(t, bob, "bob")
	env.login(t, bob, "bob")

	var book domain.Book

	t.Run("admin adds a single-copy book", func(t *testing.T) {
		resp := env.post(t, admin, "/books", map[string]interface{}{
			"title":          "A Wizard of Earthsea",
			"author":         "Ursula K. Le Guin",
			"isbn":           "9780547773742",
			"genre":          "fantasy",
			"published_date": "1968-11-01",
			"total_copies":   1,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		decode(t, resp, &book)
		require.Equal(t, 1, book.AvailableCopies)
	})

	t.Run("borrower cannot add books", func(t *testing.T) {
		resp := env.post(t, alice, "/books", map[string]interface{}{
			"title": "x", "author": "y", "isbn": "z", "total_copies": 1,
			"published_date": "2000-01-01",
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("catalog is public", func(t *testing.T) {
		resp, err := http.Get(env.server.URL + "/books")
		require.NoError(t, err)
		var books []domain.Book
		decode(t, resp, &books)
		require.Len(t, books, 1)
	})

	t.Run("alice borrows the last copy", func(t *testing.T) {
		resp := env.post(t, alice, fmt.Sprintf("/borrow/%s/%s", aliceUser.ID, book.ID), nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var body struct {
			Transaction domain.Transaction `json:"transaction"`
		}
		decode(t, resp, &body)
		require.Equal(t, domain.StatusActive, body.Transaction.Status)
		require.WithinDuration(t,
			body.Transaction.TransactionDate.Add(14*24*time.Hour),
			body.Transaction.DueDate, time.Second)

		requireCopyAccounting(t, env, book.ID)
	})

	t.Run("alice cannot borrow the same book twice", func(t *testing.T) {
		resp := env.post(t, alice, fmt.Sprintf("/borrow/%s/%s", aliceUser.ID, book.ID), nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body struct {
			Code string `json:"code"`
		}
		decode(t, resp, &body)
		require.Equal(t, "DUPLICATE_BORROW", body.Code)
	})

	t.Run("bob finds no copies left", func(t *testing.T) {
		resp := env.post(t, bob, fmt.Sprintf("/borrow/%s/%s", bobUser.ID, book.ID), nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body struct {
			Code string `json:"code"`
		}
		decode(t, resp, &body)
		require.Equal(t, "NO_COPIES_AVAILABLE", body.Code)
	})

	t.Run("bob cannot act on alice's ledger", func(t *testing.T) {
		resp := env.post(t, bob, fmt.Sprintf("/return/%s/%s", aliceUser.ID, book.ID), nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("alice sees her active loan", func(t *testing.T) {
		resp := env.get(t, alice, "/borrow-list/"+aliceUser.ID)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var entries []struct {
			Transaction domain.Transaction `json:"transaction"`
			Book        struct {
				Title string `json:"title"`
			} `json:"book"`
		}
		decode(t, resp, &entries)
		require.Len(t, entries, 1)
		require.Equal(t, "A Wizard of Earthsea", entries[0].Book.Title)
		require.Equal(t, domain.StatusActive, entries[0].Transaction.Status)
	})

	t.Run("alice returns on time without a fine", func(t *testing.T) {
		resp := env.post(t, alice, fmt.Sprintf("/return/%s/%s", aliceUser.ID, book.ID), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]interface{}
		decode(t, resp, &body)
		require.NotContains(t, body, "fine")

		txn := body["transaction"].(map[string]interface{})
		require.Equal(t, string(domain.StatusCompleted), txn["status"])
		require.Equal(t, string(domain.TransactionReturn), txn["type"])
	})

	t.Run("second return is rejected", func(t *testing.T) {
		resp := env.post(t, alice, fmt.Sprintf("/return/%s/%s", aliceUser.ID, book.ID), nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body struct {
			Code string `json:"code"`
		}
		decode(t, resp, &body)
		require.Equal(t, "NOT_BORROWED", body.Code)
	})

	t.Run("settled loans drop off the borrow list", func(t *testing.T) {
		resp := env.get(t, alice, "/borrow-list/"+aliceUser.ID)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var entries []json.RawMessage
		decode(t, resp, &entries)
		require.Empty(t, entries)
	})

	t.Run("bob can borrow after the return", func(t *testing.T) {
		resp := env.post(t, bob, fmt.Sprintf("/borrow/%s/%s", bobUser.ID, book.ID), nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		requireCopyAccounting(t, env, book.ID)
	})

	t.Run("admin sees the book's history with borrowers", func(t *testing.T) {
		resp := env.get(t, admin, fmt.Sprintf("/admin/books/%s/history", book.ID))
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var entries []struct {
			Transaction domain.Transaction `json:"transaction"`
			Borrower    struct {
				Username string `json:"username"`
			} `json:"borrower"`
		}
		decode(t, resp, &entries)
		require.Len(t, entries, 2)
		require.Equal(t, "bob", entries[0].Borrower.Username)
		require.Equal(t, "alice", entries[1].Borrower.Username)
	})

	t.Run("admin sees the borrower's history with books", func(t *testing.T) {
		resp := env.get(t, admin, fmt.Sprintf("/admin/borrowers/%s/history", aliceUser.ID))
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var entries []struct {
			Transaction domain.Transaction `json:"transaction"`
			Book        struct {
				Title string `json:"title"`
			} `json:"book"`
		}
		decode(t, resp, &entries)
		require.Len(t, entries, 1)
		require.Equal(t, "A Wizard of Earthsea", entries[0].Book.Title)
		require.Equal(t, domain.StatusCompleted, entries[0].Transaction.Status)
	})

	t.Run("admin routes reject borrowers", func(t *testing.T) {
		resp := env.get(t, alice, "/admin/borrowers")
		defer resp.Body.Close()
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("admin lists borrowers", func(t *testing.T) {
		resp := env.get(t, admin, "/admin/borrowers")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var users []domain.User
		decode(t, resp, &users)
		require.Len(t, users, 2)
	})
}

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t)

	t.Run("protected routes need a session", func(t *testing.T) {
		resp, err := http.Post(env.server.URL+"/borrow/u/b", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("registration without a phone is rejected", func(t *testing.T) {
		resp := env.post(t, newClient(t), "/register", map[string]string{
			"username": "erin",
			"email":    "erin@example.com",
			"password": "correct-horse",
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body struct {
			Code string `json:"code"`
		}
		decode(t, resp, &body)
		require.Equal(t, "VALIDATION", body.Code)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		client := newClient(t)
		env.register(t, client, "carol")

		resp := env.post(t, client, "/login", map[string]string{
			"username": "carol",
			"password": "wrong",
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("logout invalidates the session", func(t *testing.T) {
		client := newClient(t)
		user := env.register(t, client, "dave")
		env.login(t, client, "dave")

		resp := env.get(t, client, "/borrower")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = env.post(t, client, "/logout", nil)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		resp.Body.Close()

		resp = env.get(t, client, "/borrow-list/"+user.ID)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
