package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bodleian-io/bodleian/internal/domain"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	t.Run("create and get", func(t *testing.T) {
		sess, err := store.Create(ctx, "u1", time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sess.Token == "" {
			t.Fatal("expected a token")
		}

		got, err := store.Get(ctx, sess.Token)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.UserID != "u1" {
			t.Errorf("expected user u1, got %s", got.UserID)
		}
	})

	t.Run("tokens are unique", func(t *testing.T) {
		a, err := store.Create(ctx, "u1", time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, err := store.Create(ctx, "u1", time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Token == b.Token {
			t.Error("expected distinct tokens")
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := store.Get(ctx, "nope")
		if !errors.Is(err, domain.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("expired session", func(t *testing.T) {
		sess, err := store.Create(ctx, "u1", -time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err = store.Get(ctx, sess.Token)
		if !errors.Is(err, domain.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		sess, err := store.Create(ctx, "u1", time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := store.Delete(ctx, sess.Token); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := store.Get(ctx, sess.Token); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}

		// Deleting again is not an error.
		if err := store.Delete(ctx, sess.Token); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
