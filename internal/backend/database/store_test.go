package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jo-hoe/gopicker/internal/hexcolor"
	"github.com/jo-hoe/gopicker/internal/picker"
)

func newTestSession(t *testing.T, id string, updatedAt time.Time) *picker.Session {
	t.Helper()
	c, err := hexcolor.Parse("#ff00a1")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	return &picker.Session{
		ID:        id,
		Status:    picker.StatusResolved,
		Image:     &picker.ImageResource{MIMEType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}},
		Color:     &c,
		Error:     "",
		UpdatedAt: updatedAt,
	}
}

// runStoreContract exercises the behaviour every DatabaseService must share
func runStoreContract(t *testing.T, newDB func(t *testing.T) DatabaseService) {
	ctx := context.Background()

	t.Run("DoesDatabaseExist", func(t *testing.T) {
		ds := newDB(t)
		if !ds.DoesDatabaseExist() {
			t.Fatalf("expected DoesDatabaseExist to return true")
		}
	})

	t.Run("SaveAndGet", func(t *testing.T) {
		ds := newDB(t)
		want := newTestSession(t, "s1", time.Now())
		if err := ds.SaveSession(ctx, want); err != nil {
			t.Fatalf("SaveSession error: %v", err)
		}

		got, err := ds.GetSession(ctx, "s1")
		if err != nil {
			t.Fatalf("GetSession error: %v", err)
		}
		if got.ID != "s1" || got.Status != picker.StatusResolved {
			t.Errorf("unexpected session %+v", got)
		}
		if got.HexText() != "#ff00a1" || got.RGBText() != "rgb(255, 0, 161)" {
			t.Errorf("color mismatch: %q %q", got.HexText(), got.RGBText())
		}
		if got.Image == nil || string(got.Image.Data) != string(want.Image.Data) || got.Image.MIMEType != "image/png" {
			t.Errorf("image mismatch: %+v", got.Image)
		}
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		ds := newDB(t)
		s := newTestSession(t, "s1", time.Now())
		if err := ds.SaveSession(ctx, s); err != nil {
			t.Fatalf("SaveSession error: %v", err)
		}
		s.ClearImage()
		s.Error = "boom"
		if err := ds.SaveSession(ctx, s); err != nil {
			t.Fatalf("SaveSession error: %v", err)
		}

		got, err := ds.GetSession(ctx, "s1")
		if err != nil {
			t.Fatalf("GetSession error: %v", err)
		}
		if got.Image != nil || got.Color != nil || got.Error != "boom" {
			t.Errorf("expected replaced snapshot, got %+v", got)
		}
	})

	t.Run("GetUnknown", func(t *testing.T) {
		ds := newDB(t)
		if _, err := ds.GetSession(ctx, "non-existent-id"); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		ds := newDB(t)
		if err := ds.SaveSession(ctx, newTestSession(t, "a", time.Now())); err != nil {
			t.Fatalf("SaveSession error: %v", err)
		}
		if err := ds.SaveSession(ctx, newTestSession(t, "b", time.Now())); err != nil {
			t.Fatalf("SaveSession error: %v", err)
		}
		if err := ds.DeleteSession(ctx, "a"); err != nil {
			t.Fatalf("DeleteSession error: %v", err)
		}
		if _, err := ds.GetSession(ctx, "a"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("expected a to be deleted, got %v", err)
		}
		if _, err := ds.GetSession(ctx, "b"); err != nil {
			t.Errorf("expected b to remain, got %v", err)
		}
	})
}

func runExpiryContract(t *testing.T, ds DatabaseService) {
	ctx := context.Background()
	now := time.Now()

	if err := ds.SaveSession(ctx, newTestSession(t, "old", now.Add(-2*time.Hour))); err != nil {
		t.Fatalf("SaveSession error: %v", err)
	}
	if err := ds.SaveSession(ctx, newTestSession(t, "fresh", now)); err != nil {
		t.Fatalf("SaveSession error: %v", err)
	}

	deleted, err := ds.DeleteExpiredSessions(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("DeleteExpiredSessions error: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted session, got %d", deleted)
	}
	if _, err := ds.GetSession(ctx, "old"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected old session to be gone, got %v", err)
	}
	if _, err := ds.GetSession(ctx, "fresh"); err != nil {
		t.Errorf("expected fresh session to remain, got %v", err)
	}
}
