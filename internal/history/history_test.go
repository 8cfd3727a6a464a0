package history

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultLimit},
		{-3, DefaultLimit},
		{1, 1},
		{MaxLimit, MaxLimit},
		{MaxLimit + 1, MaxLimit},
	}
	for _, tt := range tests {
		if got := ClampLimit(tt.in); got != tt.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMemoryNewestFirst(t *testing.T) {
	m := NewMemory(3)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if err := m.Record(ctx, Entry{Text: fmt.Sprintf("t%d", i)}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := m.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	want := []string{"t5", "t4", "t3"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, e := range got {
		if e.Text != want[i] {
			t.Errorf("entry %d = %q, want %q", i, e.Text, want[i])
		}
		if e.CreatedAt.IsZero() {
			t.Errorf("entry %d has no timestamp", i)
		}
	}
	if got[0].ID != 5 {
		t.Errorf("newest id = %d", got[0].ID)
	}

	got, _ = m.Recent(ctx, 1)
	if len(got) != 1 || got[0].Text != "t5" {
		t.Errorf("Recent(1) = %+v", got)
	}
}

func TestMemoryKeepsGivenTimestamp(t *testing.T) {
	m := NewMemory(2)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := m.Record(context.Background(), Entry{Text: "x", CreatedAt: at}); err != nil {
		t.Fatal(err)
	}
	got, _ := m.Recent(context.Background(), 0)
	if len(got) != 1 || !got[0].CreatedAt.Equal(at) {
		t.Errorf("got %+v", got)
	}
}

func TestMemoryHonoursCancelledContext(t *testing.T) {
	m := NewMemory(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Record(ctx, Entry{Text: "x"}); err == nil {
		t.Error("Record accepted a cancelled context")
	}
	if _, err := m.Recent(ctx, 1); err == nil {
		t.Error("Recent accepted a cancelled context")
	}
}

// TestPostgres runs against a disposable database named by SIGN_TEST_DATABASE_URL.
func TestPostgres(t *testing.T) {
	url := os.Getenv("SIGN_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SIGN_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := OpenPostgres(ctx, url, nil)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	defer store.Close()

	if _, err := store.pool.Exec(ctx, "TRUNCATE sign_history"); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	// Reopening must find every migration applied.
	again, err := OpenPostgres(ctx, url, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	again.Close()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := store.Record(ctx, Entry{
			SessionID:     "s1",
			Text:          fmt.Sprintf("hello %d", i),
			Gloss:         "HELLO",
			Units:         4,
			MissingJoints: i,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := store.Record(ctx, Entry{Text: "now"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Text != "now" || got[1].Text != "hello 2" || got[1].MissingJoints != 2 {
		t.Errorf("order = %+v", got)
	}
	if got[1].SessionID != "s1" || got[1].Gloss != "HELLO" || got[1].Units != 4 {
		t.Errorf("fields = %+v", got[1])
	}
}
