package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lite-lake/infra-regsync/internal/domain/entity"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "archive", "notifications.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SaveIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	batch := []entity.Notification{
		{ID: "1", Registry: "sb", Type: entity.NotificationTransferIn, Message: "in", Domains: []string{"Example.com"}, Time: at, Raw: []byte("raw")},
		{ID: "2", Registry: "sb", Type: entity.NotificationRenewed, Message: "renewed", Domains: []string{"other.net"}, Time: at.Add(time.Minute)},
	}

	n, err := s.Save(ctx, batch)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 new rows, got %d, %v", n, err)
	}
	n, err = s.Save(ctx, batch[:1])
	if err != nil || n != 0 {
		t.Errorf("expected duplicate to be skipped, got %d, %v", n, err)
	}
	n, _ = s.Save(ctx, []entity.Notification{{ID: "1", Registry: "other", Type: entity.NotificationDeleted, Message: "x", Time: at}})
	if n != 1 {
		t.Errorf("same id on another registry is a new message, got %d", n)
	}
}

func TestStore_List(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, err := s.Save(ctx, []entity.Notification{
		{ID: "1", Registry: "sb", Type: entity.NotificationTransferIn, Message: "in", Domains: []string{"example.com"}, Time: at},
		{ID: "2", Registry: "sb", Type: entity.NotificationRenewed, Message: "renewed", Domains: []string{"myexample.com"}, Time: at.Add(time.Hour)},
		{ID: "3", Registry: "epp", Type: entity.NotificationRenewed, Message: "renewed", Domains: []string{"example.com", "b.net"}, Time: at.Add(2 * time.Hour)},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all newest first", Filter{}, []string{"3", "2", "1"}},
		{"by registry", Filter{Registry: "sb"}, []string{"2", "1"}},
		{"by type", Filter{Type: entity.NotificationRenewed}, []string{"3", "2"}},
		{"by whole domain", Filter{Domain: "EXAMPLE.com"}, []string{"3", "1"}},
		{"since", Filter{Since: at.Add(30 * time.Minute)}, []string{"3", "2"}},
		{"limit", Filter{Limit: 1}, []string{"3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d notifications, want %d", len(got), len(tt.want))
			}
			for i, n := range got {
				if n.ID != tt.want[i] {
					t.Errorf("position %d: got %s, want %s", i, n.ID, tt.want[i])
				}
			}
		})
	}

	got, _ := s.List(ctx, Filter{Registry: "epp"})
	if len(got[0].Domains) != 2 || got[0].Domains[1] != "b.net" || !got[0].Time.Equal(at.Add(2*time.Hour)) {
		t.Errorf("unexpected round trip %+v", got[0])
	}
}
