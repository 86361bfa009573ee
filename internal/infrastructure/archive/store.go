package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/lite-lake/infra-regsync/internal/constants"
	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
)

// notificationRow is the archived form of an acknowledged queue message. The
// registry no longer has it, so this table is the only copy.
type notificationRow struct {
	ID         uint      `gorm:"primarykey"`
	Registry   string    `gorm:"uniqueIndex:idx_registry_message;not null"`
	MessageID  string    `gorm:"uniqueIndex:idx_registry_message;not null"`
	Type       string    `gorm:"index;not null"`
	Message    string    `gorm:"not null"`
	Domains    string    `gorm:"index"`
	Time       time.Time `gorm:"index"`
	Raw        []byte
	ArchivedAt time.Time `gorm:"autoCreateTime"`
}

func (notificationRow) TableName() string {
	return "notifications"
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Registry string
	Type     entity.NotificationType
	Domain   string
	Since    time.Time
	Limit    int
}

type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the SQLite archive at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermission); err != nil {
		return nil, fmt.Errorf("creating archive dir: %w", domain.WrapOp("create archive dir", domain.ErrStateWriteFailed))
	}
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	// SQLite allows one writer.
	sqlDB.SetMaxOpenConns(1)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqlDB}, &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize GORM: %w", err)
	}
	if err := db.AutoMigrate(&notificationRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate archive: %w", err)
	}
	return &Store{db: db}, nil
}

// Save archives notifications, skipping ones already stored for the same
// registry and message id. It returns how many rows were new.
func (s *Store) Save(ctx context.Context, notifications []entity.Notification) (int, error) {
	if len(notifications) == 0 {
		return 0, nil
	}
	rows := make([]notificationRow, 0, len(notifications))
	for _, n := range notifications {
		rows = append(rows, notificationRow{
			Registry:  n.Registry,
			MessageID: n.ID,
			Type:      string(n.Type),
			Message:   n.Message,
			Domains:   joinDomains(n.Domains),
			Time:      n.Time.UTC(),
			Raw:       n.Raw,
		})
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if res.Error != nil {
		return 0, domain.WrapOp("archive notifications", res.Error)
	}
	return int(res.RowsAffected), nil
}

// List returns archived notifications, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]entity.Notification, error) {
	q := s.db.WithContext(ctx).Model(&notificationRow{})
	if f.Registry != "" {
		q = q.Where("registry = ?", f.Registry)
	}
	if f.Type != "" {
		q = q.Where("type = ?", string(f.Type))
	}
	if f.Domain != "" {
		q = q.Where("domains LIKE ?", "%,"+strings.ToLower(f.Domain)+",%")
	}
	if !f.Since.IsZero() {
		q = q.Where("time >= ?", f.Since.UTC())
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var rows []notificationRow
	if err := q.Order("time DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, domain.WrapOp("list notifications", err)
	}
	out := make([]entity.Notification, 0, len(rows))
	for _, r := range rows {
		out = append(out, entity.Notification{
			ID:       r.MessageID,
			Registry: r.Registry,
			Type:     entity.NotificationType(r.Type),
			Message:  r.Message,
			Domains:  splitDomains(r.Domains),
			Time:     r.Time.UTC(),
			Raw:      r.Raw,
		})
	}
	return out, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// joinDomains stores domains as ",a.com,b.net," so a LIKE on ",name," matches
// whole names only.
func joinDomains(domains []string) string {
	if len(domains) == 0 {
		return ""
	}
	lower := make([]string, len(domains))
	for i, d := range domains {
		lower[i] = strings.ToLower(d)
	}
	return "," + strings.Join(lower, ",") + ","
}

func splitDomains(s string) []string {
	s = strings.Trim(s, ",")
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
