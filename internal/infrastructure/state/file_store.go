package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/lite-lake/infra-regsync/internal/constants"
	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
)

type ledgerFile struct {
	Orders []*entity.TransferOrder `yaml:"orders"`
}

// FileStore is the local transfer ledger: every order this tool submitted or
// observed, kept in one YAML file shared between processes.
type FileStore struct {
	path  string
	flock *flock.Flock
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:  path,
		flock: flock.New(path + ".lock"),
	}
}

func (s *FileStore) lock() error {
	if err := os.MkdirAll(filepath.Dir(s.path), constants.DirPermission); err != nil {
		return fmt.Errorf("creating ledger dir: %w", domain.WrapOp("create ledger dir", domain.ErrStateWriteFailed))
	}
	if err := s.flock.Lock(); err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	return nil
}

func (s *FileStore) load() (*ledgerFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ledgerFile{}, nil
		}
		return nil, fmt.Errorf("reading ledger %s: %w", s.path, domain.WrapOp("read ledger", domain.ErrStateReadFailed))
	}
	var lf ledgerFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parsing ledger %s: %w", s.path, domain.WrapOp("parse ledger", domain.ErrStateSerializeFail))
	}
	return &lf, nil
}

func (s *FileStore) save(lf *ledgerFile) error {
	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling ledger for %s: %w", s.path, domain.WrapOp("marshal ledger", domain.ErrStateSerializeFail))
	}

	tmpPath := filepath.Join(filepath.Dir(s.path), "."+filepath.Base(s.path)+".tmp")
	if err := os.WriteFile(tmpPath, data, constants.FilePermissionOwnerRW); err != nil {
		return fmt.Errorf("writing temp ledger %s: %w", tmpPath, domain.WrapOp("write temp ledger", domain.ErrStateWriteFailed))
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming ledger from %s to %s: %w", tmpPath, s.path, domain.WrapOp("rename ledger", domain.ErrStateWriteFailed))
	}
	return nil
}

// Record inserts order or replaces the entry with the same domain and id.
func (s *FileStore) Record(ctx context.Context, order *entity.TransferOrder) error {
	if order == nil || order.Domain == "" {
		return domain.RequiredField("transfer order domain")
	}
	if err := s.lock(); err != nil {
		return err
	}
	defer s.flock.Unlock()

	lf, err := s.load()
	if err != nil {
		return err
	}
	entry := *order
	entry.Domain = strings.ToLower(entry.Domain)
	replaced := false
	for i, o := range lf.Orders {
		if o.Domain == entry.Domain && o.ID == entry.ID {
			if entry.SubmittedAt.IsZero() {
				entry.SubmittedAt = o.SubmittedAt
			}
			lf.Orders[i] = &entry
			replaced = true
			break
		}
	}
	if !replaced {
		lf.Orders = append(lf.Orders, &entry)
	}
	return s.save(lf)
}

// Latest returns the most recently submitted order for name, or nil.
func (s *FileStore) Latest(ctx context.Context, name string) (*entity.TransferOrder, error) {
	orders, err := s.List(ctx, name)
	if err != nil || len(orders) == 0 {
		return nil, err
	}
	return orders[len(orders)-1], nil
}

// List returns the orders for name, or every order when name is empty, oldest
// submission first.
func (s *FileStore) List(ctx context.Context, name string) ([]*entity.TransferOrder, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.flock.Unlock()

	lf, err := s.load()
	if err != nil {
		return nil, err
	}
	name = strings.ToLower(name)
	var out []*entity.TransferOrder
	for _, o := range lf.Orders {
		if name == "" || o.Domain == name {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out, nil
}
