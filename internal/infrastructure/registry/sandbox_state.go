package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/lite-lake/infra-regsync/internal/constants"
	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
)

type sandboxAccount struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

type sandboxDomain struct {
	Owner    string              `yaml:"owner"`
	AuthCode string              `yaml:"auth_code"`
	Record   entity.DomainRecord `yaml:",inline"`
}

type sandboxHost struct {
	Name      string   `yaml:"name"`
	Owner     string   `yaml:"owner"`
	Addresses []string `yaml:"addresses,omitempty"`
}

type sandboxContact struct {
	Owner  string               `yaml:"owner"`
	Record entity.ContactRecord `yaml:",inline"`
}

type sandboxTransfer struct {
	ID          string    `yaml:"id"`
	Domain      string    `yaml:"domain"`
	Gaining     string    `yaml:"gaining"`
	Losing      string    `yaml:"losing"`
	Status      string    `yaml:"status"`
	Period      int       `yaml:"period"`
	Message     string    `yaml:"message,omitempty"`
	SubmittedAt time.Time `yaml:"submitted_at"`
	UpdatedAt   time.Time `yaml:"updated_at"`
}

type sandboxMessage struct {
	ID      int64     `yaml:"id"`
	Account string    `yaml:"account"`
	Type    string    `yaml:"type"`
	Text    string    `yaml:"text"`
	Domains []string  `yaml:"domains,omitempty"`
	Time    time.Time `yaml:"time"`
}

type sandboxState struct {
	Accounts      []*sandboxAccount  `yaml:"accounts"`
	Domains       []*sandboxDomain   `yaml:"domains"`
	Hosts         []*sandboxHost     `yaml:"hosts"`
	Contacts      []*sandboxContact  `yaml:"contacts"`
	Transfers     []*sandboxTransfer `yaml:"transfers"`
	Messages      []*sandboxMessage  `yaml:"messages"`
	NextMessageID int64              `yaml:"next_message_id"`

	dirty bool
}

func (s *sandboxState) touch() { s.dirty = true }

func (s *sandboxState) account(username string) *sandboxAccount {
	for _, a := range s.Accounts {
		if a.Username == username {
			return a
		}
	}
	return nil
}

func (s *sandboxState) domain(name string) *sandboxDomain {
	for _, d := range s.Domains {
		if strings.EqualFold(d.Record.Name, name) {
			return d
		}
	}
	return nil
}

func (s *sandboxState) host(name string) *sandboxHost {
	for _, h := range s.Hosts {
		if strings.EqualFold(h.Name, name) {
			return h
		}
	}
	return nil
}

func (s *sandboxState) contact(id string) *sandboxContact {
	for _, c := range s.Contacts {
		if c.Record.ID == id {
			return c
		}
	}
	return nil
}

// latestTransfer returns the newest order for domain that involves account.
func (s *sandboxState) latestTransfer(domainName, account string) *sandboxTransfer {
	var latest *sandboxTransfer
	for _, t := range s.Transfers {
		if !strings.EqualFold(t.Domain, domainName) || (t.Gaining != account && t.Losing != account) {
			continue
		}
		if latest == nil || !t.SubmittedAt.Before(latest.SubmittedAt) {
			latest = t
		}
	}
	return latest
}

func (s *sandboxState) enqueue(account, typ, text string, at time.Time, domains ...string) {
	s.NextMessageID++
	s.Messages = append(s.Messages, &sandboxMessage{
		ID:      s.NextMessageID,
		Account: account,
		Type:    typ,
		Text:    text,
		Domains: domains,
		Time:    at,
	})
	s.touch()
}

func (s *sandboxState) queue(account string) []*sandboxMessage {
	var out []*sandboxMessage
	for _, m := range s.Messages {
		if m.Account == account {
			out = append(out, m)
		}
	}
	return out
}

// stateStore persists the sandbox as one YAML document guarded by a file lock,
// so several regsync processes can share a sandbox.
type stateStore struct {
	path  string
	flock *flock.Flock
}

func newStateStore(path string) *stateStore {
	return &stateStore{
		path:  path,
		flock: flock.New(path + ".lock"),
	}
}

func (s *stateStore) lock() error {
	if err := os.MkdirAll(filepath.Dir(s.path), constants.DirPermission); err != nil {
		return fmt.Errorf("creating sandbox dir: %w", domain.WrapOp("create sandbox dir", domain.ErrStateWriteFailed))
	}
	if err := s.flock.Lock(); err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	return nil
}

func (s *stateStore) load() (*sandboxState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &sandboxState{}, nil
		}
		return nil, fmt.Errorf("reading sandbox state %s: %w", s.path, domain.WrapOp("read sandbox state", domain.ErrStateReadFailed))
	}
	var st sandboxState
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing sandbox state %s: %w", s.path, domain.WrapOp("parse sandbox state", domain.ErrStateSerializeFail))
	}
	return &st, nil
}

func (s *stateStore) save(st *sandboxState) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshaling sandbox state: %w", domain.WrapOp("marshal sandbox state", domain.ErrStateSerializeFail))
	}
	tmpPath := filepath.Join(filepath.Dir(s.path), "."+filepath.Base(s.path)+".tmp")
	if err := os.WriteFile(tmpPath, data, constants.FilePermissionOwnerRW); err != nil {
		return fmt.Errorf("writing temp sandbox state %s: %w", tmpPath, domain.WrapOp("write sandbox state", domain.ErrStateWriteFailed))
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming sandbox state to %s: %w", s.path, domain.WrapOp("rename sandbox state", domain.ErrStateWriteFailed))
	}
	return nil
}

// update runs fn under the lock and saves the state if fn changed it, even
// when fn fails: a rejected transfer still leaves its order behind.
func (s *stateStore) update(fn func(*sandboxState) error) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.flock.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	fnErr := fn(st)
	if st.dirty {
		if err := s.save(st); err != nil {
			return err
		}
	}
	return fnErr
}
