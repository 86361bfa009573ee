package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lite-lake/infra-regsync/internal/application/registrar"
	"github.com/lite-lake/infra-regsync/internal/constants"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/archive"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/persistence"
)

// Context carries the global flags and output streams shared by every
// command.
type Context struct {
	Env       string
	ConfigDir string
	Registry  string
	Output    string

	In  io.Reader
	Out io.Writer
	Err io.Writer

	// NewRegistrar is overridden in tests to inject adapters and clocks.
	NewRegistrar func(cfg *registrar.Config) (*registrar.Registrar, error)
}

func NewContext() *Context {
	return &Context{
		Env:          constants.DefaultEnv,
		ConfigDir:    ".",
		In:           os.Stdin,
		Out:          os.Stdout,
		Err:          os.Stderr,
		NewRegistrar: registrar.New,
	}
}

func (c *Context) loader() *persistence.ConfigLoader {
	return persistence.NewConfigLoader(c.ConfigDir)
}

// LoadConfig loads and validates the configuration of the selected env.
func (c *Context) LoadConfig(ctx context.Context) (*entity.Config, error) {
	loader := c.loader()
	cfg, err := loader.Load(ctx, c.Env)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := loader.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func (c *Context) stateFile(name string) string {
	return filepath.Join(c.ConfigDir, constants.StateDir, name)
}

// Session is everything a registry command needs. Close must be deferred.
type Session struct {
	Config    *entity.Config
	Registrar *registrar.Registrar
	Archive   *archive.Store
}

func (c *Context) OpenSession(ctx context.Context) (*Session, error) {
	cfg, err := c.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	store, err := archive.Open(c.stateFile(constants.ArchiveFile))
	if err != nil {
		return nil, err
	}
	r, err := c.NewRegistrar(&registrar.Config{
		Config:  cfg,
		BaseDir: c.ConfigDir,
		Archive: store,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &Session{Config: cfg, Registrar: r, Archive: store}, nil
}

// Provider picks the --registry account when given, otherwise the account
// serving the TLD of domainName.
func (s *Session) Provider(c *Context, domainName string) (*registrar.Provider, error) {
	if c.Registry != "" {
		return s.Registrar.Provider(c.Registry)
	}
	return s.Registrar.ForDomain(domainName)
}

func (s *Session) Close(ctx context.Context) error {
	err := s.Registrar.Close(ctx)
	if cerr := s.Archive.Close(); err == nil {
		err = cerr
	}
	return err
}
