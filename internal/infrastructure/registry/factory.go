package registry

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lite-lake/infra-regsync/internal/constants"
	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/contract"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
)

// CreatorFunc builds the adapter for one registry type. baseDir anchors
// relative file endpoints.
type CreatorFunc func(reg *entity.Registry, profile contract.Profile, baseDir string) (contract.Adapter, error)

type Factory struct {
	creators map[string]CreatorFunc
}

func NewFactory() *Factory {
	return &Factory{
		creators: map[string]CreatorFunc{
			string(entity.RegistryTypeSandbox): createSandbox,
		},
	}
}

func (f *Factory) Create(reg *entity.Registry, baseDir string) (contract.Adapter, error) {
	creator, ok := f.creators[string(reg.Type)]
	if !ok {
		return nil, fmt.Errorf("%w: registry type %s", domain.ErrUnsupportedProvider, reg.Type)
	}
	profile, err := ProfileFor(reg)
	if err != nil {
		return nil, err
	}
	return creator(reg, profile, baseDir)
}

// Register adds an adapter for a registry type, replacing any existing one.
func (f *Factory) Register(registryType string, creator CreatorFunc) {
	f.creators[registryType] = creator
}

func (f *Factory) Supports(registryType string) bool {
	_, ok := f.creators[registryType]
	return ok
}

// SandboxPath returns the state file a sandbox endpoint points at. Both
// "file://path" and bare paths are accepted.
func SandboxPath(endpoint, baseDir string) string {
	path := strings.TrimPrefix(endpoint, "file://")
	if path == "" {
		path = filepath.Join(constants.StateDir, constants.SandboxStateFile)
	}
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	return path
}

func createSandbox(reg *entity.Registry, profile contract.Profile, baseDir string) (contract.Adapter, error) {
	var opts []SandboxOption
	if v := reg.Option("approve_after", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%w: approve_after %q", domain.ErrInvalidType, v)
		}
		opts = append(opts, WithApproveAfter(d))
	}
	if v := reg.Option("empty_contact_info", ""); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: empty_contact_info %q", domain.ErrInvalidType, v)
		}
		opts = append(opts, WithEmptyContactInfo(enabled))
	}
	return NewSandbox(SandboxPath(reg.Endpoint, baseDir), profile, opts...), nil
}
