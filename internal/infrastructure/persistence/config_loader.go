package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lite-lake/infra-regsync/internal/constants"
	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
)

type ConfigLoader struct {
	baseDir string
}

func NewConfigLoader(baseDir string) *ConfigLoader {
	return &ConfigLoader{baseDir: baseDir}
}

func (l *ConfigLoader) BaseDir() string {
	return l.baseDir
}

// Dir is the directory holding the YAML files of env.
func (l *ConfigLoader) Dir(env string) string {
	return filepath.Join(l.baseDir, constants.UserdataDir, env)
}

func (l *ConfigLoader) Load(ctx context.Context, env string) (*entity.Config, error) {
	configDir := l.Dir(env)

	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: config directory does not exist: %s", domain.ErrConfigNotFound, configDir)
	}

	cfg := &entity.Config{}

	loaders := []struct {
		filename string
		loader   func(string, *entity.Config) error
	}{
		{"secrets.yaml", loadSecrets},
		{"isps.yaml", loadISPs},
		{"registries.yaml", loadRegistries},
		{"contacts.yaml", loadContacts},
	}

	for _, f := range loaders {
		filePath := filepath.Join(configDir, f.filename)
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			continue
		}
		if err := f.loader(filePath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f.filename, err)
		}
	}

	return cfg, nil
}

func (l *ConfigLoader) Validate(cfg *entity.Config) error {
	if cfg == nil {
		return domain.ErrConfigNotLoaded
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := validateReferences(cfg); err != nil {
		return err
	}

	return validateTLDConflicts(cfg)
}

func loadEntity[T any](filePath, yamlKey string) ([]T, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, domain.WrapOp("read", domain.ErrConfigReadFailed)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigParseFailed, err)
	}

	itemsRaw, ok := raw[yamlKey]
	if !ok {
		return nil, nil
	}

	itemsData, err := yaml.Marshal(itemsRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigParseFailed, err)
	}

	var items []T
	if err := yaml.Unmarshal(itemsData, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigParseFailed, err)
	}

	return items, nil
}

func loadSecrets(filePath string, cfg *entity.Config) error {
	items, err := loadEntity[entity.Secret](filePath, "secrets")
	if err != nil {
		return err
	}
	cfg.Secrets = items
	return nil
}

func loadISPs(filePath string, cfg *entity.Config) error {
	items, err := loadEntity[entity.ISP](filePath, "isps")
	if err != nil {
		return err
	}
	cfg.ISPs = items
	return nil
}

func loadRegistries(filePath string, cfg *entity.Config) error {
	items, err := loadEntity[entity.Registry](filePath, "registries")
	if err != nil {
		return err
	}
	cfg.Registries = items
	return nil
}

func loadContacts(filePath string, cfg *entity.Config) error {
	items, err := loadEntity[entity.ContactProfile](filePath, "contacts")
	if err != nil {
		return err
	}
	cfg.Contacts = items
	return nil
}

func validateReferences(cfg *entity.Config) error {
	secrets := cfg.GetSecretsMap()
	isps := cfg.GetISPMap()

	for _, isp := range cfg.ISPs {
		for key, ref := range isp.Credentials {
			if ref.Secret == "" {
				continue
			}
			if _, ok := secrets[ref.Secret]; !ok {
				return fmt.Errorf("%w: isp '%s' credential '%s' references unknown secret '%s'", domain.ErrMissingReference, isp.Name, key, ref.Secret)
			}
		}
	}

	for _, reg := range cfg.Registries {
		for field, ref := range map[string]string{"username": reg.Credentials.Username.Secret, "password": reg.Credentials.Password.Secret} {
			if ref == "" {
				continue
			}
			if _, ok := secrets[ref]; !ok {
				return fmt.Errorf("%w: registry '%s' %s references unknown secret '%s'", domain.ErrMissingReference, reg.Name, field, ref)
			}
		}
		if reg.GlueISP != "" {
			if _, ok := isps[reg.GlueISP]; !ok {
				return fmt.Errorf("%w: registry '%s' references unknown isp '%s'", domain.ErrMissingReference, reg.Name, reg.GlueISP)
			}
		}
	}

	return nil
}

// validateTLDConflicts rejects two registries claiming the same TLD, which
// would make routing depend on file order.
func validateTLDConflicts(cfg *entity.Config) error {
	owner := make(map[string]string)
	for _, reg := range cfg.Registries {
		for _, tld := range reg.TLDs {
			key := normalizeTLD(tld)
			if other, ok := owner[key]; ok && other != reg.Name {
				return fmt.Errorf("%w: tld .%s is served by both '%s' and '%s'", domain.ErrConfigValidateFail, key, other, reg.Name)
			}
			owner[key] = reg.Name
		}
	}
	return nil
}

func normalizeTLD(tld string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tld), "."))
}
