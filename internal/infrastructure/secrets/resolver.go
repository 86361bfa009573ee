package secrets

import (
	"fmt"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/contract"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
	"github.com/lite-lake/infra-regsync/internal/domain/valueobject"
)

type SecretResolver struct {
	secrets map[string]string
}

func NewSecretResolver(secrets []entity.Secret) *SecretResolver {
	s := &SecretResolver{secrets: make(map[string]string, len(secrets))}
	for _, secret := range secrets {
		s.secrets[secret.Name] = secret.Value
	}
	return s
}

func (r *SecretResolver) Resolve(ref valueobject.SecretRef) (string, error) {
	return ref.Resolve(r.secrets)
}

// Values exposes the secret table for factories that resolve their own refs.
func (r *SecretResolver) Values() map[string]string {
	return r.secrets
}

// ResolveAll checks that every credential in cfg resolves, so a bad reference
// fails at startup rather than on first use.
func (r *SecretResolver) ResolveAll(cfg *entity.Config) error {
	for i := range cfg.ISPs {
		for key, ref := range cfg.ISPs[i].Credentials {
			if _, err := r.Resolve(ref); err != nil {
				return fmt.Errorf("isps[%s].credentials[%s]: %w", cfg.ISPs[i].Name, key, err)
			}
		}
	}
	for i := range cfg.Registries {
		if _, err := r.RegistryCredentials(&cfg.Registries[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *SecretResolver) RegistryCredentials(reg *entity.Registry) (contract.Credentials, error) {
	username, err := r.Resolve(reg.Credentials.Username)
	if err != nil {
		return contract.Credentials{}, fmt.Errorf("registries[%s].credentials.username: %w", reg.Name, err)
	}
	password, err := r.Resolve(reg.Credentials.Password)
	if err != nil {
		return contract.Credentials{}, fmt.Errorf("registries[%s].credentials.password: %w", reg.Name, err)
	}
	if username == "" || password == "" {
		return contract.Credentials{}, fmt.Errorf("registries[%s]: %w", reg.Name, domain.ErrMissingCredential)
	}
	return contract.Credentials{Username: username, Password: password}, nil
}
