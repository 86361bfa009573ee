package dns

import (
	"fmt"

	domainerr "github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
	"github.com/lite-lake/infra-regsync/internal/domain/valueobject"
)

type CreatorFunc func(isp *entity.ISP, secrets map[string]string) (RecordLister, error)

type Factory struct {
	creators map[string]CreatorFunc
}

func NewFactory() *Factory {
	return &Factory{
		creators: map[string]CreatorFunc{
			string(entity.ISPTypeCloudflare): createCloudflare,
			string(entity.ISPTypeAliyun):     createAliyun,
			string(entity.ISPTypeTencent):    createTencent,
		},
	}
}

func (f *Factory) Create(isp *entity.ISP, secrets map[string]string) (RecordLister, error) {
	creator, ok := f.creators[string(isp.Type)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domainerr.ErrUnsupportedProvider, isp.Type)
	}
	return creator(isp, secrets)
}

func (f *Factory) Register(providerType string, creator CreatorFunc) {
	f.creators[providerType] = creator
}

// GlueResolver chains the zones of the given DNS accounts, in order, in front
// of the system resolver.
func (f *Factory) GlueResolver(isps []*entity.ISP, secrets map[string]string) (*ChainResolver, error) {
	resolvers := make([]NamedResolver, 0, len(isps)+1)
	for _, isp := range isps {
		lister, err := f.Create(isp, secrets)
		if err != nil {
			return nil, domainerr.WrapEntity("isp", isp.Name, err)
		}
		resolvers = append(resolvers, NewZoneResolver(lister, isp.HostsZone))
	}
	resolvers = append(resolvers, NewSystemResolver())
	return NewChainResolver(resolvers...), nil
}

func resolveCredential(creds map[string]valueobject.SecretRef, key string, secrets map[string]string) (string, error) {
	ref, ok := creds[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", domainerr.ErrMissingCredential, key)
	}
	return ref.Resolve(secrets)
}

func createCloudflare(isp *entity.ISP, secrets map[string]string) (RecordLister, error) {
	apiToken, err := resolveCredential(isp.Credentials, "api_token", secrets)
	if err != nil {
		return nil, fmt.Errorf("resolve api_token: %w", err)
	}
	accountID := ""
	if accountIDRef, ok := isp.Credentials["account_id"]; ok {
		accountID, err = accountIDRef.Resolve(secrets)
		if err != nil {
			return nil, fmt.Errorf("resolve account_id: %w", err)
		}
	}
	return NewCloudflareLister(apiToken, accountID)
}

func createAliyun(isp *entity.ISP, secrets map[string]string) (RecordLister, error) {
	accessKeyID, err := resolveCredential(isp.Credentials, "access_key_id", secrets)
	if err != nil {
		return nil, fmt.Errorf("resolve access_key_id: %w", err)
	}
	accessKeySecret, err := resolveCredential(isp.Credentials, "access_key_secret", secrets)
	if err != nil {
		return nil, fmt.Errorf("resolve access_key_secret: %w", err)
	}
	return NewAliyunLister(accessKeyID, accessKeySecret)
}

func createTencent(isp *entity.ISP, secrets map[string]string) (RecordLister, error) {
	secretID, err := resolveCredential(isp.Credentials, "secret_id", secrets)
	if err != nil {
		return nil, fmt.Errorf("resolve secret_id: %w", err)
	}
	secretKey, err := resolveCredential(isp.Credentials, "secret_key", secrets)
	if err != nil {
		return nil, fmt.Errorf("resolve secret_key: %w", err)
	}
	return NewTencentLister(secretID, secretKey)
}
