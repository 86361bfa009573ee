package entity

import (
	"fmt"
	"strings"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/valueobject"
)

type ISPType string

const (
	ISPTypeAliyun     ISPType = "aliyun"
	ISPTypeCloudflare ISPType = "cloudflare"
	ISPTypeTencent    ISPType = "tencent"
)

// ISP is a DNS hosting account. Its zones are consulted for glue addresses of
// in-bailiwick nameservers.
type ISP struct {
	Name        string                           `yaml:"name"`
	Type        ISPType                          `yaml:"type"`
	Zones       []string                         `yaml:"zones,omitempty"`
	Credentials map[string]valueobject.SecretRef `yaml:"credentials"`
}

func (i *ISP) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("%w: isp name is required", domain.ErrInvalidName)
	}
	if i.Type == "" {
		i.Type = ISPType(i.Name)
	}
	switch i.Type {
	case ISPTypeAliyun, ISPTypeCloudflare, ISPTypeTencent:
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, i.Type)
	}
	if len(i.Credentials) == 0 {
		return domain.RequiredField("credentials")
	}
	for key, ref := range i.Credentials {
		if err := ref.Validate(); err != nil {
			return fmt.Errorf("credential %s: %w", key, err)
		}
	}
	return nil
}

// HostsZone reports whether zone is listed for this account. An empty list
// means every zone is tried.
func (i *ISP) HostsZone(zone string) bool {
	if len(i.Zones) == 0 {
		return true
	}
	for _, z := range i.Zones {
		if strings.EqualFold(strings.TrimSuffix(z, "."), zone) {
			return true
		}
	}
	return false
}
