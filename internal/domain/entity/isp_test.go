package entity

import (
	"errors"
	"testing"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/valueobject"
)

func TestISP_Validate(t *testing.T) {
	tests := []struct {
		name    string
		isp     ISP
		wantErr error
	}{
		{
			name:    "missing name",
			isp:     ISP{},
			wantErr: domain.ErrInvalidName,
		},
		{
			name:    "unsupported type",
			isp:     ISP{Name: "route53"},
			wantErr: domain.ErrUnsupportedProvider,
		},
		{
			name:    "missing credentials",
			isp:     ISP{Name: "cloudflare", Type: ISPTypeCloudflare},
			wantErr: domain.ErrRequired,
		},
		{
			name: "invalid credential",
			isp: ISP{
				Name: "cloudflare",
				Type: ISPTypeCloudflare,
				Credentials: map[string]valueobject.SecretRef{
					"api_token": {},
				},
			},
			wantErr: domain.ErrEmptyValue,
		},
		{
			name: "valid with explicit type",
			isp: ISP{
				Name: "cf-main",
				Type: ISPTypeCloudflare,
				Credentials: map[string]valueobject.SecretRef{
					"api_token": {Plain: "token"},
				},
			},
		},
		{
			name: "valid with implicit type from name",
			isp: ISP{
				Name: "aliyun",
				Credentials: map[string]valueobject.SecretRef{
					"access_key_id":     {Secret: "ali_id"},
					"access_key_secret": {Secret: "ali_secret"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.isp.Validate()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Errorf("Validate() unexpected error = %v", err)
			}
		})
	}
}

func TestISP_ValidateDefaultsType(t *testing.T) {
	isp := ISP{Name: "tencent", Credentials: map[string]valueobject.SecretRef{"secret_id": {Plain: "x"}}}
	if err := isp.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if isp.Type != ISPTypeTencent {
		t.Errorf("Type = %s, want %s", isp.Type, ISPTypeTencent)
	}
}

func TestISP_HostsZone(t *testing.T) {
	all := ISP{Name: "cloudflare"}
	if !all.HostsZone("example.com") {
		t.Error("ISP without zones should host every zone")
	}

	listed := ISP{Name: "cloudflare", Zones: []string{"Example.com.", "example.net"}}
	tests := []struct {
		zone string
		want bool
	}{
		{"example.com", true},
		{"example.net", true},
		{"example.org", false},
	}
	for _, tt := range tests {
		if got := listed.HostsZone(tt.zone); got != tt.want {
			t.Errorf("HostsZone(%q) = %v, want %v", tt.zone, got, tt.want)
		}
	}
}
