package entity

import (
	"errors"
	"testing"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/valueobject"
)

func TestRegistryCredentials_Validate(t *testing.T) {
	tests := []struct {
		name        string
		credentials RegistryCredentials
		wantErr     error
	}{
		{
			name:        "empty username",
			credentials: RegistryCredentials{Password: *valueobject.NewSecretRefPlain("pass")},
			wantErr:     domain.ErrEmptyValue,
		},
		{
			name:        "empty password",
			credentials: RegistryCredentials{Username: *valueobject.NewSecretRefPlain("user")},
			wantErr:     domain.ErrEmptyValue,
		},
		{
			name: "valid plain credentials",
			credentials: RegistryCredentials{
				Username: *valueobject.NewSecretRefPlain("user"),
				Password: *valueobject.NewSecretRefPlain("pass"),
			},
		},
		{
			name: "valid secret references",
			credentials: RegistryCredentials{
				Username: *valueobject.NewSecretRefSecret("reg_user"),
				Password: *valueobject.NewSecretRefSecret("reg_pass"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.credentials.Validate()
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

func validRegistry() Registry {
	return Registry{
		Name:     "sandbox",
		Type:     RegistryTypeSandbox,
		Endpoint: "file://.regsync/sandbox.yaml",
		TLDs:     []string{".test", "example"},
		Credentials: RegistryCredentials{
			Username: *valueobject.NewSecretRefPlain("alice"),
			Password: *valueobject.NewSecretRefSecret("alice_pw"),
		},
	}
}

func TestRegistry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Registry)
		wantErr error
	}{
		{name: "valid", mutate: func(r *Registry) {}},
		{name: "missing name", mutate: func(r *Registry) { r.Name = "" }, wantErr: domain.ErrInvalidName},
		{name: "missing type", mutate: func(r *Registry) { r.Type = "" }, wantErr: domain.ErrRequired},
		{name: "missing endpoint", mutate: func(r *Registry) { r.Endpoint = "" }, wantErr: domain.ErrRequired},
		{name: "missing tlds", mutate: func(r *Registry) { r.TLDs = nil }, wantErr: domain.ErrRequired},
		{name: "empty tld", mutate: func(r *Registry) { r.TLDs = []string{"."} }, wantErr: domain.ErrInvalidDomain},
		{name: "min nameservers too high", mutate: func(r *Registry) { r.MinNameservers = 6 }, wantErr: domain.ErrInvalidType},
		{name: "missing password", mutate: func(r *Registry) { r.Credentials.Password = valueobject.SecretRef{} }, wantErr: domain.ErrEmptyValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRegistry()
			tt.mutate(&r)
			err := r.Validate()
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

func TestRegistry_ServesTLD(t *testing.T) {
	r := validRegistry()
	for tld, want := range map[string]bool{
		"test":     true,
		".TEST":    true,
		"example":  true,
		"com":      false,
		"testing":  false,
		".example": true,
	} {
		if got := r.ServesTLD(tld); got != want {
			t.Errorf("ServesTLD(%q) = %v, want %v", tld, got, want)
		}
	}
}

func TestRegistry_Option(t *testing.T) {
	r := validRegistry()
	r.Options = map[string]string{"approve_after": "1h", "empty": ""}

	if got := r.Option("approve_after", "5d"); got != "1h" {
		t.Errorf("Option(approve_after) = %q", got)
	}
	if got := r.Option("empty", "fallback"); got != "fallback" {
		t.Errorf("Option(empty) = %q, want fallback", got)
	}
	if got := r.Option("missing", "fallback"); got != "fallback" {
		t.Errorf("Option(missing) = %q, want fallback", got)
	}
}
