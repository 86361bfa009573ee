package valueobject

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/lite-lake/infra-regsync/internal/domain"
)

func TestSecretRef_LogValue(t *testing.T) {
	tests := []struct {
		name string
		ref  *SecretRef
	}{
		{"plain value", NewSecretRefPlain("my-password")},
		{"secret reference", NewSecretRefSecret("secret-name")},
		{"empty", &SecretRef{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			logger.Info("test", "secret", tt.ref)

			output := buf.String()
			if tt.ref.Plain != "" && strings.Contains(output, tt.ref.Plain) {
				t.Errorf("LogValue leaked plain value %q in output: %s", tt.ref.Plain, output)
			}
			if tt.ref.Secret != "" && strings.Contains(output, tt.ref.Secret) {
				t.Errorf("LogValue leaked secret reference %q in output: %s", tt.ref.Secret, output)
			}
			if !strings.Contains(output, "***") {
				t.Errorf("LogValue did not mask secret, output: %s", output)
			}
		})
	}
}

func TestSecretRef_UnmarshalYAML(t *testing.T) {
	var cfg struct {
		A SecretRef `yaml:"a"`
		B SecretRef `yaml:"b"`
	}
	input := "a: hunter2\nb:\n  secret: epp_password\n"
	if err := yaml.Unmarshal([]byte(input), &cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.A.Plain != "hunter2" || cfg.A.Secret != "" {
		t.Errorf("plain form decoded as %+v", cfg.A)
	}
	if cfg.B.Secret != "epp_password" || cfg.B.Plain != "" {
		t.Errorf("secret form decoded as %+v", cfg.B)
	}
}

func TestSecretRef_Resolve(t *testing.T) {
	secrets := map[string]string{"epp_password": "s3cret"}

	ref := NewSecretRefSecret("epp_password")
	got, err := ref.Resolve(secrets)
	if err != nil || got != "s3cret" {
		t.Errorf("Resolve() = %q, %v", got, err)
	}

	missing := NewSecretRefSecret("nope")
	if _, err := missing.Resolve(secrets); !errors.Is(err, domain.ErrMissingSecret) {
		t.Errorf("expected ErrMissingSecret, got %v", err)
	}

	plain := NewSecretRefPlain("inline")
	if got, _ := plain.Resolve(nil); got != "inline" {
		t.Errorf("plain Resolve() = %q", got)
	}

	empty := &SecretRef{}
	if err := empty.Validate(); !errors.Is(err, domain.ErrEmptyValue) {
		t.Errorf("expected ErrEmptyValue, got %v", err)
	}
}
