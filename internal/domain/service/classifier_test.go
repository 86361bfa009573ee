package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/contract"
)

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier("test", contract.Profile{})

	tests := []struct {
		name    string
		code    int
		message string
		want    domain.ErrorKind
	}{
		{"authentication error", 2200, "Authentication error", domain.KindAuthFailure},
		{"authorization error", 2201, "Authorization error", domain.KindPermissionDenied},
		{"parameter syntax", 2005, "Parameter value syntax error", domain.KindValidationFailure},
		{"object exists", 2302, "Object exists", domain.KindValidationFailure},
		{"object does not exist", 2303, "Object does not exist", domain.KindObjectNotFound},
		{"status prohibits", 2304, "Object status prohibits operation", domain.KindPermissionDenied},
		{"session limit", 2502, "Session limit exceeded", domain.KindRateLimited},
		{"command failed", 2400, "Command failed", domain.KindUnknown},
		{"unknown code with rate message", 4290, "Rate limit exceeded", domain.KindRateLimited},
		{"unknown code with not found message", 404, "Domain not found", domain.KindObjectNotFound},
		{"unknown code without message", 9999, "", domain.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.code, tt.message); got != tt.want {
				t.Errorf("Classify(%d, %q) = %s, want %s", tt.code, tt.message, got, tt.want)
			}
		})
	}
}

func TestClassifier_ProfileOverrides(t *testing.T) {
	c := NewClassifier("test", contract.Profile{
		ErrorCodes: map[int]domain.ErrorKind{
			2400: domain.KindRateLimited,
		},
		ErrorMessages: map[string]domain.ErrorKind{
			"belongs to another registrar": domain.KindPermissionDenied,
			"another":                      domain.KindValidationFailure,
		},
		SessionFatalCodes: []int{2400},
	})

	if got := c.Classify(2400, "Command failed"); got != domain.KindRateLimited {
		t.Errorf("code override: got %s", got)
	}
	if got := c.Classify(2303, "Domain belongs to another registrar"); got != domain.KindPermissionDenied {
		t.Errorf("longest message rule should win over the EPP table: got %s", got)
	}
	if !c.SessionFatal(2400) {
		t.Error("expected profile session-fatal code")
	}
	if !c.SessionFatal(2501) {
		t.Error("expected standard session-fatal code")
	}
	if c.SessionFatal(2303) {
		t.Error("2303 must not be session fatal")
	}
}

func TestClassifier_Wrap(t *testing.T) {
	c := NewClassifier("sandbox", contract.Profile{})

	t.Run("nil", func(t *testing.T) {
		if c.Wrap(contract.CmdDomainInfo, nil) != nil {
			t.Error("expected nil")
		}
	})

	t.Run("result error keeps payloads", func(t *testing.T) {
		raw := &contract.ResultError{
			Code:     2303,
			Message:  "Object does not exist",
			Fields:   []string{"name"},
			Request:  []byte("<info/>"),
			Response: []byte("<result code=\"2303\"/>"),
		}
		err := c.Wrap(contract.CmdDomainInfo, raw)
		if err.Kind != domain.KindObjectNotFound {
			t.Errorf("expected object_not_found, got %s", err.Kind)
		}
		if err.Registry != "sandbox" || err.Command != string(contract.CmdDomainInfo) {
			t.Errorf("unexpected registry/command: %s %s", err.Registry, err.Command)
		}
		if string(err.Request) != "<info/>" || len(err.Response) == 0 {
			t.Error("expected raw payloads to be attached")
		}
		if !errors.Is(err, domain.ErrObjectNotFound) {
			t.Error("expected errors.Is to match the kind sentinel")
		}
		if domain.KindOf(err) != domain.KindObjectNotFound {
			t.Error("KindOf mismatch")
		}
	})

	t.Run("transport error", func(t *testing.T) {
		err := c.Wrap(contract.CmdPollRequest, io.EOF)
		if err.Kind != domain.KindUnknown {
			t.Errorf("expected unknown, got %s", err.Kind)
		}
		if !errors.Is(err, io.EOF) {
			t.Error("expected cause to be preserved")
		}
	})

	t.Run("aborted request", func(t *testing.T) {
		err := c.Wrap(contract.CmdPollRequest, context.DeadlineExceeded)
		if err.Message != "request aborted" {
			t.Errorf("unexpected message %q", err.Message)
		}
	})

	t.Run("already classified", func(t *testing.T) {
		orig := &domain.RegistryError{Kind: domain.KindRateLimited}
		if got := c.Wrap(contract.CmdDomainCheck, orig); got != orig {
			t.Error("expected classified error to pass through")
		}
	})
}
