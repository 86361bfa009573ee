package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidName         = errors.New("invalid name")
	ErrInvalidIP           = errors.New("invalid IP address")
	ErrInvalidDomain       = errors.New("invalid domain")
	ErrInvalidHostname     = errors.New("invalid hostname")
	ErrInvalidEmail        = errors.New("invalid email")
	ErrInvalidPhone        = errors.New("invalid phone number")
	ErrInvalidCountry      = errors.New("invalid country code")
	ErrInvalidPeriod       = errors.New("invalid registration period")
	ErrInvalidType         = errors.New("invalid type")
	ErrEmptyValue          = errors.New("empty value")
	ErrRequired            = errors.New("required field missing")
	ErrMissingSecret       = errors.New("missing secret reference")
	ErrMissingCredential   = errors.New("missing credential")
	ErrConfigNotLoaded     = errors.New("config not loaded")
	ErrMissingReference    = errors.New("missing reference")
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrDuplicateName       = errors.New("duplicate name")

	ErrConfigReadFailed   = errors.New("config read failed")
	ErrConfigParseFailed  = errors.New("config parse failed")
	ErrConfigValidateFail = errors.New("config validation failed")
	ErrConfigNotFound     = errors.New("config not found")

	ErrStateReadFailed    = errors.New("state read failed")
	ErrStateWriteFailed   = errors.New("state write failed")
	ErrStateSerializeFail = errors.New("state serialization failed")

	ErrSessionClosed    = errors.New("registry session closed")
	ErrUnexpectedReply  = errors.New("unexpected registry reply")
	ErrNoRegistryForTLD = errors.New("no registry configured for TLD")

	ErrInvalidContactReference  = errors.New("invalid contact reference")
	ErrTooManyNameservers       = errors.New("too many nameservers")
	ErrTooFewNameservers        = errors.New("too few nameservers")
	ErrGlueAddressRequired      = errors.New("glue address required for in-bailiwick nameserver")
	ErrTransferAuthCodeRequired = errors.New("transfer requires a valid auth code")
	ErrAuthCodeUnavailable      = errors.New("auth code unavailable")

	ErrDNSError          = errors.New("DNS operation failed")
	ErrDNSDomainNotFound = errors.New("DNS domain not found")
)

func RequiredField(field string) error {
	return fmt.Errorf("%w: %s", ErrRequired, field)
}

func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

func WrapEntity(entity, name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s[%s]: %w", entity, name, err)
}

type OpError struct {
	Op    string
	Cause error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *OpError) Unwrap() error {
	return e.Cause
}

func NewOpError(op string, cause error) error {
	return &OpError{Op: op, Cause: cause}
}
