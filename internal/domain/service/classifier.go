package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/contract"
)

// eppResultKinds maps the RFC 5730 failure result codes onto the shared
// taxonomy. Profiles may override single codes.
var eppResultKinds = map[int]domain.ErrorKind{
	2000: domain.KindValidationFailure,
	2001: domain.KindValidationFailure,
	2002: domain.KindValidationFailure,
	2003: domain.KindValidationFailure,
	2004: domain.KindValidationFailure,
	2005: domain.KindValidationFailure,
	2100: domain.KindUnknown,
	2101: domain.KindUnknown,
	2102: domain.KindUnknown,
	2103: domain.KindUnknown,
	2104: domain.KindUnknown,
	2105: domain.KindValidationFailure,
	2106: domain.KindValidationFailure,
	2200: domain.KindAuthFailure,
	2201: domain.KindPermissionDenied,
	2202: domain.KindValidationFailure,
	2300: domain.KindValidationFailure,
	2301: domain.KindValidationFailure,
	2302: domain.KindValidationFailure,
	2303: domain.KindObjectNotFound,
	2304: domain.KindPermissionDenied,
	2305: domain.KindValidationFailure,
	2306: domain.KindValidationFailure,
	2307: domain.KindUnknown,
	2308: domain.KindValidationFailure,
	2400: domain.KindUnknown,
	2500: domain.KindUnknown,
	2501: domain.KindAuthFailure,
	2502: domain.KindRateLimited,
}

// eppSessionFatal codes close the connection on the registry side.
var eppSessionFatal = []int{2500, 2501, 2502}

var defaultMessageKinds = map[string]domain.ErrorKind{
	"rate limit":        domain.KindRateLimited,
	"too many requests": domain.KindRateLimited,
	"does not exist":    domain.KindObjectNotFound,
	"not found":         domain.KindObjectNotFound,
	"authentication":    domain.KindAuthFailure,
	"not authorized":    domain.KindPermissionDenied,
}

type messageRule struct {
	needle string
	kind   domain.ErrorKind
}

type Classifier struct {
	registry        string
	codes           map[int]domain.ErrorKind
	messages        []messageRule
	defaultMessages []messageRule
	fatal           map[int]bool
}

func NewClassifier(registry string, profile contract.Profile) *Classifier {
	c := &Classifier{
		registry:        registry,
		codes:           profile.ErrorCodes,
		messages:        sortRules(profile.ErrorMessages),
		defaultMessages: sortRules(defaultMessageKinds),
		fatal:           make(map[int]bool),
	}
	for _, code := range eppSessionFatal {
		c.fatal[code] = true
	}
	for _, code := range profile.SessionFatalCodes {
		c.fatal[code] = true
	}
	return c
}

// sortRules orders rules longest needle first so the most specific wins.
func sortRules(m map[string]domain.ErrorKind) []messageRule {
	rules := make([]messageRule, 0, len(m))
	for needle, kind := range m {
		rules = append(rules, messageRule{needle: strings.ToLower(needle), kind: kind})
	}
	sort.Slice(rules, func(i, j int) bool {
		if len(rules[i].needle) != len(rules[j].needle) {
			return len(rules[i].needle) > len(rules[j].needle)
		}
		return rules[i].needle < rules[j].needle
	})
	return rules
}

// Classify resolves a raw code and message in this order: profile code
// override, profile message rule, standard EPP code, generic message rule.
func (c *Classifier) Classify(code int, message string) domain.ErrorKind {
	if kind, ok := c.codes[code]; ok {
		return kind
	}
	msg := strings.ToLower(message)
	if kind, ok := matchRules(c.messages, msg); ok {
		return kind
	}
	if kind, ok := eppResultKinds[code]; ok {
		return kind
	}
	if kind, ok := matchRules(c.defaultMessages, msg); ok {
		return kind
	}
	return domain.KindUnknown
}

func matchRules(rules []messageRule, msg string) (domain.ErrorKind, bool) {
	if msg == "" {
		return "", false
	}
	for _, r := range rules {
		if strings.Contains(msg, r.needle) {
			return r.kind, true
		}
	}
	return "", false
}

// SessionFatal reports whether the registry drops the session after code.
func (c *Classifier) SessionFatal(code int) bool {
	return c.fatal[code]
}

// Wrap classifies any error returned by a connection. Registry result errors
// keep their raw payloads; anything else is a transport failure of kind
// unknown.
func (c *Classifier) Wrap(cmd contract.Command, err error) *domain.RegistryError {
	if err == nil {
		return nil
	}
	var already *domain.RegistryError
	if errors.As(err, &already) {
		return already
	}
	var re *contract.ResultError
	if errors.As(err, &re) {
		return &domain.RegistryError{
			Kind:     c.Classify(re.Code, re.Message),
			Registry: c.registry,
			Command:  string(cmd),
			Code:     re.Code,
			Message:  re.Message,
			Fields:   re.Fields,
			Request:  re.Request,
			Response: re.Response,
			Cause:    err,
		}
	}
	msg := "transport failure"
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		msg = "request aborted"
	}
	return &domain.RegistryError{
		Kind:     domain.KindUnknown,
		Registry: c.registry,
		Command:  string(cmd),
		Message:  msg,
		Cause:    err,
	}
}

func validationError(cmd contract.Command, message string, fields ...string) *domain.RegistryError {
	return &domain.RegistryError{
		Kind:    domain.KindValidationFailure,
		Command: string(cmd),
		Message: message,
		Fields:  fields,
	}
}
