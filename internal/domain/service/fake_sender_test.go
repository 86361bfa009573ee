package service

import (
	"context"
	"fmt"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/contract"
)

type sentCommand struct {
	cmd  contract.Command
	body any
}

// scriptedSender answers each command with a handler and records every call.
type scriptedSender struct {
	calls    []sentCommand
	handlers map[contract.Command]func(body any) (any, error)
}

func newScriptedSender() *scriptedSender {
	return &scriptedSender{handlers: make(map[contract.Command]func(body any) (any, error))}
}

func (s *scriptedSender) on(cmd contract.Command, fn func(body any) (any, error)) *scriptedSender {
	s.handlers[cmd] = fn
	return s
}

func (s *scriptedSender) Send(_ context.Context, cmd contract.Command, body any) (*contract.Response, error) {
	s.calls = append(s.calls, sentCommand{cmd: cmd, body: body})
	h, ok := s.handlers[cmd]
	if !ok {
		return nil, fmt.Errorf("unexpected command %s", cmd)
	}
	v, err := h(body)
	if err != nil {
		return nil, err
	}
	return &contract.Response{Code: 1000, Message: "Command completed successfully", Body: v}, nil
}

func (s *scriptedSender) count(cmd contract.Command) int {
	n := 0
	for _, c := range s.calls {
		if c.cmd == cmd {
			n++
		}
	}
	return n
}

func (s *scriptedSender) mutations() int {
	n := 0
	for _, c := range s.calls {
		if c.cmd.Mutating() {
			n++
		}
	}
	return n
}

func (s *scriptedSender) bodies(cmd contract.Command) []any {
	var out []any
	for _, c := range s.calls {
		if c.cmd == cmd {
			out = append(out, c.body)
		}
	}
	return out
}

func registryErr(kind domain.ErrorKind, cmd contract.Command, code int) error {
	return &domain.RegistryError{Kind: kind, Registry: "test", Command: string(cmd), Code: code, Message: string(kind)}
}
