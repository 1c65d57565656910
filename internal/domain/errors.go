package domain

import "errors"

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidSessionID   = errors.New("invalid session id")
	ErrAgentNotRegistered = errors.New("agent not registered")
	ErrAgentNotFound      = errors.New("agent not found")
	ErrBuiltinAgent       = errors.New("agent is built in")
	ErrTeamNotFound       = errors.New("team not found")
	ErrEmptyChain         = errors.New("agent chain is empty")
	ErrSecretNotFound     = errors.New("secret not found")
)
