package goLoginRisk

import (
	"errors"

	"github.com/CrypticVoid/goLoginRisk/internal/audit"
	"github.com/CrypticVoid/goLoginRisk/internal/flows"
)

var (
	// ErrEngineNotReady is an exported constant or variable used by the login risk engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrEngineClosed is an exported constant or variable used by the login risk engine.
	ErrEngineClosed = errors.New("engine closed")
	// ErrTransportRequired is an exported constant or variable used by the login risk engine.
	ErrTransportRequired = errors.New("transport is required")
	// ErrAttemptSuperseded is an exported constant or variable used by the login risk engine.
	ErrAttemptSuperseded = errors.New("login attempt superseded by a newer attempt")

	// ErrContractViolation is an exported constant or variable used by the login risk engine.
	ErrContractViolation = audit.ErrContractViolation
	// ErrIncompleteSuccess is an exported constant or variable used by the login risk engine.
	ErrIncompleteSuccess = flows.ErrIncompleteSuccess
)
