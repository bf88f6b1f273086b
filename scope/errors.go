package scope

import "errors"

const Namespace = "scoped"

var (
	// ErrTaskPanicked wraps the recovered value of a task panic when the
	// PanicAsError option is enabled.
	ErrTaskPanicked = errors.New(Namespace + ": task panicked")
	// ErrScopeSealed is the panic value of a spawn attempted after the
	// scope began draining.
	ErrScopeSealed = errors.New(Namespace + ": spawn on a sealed scope")
	// ErrCapability is the panic value of a spawn requiring a capability
	// the scope's backend does not implement.
	ErrCapability = errors.New(Namespace + ": backend does not implement capability")
)
