package bootstrap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/GoCodeAlone/bootstrap/lifecycle"
)

// Bootstrap errors
var (
	// Discovery and creation errors
	ErrUnresolvedDependency    = errors.New("unresolved module dependency")
	ErrNotAModule              = errors.New("instance is not a module")
	ErrNotConstructible        = errors.New("module could not be constructed")
	ErrDuplicateRoleAssignment = errors.New("duplicate role assignment")
	ErrRoleMissing             = errors.New("required module role missing")
	ErrModuleAlreadyRegistered = errors.New("module already registered")
	ErrStartupModuleEmpty      = errors.New("startup module name is empty")

	// Ordering errors
	ErrCyclicDependency  = errors.New("cyclic module dependency")
	ErrStartupDependency = errors.New("module depends on the startup module")

	// Lifecycle errors
	ErrPhaseExecution      = errors.New("module phase execution failed")
	ErrAlreadyStarted      = errors.New("lifecycle already started")
	ErrAlreadyBootstrapped = errors.New("already bootstrapped")
	ErrKernelNotReady      = errors.New("kernel module not pre-initialized")

	// Plug-in errors
	ErrPlugInLoad       = errors.New("plug-in load failed")
	ErrFactoryNotFound  = errors.New("module factory not found")
	ErrInvalidManifest  = errors.New("invalid plug-in manifest")
	ErrUnsupportedAsset = errors.New("unsupported plug-in file")

	// Settings errors
	ErrSettingInvalid = errors.New("invalid module setting")

	// Option errors
	ErrLoggerNil = errors.New("logger is nil")
)

// CycleError reports modules that depend on each other in a loop.
// Path starts and ends with the same module.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCyclicDependency, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCyclicDependency
}

// Modules returns every distinct module taking part in the cycle.
func (e *CycleError) Modules() []string {
	if len(e.Path) < 2 {
		return e.Path
	}
	return e.Path[:len(e.Path)-1]
}

// PhaseError wraps the error a module callback returned (or the panic it raised).
type PhaseError struct {
	Module string
	Phase  lifecycle.Phase
	Err    error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %s of module %q: %v", ErrPhaseExecution, e.Phase, e.Module, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

func (e *PhaseError) Is(target error) bool {
	return target == ErrPhaseExecution
}

// PlugInLoadError names the file a plug-in source could not load.
type PlugInLoadError struct {
	Source string
	Path   string
	Err    error
}

func (e *PlugInLoadError) Error() string {
	return fmt.Sprintf("%s: %s: %s: %v", ErrPlugInLoad, e.Source, e.Path, e.Err)
}

func (e *PlugInLoadError) Unwrap() error {
	return e.Err
}

func (e *PlugInLoadError) Is(target error) bool {
	return target == ErrPlugInLoad
}
