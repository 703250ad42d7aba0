package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/GoCodeAlone/bootstrap/lifecycle"
)

func orderedRun(t *testing.T, defs ...Definition) *Orchestrator {
	t.Helper()
	startup := defs[len(defs)-1].Name
	order, err := NewOrderer(nil).Order(collectionOf(startup, defs...))
	require.NoError(t, err)
	return NewOrchestrator(order, newTestLogger(t))
}

func TestOrchestratorPhasesAreBarriers(t *testing.T) {
	rec := &recorder{}
	o := orderedRun(t, def(rec, "A"), def(rec, "B", "A"), def(rec, "Startup", "B"))

	require.NoError(t, o.Start(context.Background()))
	assert.Equal(t, lifecycle.StateRunning, o.State())

	assert.Equal(t, []string{
		"A.PreInitialize", "B.PreInitialize", "Startup.PreInitialize",
		"A.Initialize", "B.Initialize", "Startup.Initialize",
		"A.PostInitialize", "B.PostInitialize", "Startup.PostInitialize",
	}, rec.Calls())

	require.NoError(t, o.Shutdown(context.Background()))
	assert.Equal(t, []string{"Startup", "B", "A"}, rec.Filter(lifecycle.PhaseShutdown))
	assert.Equal(t, lifecycle.StateShutDown, o.State())
}

func TestOrchestratorKernelRunsFirst(t *testing.T) {
	rec := &recorder{}
	o := orderedRun(t, def(rec, "app"))
	require.NoError(t, o.Start(context.Background()))

	app, ok := o.Runtime().Module("app")
	require.True(t, ok)
	rt := app.(*testModule).runtime
	require.NotNil(t, rt)

	k := rt.Kernel()
	require.NotNil(t, k)
	_, err := k.Schedule("@every 1h", "noop", func() {})
	assert.NoError(t, err, "kernel must be pre-initialized before other modules")
	require.NoError(t, o.Shutdown(context.Background()))
}

func TestOrchestratorFailureAbortsPhase(t *testing.T) {
	rec := &recorder{}
	o := orderedRun(t,
		def(rec, "A"),
		failingDef(rec, "B", lifecycle.PhaseInitialize, errBoom, "A"),
		def(rec, "Startup", "B"),
	)

	err := o.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPhaseExecution)
	assert.ErrorIs(t, err, errBoom)

	var pe *PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "B", pe.Module)
	assert.Equal(t, lifecycle.PhaseInitialize, pe.Phase)

	assert.Equal(t, []string{"A", "B"}, rec.Filter(lifecycle.PhaseInitialize))
	assert.Empty(t, rec.Filter(lifecycle.PhasePostInitialize))
	assert.Equal(t, lifecycle.StatePreInitialized, o.State())
}

func TestOrchestratorPanicBecomesPhaseError(t *testing.T) {
	rec := &recorder{}
	order, err := NewOrderer(nil).Order(collectionOf("app", Definition{
		Name: "app",
		New: func(Settings) (any, error) {
			return &testModule{name: "app", rec: rec, panicOn: lifecycle.PhasePostInitialize}, nil
		},
	}))
	require.NoError(t, err)
	o := NewOrchestrator(order, newTestLogger(t))

	err = o.Start(context.Background())
	var pe *PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "app", pe.Module)
	assert.Equal(t, lifecycle.PhasePostInitialize, pe.Phase)
	assert.Contains(t, err.Error(), "panic: module app panicked")
}

func TestOrchestratorShutdownOnlyPreInitialized(t *testing.T) {
	rec := &recorder{}
	o := orderedRun(t,
		def(rec, "A"),
		failingDef(rec, "B", lifecycle.PhasePreInitialize, errBoom, "A"),
		def(rec, "Startup", "B"),
	)

	require.Error(t, o.Start(context.Background()))
	require.NoError(t, o.Shutdown(context.Background()))

	assert.Equal(t, []string{"A"}, rec.Filter(lifecycle.PhaseShutdown))
}

func TestOrchestratorShutdownAggregatesErrors(t *testing.T) {
	rec := &recorder{}
	second := errors.New("second failure")
	o := orderedRun(t,
		failingDef(rec, "A", lifecycle.PhaseShutdown, second),
		def(rec, "B", "A"),
		failingDef(rec, "Startup", lifecycle.PhaseShutdown, errShutdown, "B"),
	)
	require.NoError(t, o.Start(context.Background()))

	err := o.Shutdown(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errShutdown)
	assert.ErrorIs(t, err, second)
	assert.Len(t, multierr.Errors(err), 2)

	assert.Equal(t, []string{"Startup", "B", "A"}, rec.Filter(lifecycle.PhaseShutdown), "a failing module must not stop the others")
}

func TestOrchestratorShutdownIdempotent(t *testing.T) {
	rec := &recorder{}
	o := orderedRun(t, def(rec, "A"), def(rec, "app", "A"))
	require.NoError(t, o.Start(context.Background()))

	require.NoError(t, o.Shutdown(context.Background()))
	require.NoError(t, o.Shutdown(context.Background()))
	assert.Len(t, rec.Filter(lifecycle.PhaseShutdown), 2)
}

func TestOrchestratorStartTwice(t *testing.T) {
	o := orderedRun(t, def(nil, "app"))
	require.NoError(t, o.Start(context.Background()))
	assert.ErrorIs(t, o.Start(context.Background()), ErrAlreadyStarted)
	require.NoError(t, o.Shutdown(context.Background()))
	assert.ErrorIs(t, o.Start(context.Background()), ErrAlreadyStarted)
}

func TestOrchestratorOptionalCallbacks(t *testing.T) {
	c := NewModuleCollection("app")
	c.Add(&ModuleDescriptor{Name: KernelModuleName, Instance: newKernelModule(KernelConfig{})})
	c.Add(&ModuleDescriptor{Name: "app", Instance: &bareModule{name: "app"}})
	order, err := NewOrderer(nil).Order(c)
	require.NoError(t, err)

	o := NewOrchestrator(order, nil)
	require.NoError(t, o.Start(context.Background()))
	require.NoError(t, o.Shutdown(context.Background()))
}

func TestOrchestratorScopedLogger(t *testing.T) {
	ml := &MockLogger{}
	ml.On("Debug", "scoped", []any{"module", "app", "k", "v"}).Return().Once()
	ml.On("Debug", mock.Anything, mock.Anything).Return()
	ml.On("Info", mock.Anything, mock.Anything).Return()

	order, err := NewOrderer(nil).Order(collectionOf("app", Definition{
		Name: "app",
		New: func(Settings) (any, error) {
			return &loggingModule{name: "app"}, nil
		},
	}))
	require.NoError(t, err)

	o := NewOrchestrator(order, ml)
	require.NoError(t, o.Start(context.Background()))
	ml.AssertCalled(t, "Debug", "scoped", []any{"module", "app", "k", "v"})
}

// loggingModule writes one record through the runtime logger.
type loggingModule struct {
	name string
}

func (m *loggingModule) Name() string { return m.name }

func (m *loggingModule) Initialize(rt Runtime) error {
	rt.Logger().Debug("scoped", "k", "v")
	return nil
}
