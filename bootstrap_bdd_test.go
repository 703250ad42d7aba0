package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/GoCodeAlone/bootstrap/lifecycle"
)

// Static errors for BDD assertions
var (
	errBDDExpectedSuccess = errors.New("expected bootstrap to succeed")
	errBDDExpectedFailure = errors.New("expected bootstrap to fail")
	errBDDUnexpectedOrder = errors.New("unexpected module order")
	errBDDWrongError      = errors.New("unexpected error")
	errBDDPhaseBarrier    = errors.New("phase barrier violated")
	errBDDNotPlugIn       = errors.New("module is not a plug-in")
)

// BootstrapBDDTestContext holds the state of one scenario.
type BootstrapBDDTestContext struct {
	rec          *recorder
	defs         []Definition
	plugIns      []Definition
	bootstrapper *Bootstrapper
	handle       *Handle
	lastError    error
}

func (c *BootstrapBDDTestContext) reset() {
	c.rec = &recorder{}
	c.defs = nil
	c.plugIns = nil
	c.bootstrapper = nil
	c.handle = nil
	c.lastError = nil
}

func (c *BootstrapBDDTestContext) aModuleCatalog() error {
	c.reset()
	return nil
}

func (c *BootstrapBDDTestContext) moduleWithNoDependencies(name string) error {
	c.defs = append(c.defs, def(c.rec, name))
	return nil
}

func (c *BootstrapBDDTestContext) moduleDependingOn(name, deps string) error {
	c.defs = append(c.defs, def(c.rec, name, splitNames(deps)...))
	return nil
}

func (c *BootstrapBDDTestContext) moduleDependingOnThatFailsDuring(name, deps, phase string) error {
	p, err := parsePhase(phase)
	if err != nil {
		return err
	}
	c.defs = append(c.defs, failingDef(c.rec, name, p, errBoom, splitNames(deps)...))
	return nil
}

func (c *BootstrapBDDTestContext) aPlugInSourceContributingModule(name string) error {
	c.plugIns = append(c.plugIns, def(c.rec, name))
	return nil
}

func (c *BootstrapBDDTestContext) iBootstrap(startup string) error {
	opts := []Option{
		WithModules(c.defs...),
		WithKernelConfig(KernelConfig{}),
	}
	if len(c.plugIns) > 0 {
		opts = append(opts, WithPlugInSources(NewStaticPlugInSource(&Assembly{Name: "bdd-plugins", Modules: c.plugIns})))
	}
	b, err := New(startup, opts...)
	if err != nil {
		c.lastError = err
		return nil
	}
	c.bootstrapper = b
	c.handle, c.lastError = b.Initialize(context.Background())
	return nil
}

func (c *BootstrapBDDTestContext) iBootstrapTheSameRunAgain() error {
	_, c.lastError = c.bootstrapper.Initialize(context.Background())
	return nil
}

func (c *BootstrapBDDTestContext) theBootstrapShouldSucceed() error {
	if c.lastError != nil || c.handle == nil {
		return fmt.Errorf("%w: %v", errBDDExpectedSuccess, c.lastError)
	}
	return nil
}

func (c *BootstrapBDDTestContext) theExecutionOrderShouldBe(expected string) error {
	got := c.handle.Order()
	if !slices.Equal(got, splitNames(expected)) {
		return fmt.Errorf("%w: got %v, want %s", errBDDUnexpectedOrder, got, expected)
	}
	return nil
}

func (c *BootstrapBDDTestContext) theExecutionOrderShouldStartWithAndEndWith(first, last string) error {
	got := c.handle.Order()
	if got[0] != first || got[len(got)-1] != last {
		return fmt.Errorf("%w: got %v", errBDDUnexpectedOrder, got)
	}
	return nil
}

func (c *BootstrapBDDTestContext) everyModuleShouldBePreInitializedBeforeAnyModuleIsInitialized() error {
	calls := c.rec.Calls()
	lastPre := -1
	firstInit := len(calls)
	for i, call := range calls {
		switch {
		case strings.HasSuffix(call, "."+lifecycle.PhasePreInitialize.String()):
			lastPre = i
		case strings.HasSuffix(call, "."+lifecycle.PhaseInitialize.String()) && i < firstInit:
			firstInit = i
		}
	}
	if lastPre > firstInit {
		return fmt.Errorf("%w: %v", errBDDPhaseBarrier, calls)
	}
	return nil
}

func (c *BootstrapBDDTestContext) moduleShouldBeAPlugIn(name string) error {
	if !slices.Contains(c.handle.PlugIns(), name) {
		return fmt.Errorf("%w: %s not in %v", errBDDNotPlugIn, name, c.handle.PlugIns())
	}
	return nil
}

func (c *BootstrapBDDTestContext) iShutTheRunDown() error {
	return c.handle.Shutdown(context.Background())
}

func (c *BootstrapBDDTestContext) theShutdownOrderShouldBe(expected string) error {
	got := c.rec.Filter(lifecycle.PhaseShutdown)
	if !slices.Equal(got, splitNames(expected)) {
		return fmt.Errorf("%w: shutdown %v, want %s", errBDDUnexpectedOrder, got, expected)
	}
	return nil
}

func (c *BootstrapBDDTestContext) expectError(target error) error {
	if c.lastError == nil {
		return errBDDExpectedFailure
	}
	if !errors.Is(c.lastError, target) {
		return fmt.Errorf("%w: %v is not %v", errBDDWrongError, c.lastError, target)
	}
	return nil
}

func (c *BootstrapBDDTestContext) theBootstrapShouldFailWithACyclicDependencyError() error {
	return c.expectError(ErrCyclicDependency)
}

func (c *BootstrapBDDTestContext) theBootstrapShouldFailWithAnUnresolvedDependencyError() error {
	return c.expectError(ErrUnresolvedDependency)
}

func (c *BootstrapBDDTestContext) theBootstrapShouldFailWithAnAlreadyBootstrappedError() error {
	return c.expectError(ErrAlreadyBootstrapped)
}

func (c *BootstrapBDDTestContext) theBootstrapShouldFailInPhaseOfModule(phase, module string) error {
	var pe *PhaseError
	if !errors.As(c.lastError, &pe) {
		return fmt.Errorf("%w: %v is not a phase error", errBDDWrongError, c.lastError)
	}
	if pe.Module != module || pe.Phase.String() != phase {
		return fmt.Errorf("%w: failed in %s of %s", errBDDWrongError, pe.Phase, pe.Module)
	}
	return nil
}

func (c *BootstrapBDDTestContext) theErrorShouldMention(text string) error {
	if c.lastError == nil || !strings.Contains(c.lastError.Error(), text) {
		return fmt.Errorf("%w: %v does not mention %s", errBDDWrongError, c.lastError, text)
	}
	return nil
}

func splitNames(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parsePhase(name string) (lifecycle.Phase, error) {
	for _, p := range []lifecycle.Phase{lifecycle.PhasePreInitialize, lifecycle.PhaseInitialize, lifecycle.PhasePostInitialize, lifecycle.PhaseShutdown} {
		if p.String() == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", name)
}

func TestBootstrapLifecycleBDD(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			testContext := &BootstrapBDDTestContext{}

			ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
				testContext.reset()
				return ctx, nil
			})
			ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
				if testContext.handle != nil {
					_ = testContext.handle.Shutdown(context.Background())
				}
				return ctx, nil
			})

			// Background
			ctx.Step(`^a module catalog$`, testContext.aModuleCatalog)

			// Module declarations
			ctx.Step(`^module "([^"]*)" with no dependencies$`, testContext.moduleWithNoDependencies)
			ctx.Step(`^module "([^"]*)" depending on "([^"]*)"$`, testContext.moduleDependingOn)
			ctx.Step(`^module "([^"]*)" depending on "([^"]*)" that fails during "([^"]*)"$`, testContext.moduleDependingOnThatFailsDuring)
			ctx.Step(`^a plug-in source contributing module "([^"]*)"$`, testContext.aPlugInSourceContributingModule)

			// Actions
			ctx.Step(`^I bootstrap "([^"]*)"$`, testContext.iBootstrap)
			ctx.Step(`^I bootstrap the same run again$`, testContext.iBootstrapTheSameRunAgain)
			ctx.Step(`^I shut the run down$`, testContext.iShutTheRunDown)

			// Outcomes
			ctx.Step(`^the bootstrap should succeed$`, testContext.theBootstrapShouldSucceed)
			ctx.Step(`^the execution order should be "([^"]*)"$`, testContext.theExecutionOrderShouldBe)
			ctx.Step(`^the execution order should start with "([^"]*)" and end with "([^"]*)"$`, testContext.theExecutionOrderShouldStartWithAndEndWith)
			ctx.Step(`^every module should be pre-initialized before any module is initialized$`, testContext.everyModuleShouldBePreInitializedBeforeAnyModuleIsInitialized)
			ctx.Step(`^module "([^"]*)" should be a plug-in$`, testContext.moduleShouldBeAPlugIn)
			ctx.Step(`^the shutdown order should be "([^"]*)"$`, testContext.theShutdownOrderShouldBe)
			ctx.Step(`^the bootstrap should fail with a cyclic dependency error$`, testContext.theBootstrapShouldFailWithACyclicDependencyError)
			ctx.Step(`^the bootstrap should fail with an unresolved dependency error$`, testContext.theBootstrapShouldFailWithAnUnresolvedDependencyError)
			ctx.Step(`^the bootstrap should fail with an already bootstrapped error$`, testContext.theBootstrapShouldFailWithAnAlreadyBootstrappedError)
			ctx.Step(`^the bootstrap should fail in phase "([^"]*)" of module "([^"]*)"$`, testContext.theBootstrapShouldFailInPhaseOfModule)
			ctx.Step(`^the error should mention "([^"]*)"$`, testContext.theErrorShouldMention)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/bootstrap_lifecycle.feature"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
