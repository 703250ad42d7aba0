package bootstrap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// KernelConfig configures the kernel module.
type KernelConfig struct {
	// BackgroundJobs starts the job scheduler once every module has been
	// post-initialized. Jobs can be scheduled either way.
	BackgroundJobs bool `yaml:"background_jobs" toml:"background_jobs" json:"background_jobs" env:"BACKGROUND_JOBS" default:"true"`

	// Seconds enables the optional seconds field in schedule specs.
	Seconds bool `yaml:"seconds" toml:"seconds" json:"seconds" env:"SECONDS"`
}

// Job describes a background job registered with the kernel.
type Job struct {
	Name string
	Spec string
	Next time.Time
}

// KernelModule is the implicit first module of every run. It owns the
// background job scheduler modules register their periodic work with.
type KernelModule struct {
	cfg KernelConfig

	mu      sync.Mutex
	cron    *cron.Cron
	jobs    map[cron.EntryID]Job
	started bool
	logger  Logger
}

func newKernelModule(cfg KernelConfig) *KernelModule {
	return &KernelModule{cfg: cfg, jobs: make(map[cron.EntryID]Job), logger: nopLogger{}}
}

func (k *KernelModule) Name() string {
	return KernelModuleName
}

// PreInitialize creates the scheduler so that every later phase can register
// jobs with it.
func (k *KernelModule) PreInitialize(rt Runtime) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.logger = rt.Logger()
	opts := []cron.Option{
		cron.WithLogger(cronLogger{k.logger}),
		cron.WithChain(cron.Recover(cronLogger{k.logger})),
	}
	if k.cfg.Seconds {
		opts = append(opts, cron.WithSeconds())
	}
	k.cron = cron.New(opts...)
	return nil
}

// PostInitialize starts the scheduler when background jobs are enabled.
func (k *KernelModule) PostInitialize(rt Runtime) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.cfg.BackgroundJobs {
		k.logger.Debug("Background jobs disabled")
		return nil
	}
	k.cron.Start()
	k.started = true
	k.logger.Info("Background job scheduler started", "jobs", len(k.jobs))
	return nil
}

// Shutdown stops the scheduler and waits for running jobs to finish.
func (k *KernelModule) Shutdown(ctx context.Context) error {
	k.mu.Lock()
	if !k.started {
		k.mu.Unlock()
		return nil
	}
	k.started = false
	done := k.cron.Stop()
	k.mu.Unlock()

	select {
	case <-done.Done():
		k.logger.Info("Background job scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for background jobs: %w", ctx.Err())
	}
}

// Schedule registers fn to run on the cron schedule spec.
func (k *KernelModule) Schedule(spec, name string, fn func()) (cron.EntryID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.cron == nil {
		return 0, fmt.Errorf("%w: job %q scheduled before kernel pre-initialization", ErrKernelNotReady, name)
	}
	id, err := k.cron.AddFunc(spec, fn)
	if err != nil {
		return 0, fmt.Errorf("invalid schedule %q for job %q: %w", spec, name, err)
	}
	k.jobs[id] = Job{Name: name, Spec: spec}
	k.logger.Debug("Background job scheduled", "job", name, "spec", spec)
	return id, nil
}

// Jobs returns the registered jobs with their next activation time. Next is
// zero until the scheduler has started.
func (k *KernelModule) Jobs() []Job {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.cron == nil {
		return nil
	}
	var out []Job
	for _, e := range k.cron.Entries() {
		j, ok := k.jobs[e.ID]
		if !ok {
			continue
		}
		j.Next = e.Next
		out = append(out, j)
	}
	return out
}

// Running reports whether the scheduler is running.
func (k *KernelModule) Running() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.started
}

// cronLogger adapts Logger to cron.Logger.
type cronLogger struct {
	logger Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
