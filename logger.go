package bootstrap

// Logger defines the structured logger the engine writes to.
//
// Arguments are key-value pairs:
//
//	logger.Info("Module created", "module", "db", "plugin", false)
//
// *slog.Logger satisfies this interface directly.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}

// moduleLogger tags every record with the module it was written for.
type moduleLogger struct {
	inner  Logger
	module string
}

func newModuleLogger(inner Logger, module string) Logger {
	return &moduleLogger{inner: inner, module: module}
}

func (l *moduleLogger) with(args []any) []any {
	return append([]any{"module", l.module}, args...)
}

func (l *moduleLogger) Info(msg string, args ...any)  { l.inner.Info(msg, l.with(args)...) }
func (l *moduleLogger) Error(msg string, args ...any) { l.inner.Error(msg, l.with(args)...) }
func (l *moduleLogger) Warn(msg string, args ...any)  { l.inner.Warn(msg, l.with(args)...) }
func (l *moduleLogger) Debug(msg string, args ...any) { l.inner.Debug(msg, l.with(args)...) }
