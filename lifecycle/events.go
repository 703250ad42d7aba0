package lifecycle

// CloudEvent types emitted while a bootstrap run progresses.
// They use reverse domain notation as the CloudEvents spec recommends.
const (
	EventTypeBootstrapStarted   = "com.bootstrap.run.started"
	EventTypeBootstrapCompleted = "com.bootstrap.run.completed"
	EventTypeBootstrapFailed    = "com.bootstrap.run.failed"

	EventTypeModuleDiscovered = "com.bootstrap.module.discovered"
	EventTypeModuleCreated    = "com.bootstrap.module.created"

	EventTypePhaseStarted   = "com.bootstrap.phase.started"
	EventTypePhaseCompleted = "com.bootstrap.phase.completed"

	EventTypeModulePhaseCompleted = "com.bootstrap.module.phase.completed"
	EventTypeModulePhaseFailed    = "com.bootstrap.module.phase.failed"

	EventTypeShutdownStarted   = "com.bootstrap.shutdown.started"
	EventTypeShutdownCompleted = "com.bootstrap.shutdown.completed"
)

// EventSource is the CloudEvents source attribute used by the engine.
const EventSource = "bootstrap"

// ModulePhaseData is the payload of module phase events.
type ModulePhaseData struct {
	Module     string  `json:"module"`
	Phase      string  `json:"phase"`
	PlugIn     bool    `json:"plugin"`
	DurationMS float64 `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
}

// PhaseData is the payload of whole-phase events.
type PhaseData struct {
	Phase   string `json:"phase"`
	Modules int    `json:"modules"`
}

// RunData is the payload of run-level events.
type RunData struct {
	StartupModule string   `json:"startup_module"`
	Order         []string `json:"order,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// ModuleData is the payload of module discovery and creation events.
type ModuleData struct {
	Module string `json:"module"`
	PlugIn bool   `json:"plugin"`
}
