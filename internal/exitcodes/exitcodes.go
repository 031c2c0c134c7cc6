package exitcodes

// Exit codes for winsweep
// These codes form the operational contract with deployment tooling
const (
	Success      = 0 // Run completed; step failures do not change this unless -strict is set
	InvalidPlan  = 2 // Plan file invalid or missing
	StepsFailed  = 3 // One or more steps failed and -strict was set
	RuntimeError = 4 // Runtime error during execution
)
