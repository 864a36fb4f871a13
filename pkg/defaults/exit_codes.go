package defaults

// Exit codes for the CLI.
const (
	ExitSuccess       = 0 // Run finished without error verdicts
	ExitErrorsFound   = 1 // At least one test case ended with an error verdict
	ExitUserError     = 2 // Invalid arguments or configuration
	ExitInternalError = 4 // Unexpected internal error
)
