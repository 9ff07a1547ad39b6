package main

// Process exit codes.
const (
	ExitOK                 = 0
	ExitInvalidArgCount    = 1
	ExitInvalidWorkerCount = 2
	ExitUnknownArgument    = 3
	ExitRuntime            = 4
)

// ExitError carries the exit code for a failed invocation.
type ExitError struct {
	Code  int
	Err   error
	Usage bool
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func usageError(code int, err error) *ExitError {
	return &ExitError{Code: code, Err: err, Usage: true}
}
