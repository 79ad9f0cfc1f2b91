package runner

import (
	"errors"
	"fmt"

	"github.com/sdelicata/dropbox-runner/pkg/config"
)

// ConfigurationError reports a missing or invalid configuration value. It is raised
// before any network call is made.
type ConfigurationError = config.ConfigurationError

// ErrAlreadyCompleted is returned by Run on a runner that has already run.
var ErrAlreadyCompleted = errors.New("runner already completed")

// TransferError reports a failed Dropbox call, an unparseable response body, or an
// unreadable local upload file.
type TransferError struct {
	Op  config.Operation
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer error: %s: %v", e.Op, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }
