package buildmatrix

import "github.com/pkg/errors"

var (
	// ErrEmptyConfig is returned when a config defines nothing to run.
	ErrEmptyConfig = errors.New("config defines nothing to run")
	// ErrEmptyMatrixRow is returned when a matrix row sets no variable.
	ErrEmptyMatrixRow = errors.New("matrix row has no variables")
	// ErrEmptyPlatform is returned when a platform entry is blank.
	ErrEmptyPlatform = errors.New("platform must not be blank")
	// ErrDuplicateVariable is returned when an environment map sets the same
	// variable twice.
	ErrDuplicateVariable = errors.New("duplicate environment variable")
	// ErrEmptyCommand is returned when a command entry is blank.
	ErrEmptyCommand = errors.New("command must not be blank")
	// ErrConfigMustBeSet is returned when a runner is started without a
	// config.
	ErrConfigMustBeSet = errors.New("config must be set")
	// ErrCallbackMustBeSet is returned when a watch is started without a
	// callback to hand the reports to.
	ErrCallbackMustBeSet = errors.New("callback must be set")
)
