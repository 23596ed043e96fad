package waves

import "errors"

// Configuration errors. Validation failures wrap ErrInvalidLevel together
// with the specific cause, so both errors.Is checks hold.
var (
	ErrInvalidLevel      = errors.New("invalid level")
	ErrNilLevel          = errors.New("level is missing")
	ErrNoWaves           = errors.New("level has no waves")
	ErrIntervalMismatch  = errors.New("spawn interval count does not match wave count")
	ErrNegativeInterval  = errors.New("spawn interval is negative")
	ErrEmptyWave         = errors.New("wave has no enemy groups")
	ErrInvalidGroupCount = errors.New("enemy group count must be positive")
	ErrUnknownEnemy      = errors.New("enemy kind is not defined")
	ErrInvalidEnemyKind  = errors.New("enemy kind cannot be spawned")
	ErrNoSpawnPoints     = errors.New("no spawn points available")
	ErrNilDependency     = errors.New("required dependency is nil")
)

// Engine lifecycle errors
var (
	ErrNotInitialized     = errors.New("engine is not initialized")
	ErrAlreadyInitialized = errors.New("engine is already initialized")
	ErrUnsupportedFormat  = errors.New("unsupported level file format")
)
