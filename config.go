package ucub

import "log/slog"

// DefaultStepLimit is the instruction budget used when Config.StepLimit is zero.
const DefaultStepLimit = 1_000_000

// Config holds compilation and execution options.
type Config struct {
	// BaseAddress is the address of the unit's first instruction (default: 0).
	BaseAddress int

	// Logger receives debug records from the compiler (one per loop and
	// per unit) and from the reference interpreter (runtime faults).
	// If nil, records are discarded.
	Logger *slog.Logger

	// StepLimit caps the number of instructions Program.Run executes.
	// Zero selects DefaultStepLimit; a negative value removes the cap.
	StepLimit int

	// POSIXRegex enables POSIX leftmost-longest matching for ~ and !~.
	// When false (default), uses leftmost-first matching.
	POSIXRegex *bool
}

// applyDefaults fills in default values for unset Config fields.
func (c *Config) applyDefaults() {
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.StepLimit == 0 {
		c.StepLimit = DefaultStepLimit
	}
}

func (c *Config) posixRegex() bool {
	return c.POSIXRegex != nil && *c.POSIXRegex
}
