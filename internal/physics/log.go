package physics

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/san-kum/rigidsim/internal/dynamo"
)

// LogLevel selects how much the simulator reports through its logger.
type LogLevel int

const (
	LogNone LogLevel = iota
	LogOne
	LogFull
)

func (l LogLevel) String() string {
	switch l {
	case LogNone:
		return "none"
	case LogOne:
		return "one"
	case LogFull:
		return "full"
	}
	return fmt.Sprintf("LogLevel(%d)", int(l))
}

// ParseLogLevel accepts none, one or full.
func ParseLogLevel(s string) (LogLevel, error) {
	switch s {
	case "", "none":
		return LogNone, nil
	case "one":
		return LogOne, nil
	case "full":
		return LogFull, nil
	}
	return LogNone, fmt.Errorf("%w: log level %q", dynamo.ErrInvalidConfig, s)
}

func (s *Simulator) enabled(lvl LogLevel) bool {
	return lvl != LogNone && lvl <= s.logLevel
}

func (s *Simulator) logInfo(lvl LogLevel, msg string, kv ...any) {
	if !s.enabled(lvl) {
		return
	}
	s.log.V(int(lvl)-1).Info(msg, kv...)
}

func (s *Simulator) logError(lvl LogLevel, err error, msg string, kv ...any) {
	if !s.enabled(lvl) {
		return
	}
	s.log.Error(err, msg, kv...)
}

// Logger returns the logger the simulator reports through.
func (s *Simulator) Logger() logr.Logger { return s.log }

// SetLogger replaces the logger.
func (s *Simulator) SetLogger(l logr.Logger) { s.log = l }

// SetLogLevel changes the reporting level.
func (s *Simulator) SetLogLevel(l LogLevel) { s.logLevel = l }

func (s *Simulator) LogLevel() LogLevel { return s.logLevel }

// Pool exhaustion and invalid-free messages.
const (
	msgRigidBodyFull        = "run out of rigid body pool"
	msgParticleFull         = "run out of rigid particle pool"
	msgCollisionBodyFull    = "run out of collision body pool"
	msgConstraintFull       = "run out of constraint pool"
	msgConstraintHeaderFull = "run out of constraint header pool"
	msgControllerFull       = "run out of controller pool"
	msgSensorFull           = "run out of sensor pool"
	msgStackInfoFull        = "run out of stack info pool"
	msgStackHeaderFull      = "run out of stack header pool"
	msgSolverBufferFull     = "solver buffer full, collision result dropped"
	msgInvalidFree          = "trying to free an object not allocated from this simulator"
	msgNumericalInstability = "numerical instability, step skipped for body"
)
