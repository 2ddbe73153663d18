package safeguard

// Stage is the escalation state derived from a conversation's warning count.
type Stage int

const (
	StageClean Stage = iota
	StageFirstWarning
	StageSecondWarning
	StageTerminated
)

func (s Stage) String() string {
	switch s {
	case StageClean:
		return "clean"
	case StageFirstWarning:
		return "first_warning"
	case StageSecondWarning:
		return "second_warning"
	case StageTerminated:
		return "terminated"
	}
	return "unknown"
}

// Escalator maps warning counts to stages and enforcement messages.
type Escalator struct {
	strategy ResponseStrategy
}

// NewEscalator returns an Escalator for rs. A threshold below 1 is treated as 1.
func NewEscalator(rs ResponseStrategy) *Escalator {
	if rs.EscalationPath.Threshold < 1 {
		rs.EscalationPath.Threshold = 1
	}
	return &Escalator{strategy: rs}
}

// Threshold returns the violation count at which a conversation terminates.
func (e *Escalator) Threshold() int {
	return e.strategy.EscalationPath.Threshold
}

// StageFor evaluates count against the threshold.
func (e *Escalator) StageFor(count int) Stage {
	switch {
	case count <= 0:
		return StageClean
	case count >= e.Threshold():
		return StageTerminated
	case count > 1:
		return StageSecondWarning
	default:
		return StageFirstWarning
	}
}

// Escalate records one more violation on count and returns the new count,
// its stage, and the message to send back.
func (e *Escalator) Escalate(count int) (int, Stage, string) {
	count++
	stage := e.StageFor(count)
	return count, stage, e.Message(stage)
}

// Message returns the enforcement text for stage. StageClean has none.
func (e *Escalator) Message(stage Stage) string {
	switch stage {
	case StageTerminated:
		return e.strategy.FinalAction
	case StageSecondWarning:
		return e.strategy.SecondaryResponse
	case StageFirstWarning:
		return e.strategy.InitialWarning
	}
	return ""
}
