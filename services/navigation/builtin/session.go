package builtin

// session tracks progress of an asynchronous execution against its planned path. controlStepIndex
// counts the steps of the current goal confirmed to have landed within tolerance and resetOffset
// maps the current goal's feedback back onto the planned path after a resubmission.
type session struct {
	controlStepIndex int
	resetOffset      int

	// equalStepsCount and equalStepsThreshold are reserved for stall detection and are not acted
	// upon.
	equalStepsCount     int
	equalStepsThreshold int
	lastStepValid       bool
}

func newSession(equalStepsThreshold int) *session {
	return &session{equalStepsThreshold: equalStepsThreshold}
}

// reset prepares the session for a fresh goal over a new path.
func (s *session) reset() {
	s.controlStepIndex = 0
	s.resetOffset = 0
	s.equalStepsCount = 0
	s.lastStepValid = false
}

// plannedIndex is the path index of the next step to be confirmed.
func (s *session) plannedIndex() int {
	return s.controlStepIndex + 1 + s.resetOffset
}

// advance confirms the next step.
func (s *session) advance() {
	s.controlStepIndex++
	s.equalStepsCount = 0
	s.lastStepValid = true
}

// rebase accounts for a goal resubmitted after the robot ran ahead of the confirmed steps.
func (s *session) rebase() {
	s.resetOffset += s.controlStepIndex + 1
	s.controlStepIndex = 0
}
