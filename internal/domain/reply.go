package domain

// Outcome is the terminal state of one reply orchestration.
type Outcome int

const (
	OutcomeLinked Outcome = iota + 1
	OutcomeRejected
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLinked:
		return "linked"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ActionState is the status of an action as read from its set memberships.
type ActionState string

const (
	ActionStateUnknown     ActionState = "unknown"
	ActionStateInitiated   ActionState = "initiated"
	ActionStateSucceeded   ActionState = "finished_successfully"
	ActionStateFailed      ActionState = "finished_unsuccessfully"
	ActionStateFinished    ActionState = "finished"
	ActionStateDeactivated ActionState = "deactivated"
)

// ActionStatus is the view of an action exposed over the API.
type ActionStatus struct {
	Action    Addr        `json:"action"`
	State     ActionState `json:"state"`
	Result    *Addr       `json:"result,omitempty"`
	ReplyText string      `json:"reply_text,omitempty"`
}
