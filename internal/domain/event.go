package domain

const (
	EventNamePermissionsUpdated = "permissions.updated"
	EventNameExamTimeWarning    = "exam.time_warning"
	EventNameExamSubmitted      = "exam.submitted"
	EventNameExamExited         = "exam.exited"
)

type EventPermissionsUpdated struct {
	Permissions PermissionTable
}

func (EventPermissionsUpdated) Name() string { return EventNamePermissionsUpdated }

// EventExamTimeWarning is raised once per session when the countdown crosses the warning threshold.
type EventExamTimeWarning struct {
	SessionID        string
	Owner            string
	RemainingSeconds int
}

func (EventExamTimeWarning) Name() string { return EventNameExamTimeWarning }

type EventExamSubmitted struct {
	SessionID string
	Owner     string
	Result    Result
}

func (EventExamSubmitted) Name() string { return EventNameExamSubmitted }

type EventExamExited struct {
	SessionID string
	Owner     string
}

func (EventExamExited) Name() string { return EventNameExamExited }
