package bracket

type ReadyStatus string

const (
	ReadyWaiting        ReadyStatus = "waiting"
	ReadyInProgress     ReadyStatus = "in_progress"
	ReadyReady          ReadyStatus = "ready"
	ReadyReadyCountdown ReadyStatus = "ready_countdown"
	ReadyExpired        ReadyStatus = "expired"
)

// ReadyCheck is the confirmation window opened at a match's scheduled time.
// All timestamps are epoch milliseconds.
type ReadyCheck struct {
	WindowStartAt int64       `json:"windowStartAt"`
	DeadlineAt    int64       `json:"deadlineAt"`
	VetoOpensAt   *int64      `json:"vetoOpensAt"`
	TeamAReady    bool        `json:"teamAReady"`
	TeamBReady    bool        `json:"teamBReady"`
	TeamAReadyAt  *int64      `json:"teamAReadyAt"`
	TeamBReadyAt  *int64      `json:"teamBReadyAt"`
	Status        ReadyStatus `json:"status"`
}

func (rc *ReadyCheck) BothReady() bool {
	return rc != nil && rc.TeamAReady && rc.TeamBReady
}

type VetoAction string

const (
	VetoBan     VetoAction = "ban"
	VetoPick    VetoAction = "pick"
	VetoDecider VetoAction = "decider"
)

type VetoStatus string

const (
	VetoInProgress VetoStatus = "in_progress"
	VetoDone       VetoStatus = "done"
)

type VetoEntry struct {
	Action VetoAction `json:"action"`
	Map    string     `json:"map"`
	TeamID string     `json:"teamId,omitempty"`
	UID    string     `json:"uid,omitempty"`
	Auto   bool       `json:"auto"`
	At     int64      `json:"at"`
}

type VetoState struct {
	BestOf        int          `json:"bestOf"`
	Script        []VetoAction `json:"script"`
	AvailableMaps []string     `json:"availableMaps"`
	History       []VetoEntry  `json:"history"`
	Picks         []string     `json:"picks"`
	Decider       string       `json:"decider,omitempty"`
	StepIndex     int          `json:"stepIndex"`
	NextAction    VetoAction   `json:"nextAction,omitempty"`
	NextTeamID    string       `json:"nextTeamId,omitempty"`
	TurnStartedAt int64        `json:"turnStartedAt"`
	Done          bool         `json:"done"`
	Status        VetoStatus   `json:"status"`
}
