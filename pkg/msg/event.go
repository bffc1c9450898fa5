package msg

type JoinResponse struct {
	Response
	Name string `json:"name"`
}

type VerifyResponse struct {
	Response
	Valid bool `json:"valid"`
}

type NumberResponse struct {
	Response
	Number int `json:"number"`
}

type RemoveNumberResponse struct {
	Response
	CooldownSeconds int `json:"cooldownSeconds"`
}

type CooldownResponse struct {
	Response
	RemainingSeconds int `json:"remainingSeconds"`
}

type DashboardResponse struct {
	Response
	CurrentNum int  `json:"currentNum"`
	LastNum    int  `json:"lastNum"`
	MyNumber   *int `json:"myNumber"`
	Position   *int `json:"position"`
}

type LoginResponse struct {
	Response
	Username string `json:"username"`
}

type ProgressResponse struct {
	Response
	CurrentNum int `json:"currentNum"`
	LastNum    int `json:"lastNum"`
}

type TicketEntry struct {
	Name   string `json:"name"`
	Number int    `json:"number"`
}

type LostFocusEntry struct {
	Name   string `json:"name"`
	Number *int   `json:"number"`

	// "Disconnected" when set by the presence sweep, absent when the
	// client reported the focus change.
	Reason string `json:"reason,omitempty"`
}

type WaitingListResponse struct {
	Response
	WaitingList       []TicketEntry    `json:"waitingList"`
	CurrentNum        int              `json:"currentNum"`
	LastNum           int              `json:"lastNum"`
	CurrentStudent    *TicketEntry     `json:"currentStudent"`
	LostFocusStudents []LostFocusEntry `json:"lostFocusStudents"`
	AvgWaitMsec       int64            `json:"avgWaitMsec"`
}

type JoinedStudent struct {
	Name     string `json:"name"`
	Number   *int   `json:"number"`
	HasFocus bool   `json:"hasFocus"`
}

type JoinedStudentsResponse struct {
	Response
	Students      []JoinedStudent `json:"students"`
	TotalStudents int             `json:"totalStudents"`
}

type TeacherEntry struct {
	Username string `json:"username"`
}

type TeacherListResponse struct {
	Response
	Teachers []TeacherEntry `json:"teachers"`
}
