package store

// LockerStatus is the inventory state of a single locker.
type LockerStatus string

const (
	StatusVacant    LockerStatus = "vacant"
	StatusOccupied  LockerStatus = "occupied"
	StatusOutOfWork LockerStatus = "out-of-work"
)

func (s LockerStatus) Valid() bool {
	switch s {
	case StatusVacant, StatusOccupied, StatusOutOfWork:
		return true
	}
	return false
}

// Phase is the position of an auth session in the two-party ceremony.
// Phases only move forward: main_auth -> co_auth -> auth_check.
type Phase string

const (
	PhaseMainAuth  Phase = "main_auth"
	PhaseCoAuth    Phase = "co_auth"
	PhaseAuthCheck Phase = "auth_check"
)

// Flow names the workflow an auth session belongs to.
type Flow string

const (
	FlowLocker Flow = "locker"
	FlowCircle Flow = "circle"
)

type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationApproved RegistrationStatus = "approved"
	RegistrationRejected RegistrationStatus = "rejected"
)

type UserInfo struct {
	StudentID  string `json:"student_id"`
	FamilyName string `json:"family_name"`
	GivenName  string `json:"given_name"`
}

// PairInfo is a pair rehydrated with both members' names.
type PairInfo struct {
	MainUser UserInfo `json:"main_user"`
	CoUser   UserInfo `json:"co_user"`
}

type RepresentativeInfo struct {
	UserInfo
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type OrganizationInfo struct {
	Name     string `json:"organization_name"`
	Ruby     string `json:"organization_ruby"`
	Email    string `json:"organization_email"`
	ClubType string `json:"club_type"`
}

// Documents are the three review forms an organization submits.
type Documents struct {
	ActivityPlanURL string `json:"activity_plan_url"`
	BudgetPlanURL   string `json:"budget_plan_url"`
	MemberListURL   string `json:"member_list_url"`
}

func (d Documents) Slice() []string {
	return []string{d.ActivityPlanURL, d.BudgetPlanURL, d.MemberListURL}
}

func DocumentsFromSlice(urls []string) Documents {
	var d Documents
	if len(urls) > 0 {
		d.ActivityPlanURL = urls[0]
	}
	if len(urls) > 1 {
		d.BudgetPlanURL = urls[1]
	}
	if len(urls) > 2 {
		d.MemberListURL = urls[2]
	}
	return d
}

// Payload is the flow-specific data attached to an auth session. The only
// implementations are LockerPayload and CirclePayload.
type Payload interface {
	Flow() Flow
	// MainStudent and CoStudent identify the two members of the ceremony.
	MainStudent() UserInfo
	CoStudent() UserInfo
	isPayload()
}

type LockerPayload struct {
	Main UserInfo `json:"main_user"`
	Co   UserInfo `json:"co_user"`
}

func (LockerPayload) Flow() Flow              { return FlowLocker }
func (p LockerPayload) MainStudent() UserInfo { return p.Main }
func (p LockerPayload) CoStudent() UserInfo   { return p.Co }
func (LockerPayload) isPayload()              {}

type CirclePayload struct {
	Main         RepresentativeInfo `json:"main_user"`
	Co           RepresentativeInfo `json:"co_user"`
	Organization OrganizationInfo   `json:"organization"`
	Documents    Documents          `json:"documents"`
}

func (CirclePayload) Flow() Flow              { return FlowCircle }
func (p CirclePayload) MainStudent() UserInfo { return p.Main.UserInfo }
func (p CirclePayload) CoStudent() UserInfo   { return p.Co.UserInfo }
func (CirclePayload) isPayload()              {}

// Session is an auth row together with its payload.
type Session struct {
	Auth    Auth
	Payload Payload
}

// Pair returns the ceremony members as a PairInfo.
func (s *Session) Pair() PairInfo {
	return PairInfo{MainUser: s.Payload.MainStudent(), CoUser: s.Payload.CoStudent()}
}
