package store

import (
	"time"

	"github.com/lib/pq"
)

type Student struct {
	StudentID  string    `gorm:"primaryKey;column:student_id" json:"student_id"`
	FamilyName string    `gorm:"not null;index" json:"family_name"`
	GivenName  string    `gorm:"not null;index" json:"given_name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (s Student) Info() UserInfo {
	return UserInfo{StudentID: s.StudentID, FamilyName: s.FamilyName, GivenName: s.GivenName}
}

// StudentPair binds a representative (StudentID1) and co-representative
// (StudentID2) for one calendar year.
type StudentPair struct {
	PairID     string    `gorm:"primaryKey;column:pair_id" json:"pair_id"`
	StudentID1 string    `gorm:"column:student_id1;not null;uniqueIndex:idx_student_pair_id1_year" json:"student_id1"`
	StudentID2 string    `gorm:"column:student_id2;not null;uniqueIndex:idx_student_pair_id2_year" json:"student_id2"`
	Year       int       `gorm:"not null;uniqueIndex:idx_student_pair_id1_year;uniqueIndex:idx_student_pair_id2_year" json:"year"`
	CreatedAt  time.Time `json:"created_at"`
}

type Locker struct {
	LockerID string       `gorm:"primaryKey;column:locker_id" json:"locker_id"`
	Location string       `json:"location"`
	Status   LockerStatus `gorm:"type:text;not null;default:'vacant';index" json:"status"`
}

// Floor is the leading digit of the locker id.
func (l Locker) Floor() int {
	if l.LockerID == "" {
		return 0
	}
	return int(l.LockerID[0] - '0')
}

// AssignmentRecord binds a pair to a locker for a year. Uniqueness of
// (pair_id, year) and (locker_id, year) among non-deleted rows is enforced by
// partial indexes created in db.Migrate.
type AssignmentRecord struct {
	RecordID  string     `gorm:"primaryKey;column:record_id" json:"record_id"`
	PairID    string     `gorm:"not null;index" json:"pair_id"`
	LockerID  string     `gorm:"not null;index" json:"locker_id"`
	Year      int        `gorm:"not null;index" json:"year"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}

// Auth is the short-lived session row of one in-flight ceremony.
type Auth struct {
	AuthID        string    `gorm:"primaryKey;column:auth_id" json:"auth_id"`
	MainAuthToken string    `gorm:"not null;uniqueIndex" json:"-"`
	CoAuthToken   string    `gorm:"not null;index" json:"-"`
	Phase         Phase     `gorm:"type:text;not null" json:"phase"`
	Flow          Flow      `gorm:"type:text;not null;default:'locker'" json:"flow"`
	IsSame        bool      `gorm:"not null;default:false" json:"-"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

type LockerAuthInfo struct {
	AuthID         string `gorm:"primaryKey;column:auth_id"`
	MainStudentID  string `gorm:"not null"`
	MainFamilyName string `gorm:"not null"`
	MainGivenName  string `gorm:"not null"`
	CoStudentID    string `gorm:"not null"`
	CoFamilyName   string `gorm:"not null"`
	CoGivenName    string `gorm:"not null"`
}

type CircleAuthInfo struct {
	AuthID            string `gorm:"primaryKey;column:auth_id"`
	MainStudentID     string `gorm:"not null"`
	MainFamilyName    string `gorm:"not null"`
	MainGivenName     string `gorm:"not null"`
	MainEmail         string
	MainPhone         string
	CoStudentID       string `gorm:"not null"`
	CoFamilyName      string `gorm:"not null"`
	CoGivenName       string `gorm:"not null"`
	CoEmail           string
	CoPhone           string
	OrganizationName  string `gorm:"not null"`
	OrganizationRuby  string
	OrganizationEmail string
	ClubType          string
	DocumentURLs      pq.StringArray `gorm:"type:text[]"`
}

type Organization struct {
	OrganizationID string    `gorm:"primaryKey;column:organization_id" json:"organization_id"`
	Name           string    `gorm:"not null;uniqueIndex" json:"organization_name"`
	Ruby           string    `json:"organization_ruby"`
	Email          string    `json:"organization_email"`
	ClubType       string    `json:"club_type"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Representatives struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	OrganizationID string    `gorm:"not null;uniqueIndex:idx_representatives_org_year" json:"organization_id"`
	Year           int       `gorm:"not null;uniqueIndex:idx_representatives_org_year" json:"year"`
	MainStudentID  string    `gorm:"not null;index" json:"main_student_id"`
	CoStudentID    string    `gorm:"not null;index" json:"co_student_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// Registration is one organization's yearly submission under document review.
type Registration struct {
	RegistrationID string             `gorm:"primaryKey;column:registration_id" json:"registration_id"`
	OrganizationID string             `gorm:"not null;uniqueIndex:idx_registration_org_year" json:"organization_id"`
	Year           int                `gorm:"not null;uniqueIndex:idx_registration_org_year" json:"year"`
	DocumentURLs   pq.StringArray     `gorm:"type:text[]" json:"document_urls"`
	Status         RegistrationStatus `gorm:"type:text;not null;default:'pending';index" json:"status"`
	ReviewComment  string             `json:"review_comment,omitempty"`
	ReviewedBy     *string            `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time         `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`

	Organization *Organization `gorm:"foreignKey:OrganizationID;references:OrganizationID" json:"organization,omitempty"`
}

type Admin struct {
	Username       string    `gorm:"primaryKey" json:"username"`
	HashedPassword string    `gorm:"not null" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// Period is a registration window for one flow, stored in the "time" table.
type Period struct {
	Name      string    `gorm:"primaryKey" json:"name"`
	StartAt   time.Time `gorm:"not null" json:"start_at"`
	EndAt     time.Time `gorm:"not null" json:"end_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Open reports whether t falls inside the window.
func (p Period) Open(t time.Time) bool {
	return !t.Before(p.StartAt) && t.Before(p.EndAt)
}

func (Student) TableName() string          { return "student" }
func (StudentPair) TableName() string      { return "student_pair" }
func (Locker) TableName() string           { return "locker" }
func (AssignmentRecord) TableName() string { return "assignment_record" }
func (Auth) TableName() string             { return "auth" }
func (LockerAuthInfo) TableName() string   { return "locker_auth_info" }
func (CircleAuthInfo) TableName() string   { return "circle_auth_info" }
func (Organization) TableName() string     { return "organization" }
func (Representatives) TableName() string  { return "representatives" }
func (Registration) TableName() string     { return "registration" }
func (Admin) TableName() string            { return "admin" }
func (Period) TableName() string           { return "time" }

// Models lists every table for migration.
func Models() []any {
	return []any{
		&Student{}, &StudentPair{}, &Locker{}, &AssignmentRecord{},
		&Auth{}, &LockerAuthInfo{}, &CircleAuthInfo{},
		&Organization{}, &Representatives{}, &Registration{},
		&Admin{}, &Period{},
	}
}
