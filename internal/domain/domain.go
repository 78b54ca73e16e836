package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Role is the access level of a user. RoleSuperadmin is a universal-access sentinel
// and has no entry in the PermissionTable.
type Role string

const (
	RoleNone       Role = ""
	RoleStudent    Role = "student"
	RoleTeacher    Role = "teacher"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// ManagedRoles are the roles that own a row in the PermissionTable.
var ManagedRoles = []Role{RoleAdmin, RoleTeacher, RoleStudent}

func (r Role) Valid() bool {
	return r == RoleSuperadmin || r.Managed()
}

// Managed reports whether the role is gated by the PermissionTable.
func (r Role) Managed() bool {
	for _, m := range ManagedRoles {
		if r == m {
			return true
		}
	}
	return false
}

// DashboardID is the permission id of the role's dashboard switch.
func (r Role) DashboardID() string {
	return string(r) + "-dashboard"
}

type Permission struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// RolePermissionSet holds the dashboard switch of a role and the feature toggles behind it.
// Features are keyed by a short feature key, e.g. "tests", while Permission.ID carries the
// namespaced id, e.g. "student-tests".
type RolePermissionSet struct {
	Dashboard Permission            `json:"dashboard"`
	Features  map[string]Permission `json:"features"`
}

// PermissionTable maps every managed role to its permission set.
type PermissionTable map[Role]RolePermissionSet

// Clone returns a deep copy of the table.
func (t PermissionTable) Clone() PermissionTable {
	if t == nil {
		return nil
	}

	c := make(PermissionTable, len(t))
	for r, set := range t {
		features := make(map[string]Permission, len(set.Features))
		for k, f := range set.Features {
			features[k] = f
		}
		c[r] = RolePermissionSet{
			Dashboard: set.Dashboard,
			Features:  features,
		}
	}

	return c
}

type ScholarLevel string

const (
	ScholarLevelJunior ScholarLevel = "junior"
	ScholarLevelRising ScholarLevel = "rising"
	ScholarLevelElite  ScholarLevel = "elite"
)

// User is the profile of the current session user.
type User struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Role         Role         `json:"role"`
	AvatarURL    string       `json:"avatar_url,omitempty"`
	ScholarLevel ScholarLevel `json:"scholar_level,omitempty"`
	Department   string       `json:"department,omitempty"`
	InstituteID  string       `json:"institute_id,omitempty"`
}

type userCtxKey struct{}

// ContextWithUser stores the session user in ctx.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext returns the session user, or nil when unauthenticated.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// RoleFromContext returns the session role, RoleNone when unauthenticated.
func RoleFromContext(ctx context.Context) Role {
	if u := UserFromContext(ctx); u != nil {
		return u.Role
	}
	return RoleNone
}

type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple-choice"
	QuestionTypeTrueFalse      QuestionType = "true-false"
	QuestionTypeMultipleSelect QuestionType = "multiple-select"
	QuestionTypeShortAnswer    QuestionType = "short-answer"
)

// Test is an exam definition. It is immutable once loaded into a session.
type Test struct {
	ID              string     `json:"id" validate:"required"`
	Title           string     `json:"title" validate:"required"`
	Subject         string     `json:"subject" validate:"required"`
	DurationSeconds int        `json:"duration_seconds" validate:"gt=0"`
	Questions       []Question `json:"questions" validate:"required,min=1,dive"`
	Instructions    string     `json:"instructions"`
	SecurityNotices []string   `json:"security_notices"`
}

// QuestionIndex returns the position of the question with the given id, or -1.
func (t *Test) QuestionIndex(id string) int {
	for i := range t.Questions {
		if t.Questions[i].ID == id {
			return i
		}
	}
	return -1
}

type Question struct {
	ID            string        `json:"id" validate:"required"`
	Type          QuestionType  `json:"type" validate:"oneof=multiple-choice true-false multiple-select short-answer"`
	Text          string        `json:"text" validate:"required"`
	Options       []Option      `json:"options,omitempty" validate:"required_unless=Type short-answer,dive"`
	CorrectAnswer CorrectAnswer `json:"correct_answer"`
}

// HasOption reports whether id is one of the question's options.
func (q *Question) HasOption(id string) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

type Option struct {
	ID   string `json:"id" validate:"required"`
	Text string `json:"text" validate:"required"`
}

// CorrectAnswer is a single option id or literal (Value), or a set of option ids (Values)
// for multiple-select questions.
type CorrectAnswer struct {
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
}

// Answer is the value captured for one question. Scalar question types use Value,
// multiple-select uses Selected.
type Answer struct {
	Value    string   `json:"value,omitempty"`
	Selected []string `json:"selected,omitempty"`
}

// Empty reports whether the answer counts as unanswered.
func (a Answer) Empty() bool {
	return a.Value == "" && len(a.Selected) == 0
}

func (a Answer) clone() Answer {
	if a.Selected == nil {
		return a
	}
	a.Selected = append([]string(nil), a.Selected...)
	return a
}

// CloneAnswers returns a deep copy of an answer map.
func CloneAnswers(in map[string]Answer) map[string]Answer {
	out := make(map[string]Answer, len(in))
	for k, a := range in {
		out[k] = a.clone()
	}
	return out
}

type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseInProgress Phase = "in_progress"
	PhaseSubmitted  Phase = "submitted"
)

type SubmitReason string

const (
	SubmitReasonManual  SubmitReason = "manual"
	SubmitReasonTimeout SubmitReason = "timeout"
)

// Result is the graded outcome of a submitted exam session.
type Result struct {
	SessionID   string          `json:"session_id"`
	TestID      string          `json:"test_id"`
	Owner       string          `json:"owner"`
	Total       int             `json:"total"`
	Correct     int             `json:"correct"`
	Incorrect   int             `json:"incorrect"`
	Skipped     int             `json:"skipped"`
	Score       decimal.Decimal `json:"score"`
	TimeSpent   time.Duration   `json:"time_spent"`
	Reason      SubmitReason    `json:"reason"`
	SubmittedAt time.Time       `json:"submitted_at"`
}
