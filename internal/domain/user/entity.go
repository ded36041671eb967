// Package user contains the account model: identity, faculty, role and the
// registration rules. Point totals live on the User row but are only ever
// changed by the statistics aggregator in the stats package.
package user

import (
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROLE
// ══════════════════════════════════════════════════════════════════════════════

// Role is the authorization role of an account.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleStudent || r == RoleAdmin
}

// IsRanked reports whether accounts with this role appear on leaderboards.
func (r Role) IsRanked() bool {
	return r == RoleStudent
}

// ══════════════════════════════════════════════════════════════════════════════
// FACULTY
// ══════════════════════════════════════════════════════════════════════════════

// Faculty is the academic department of a user.
type Faculty string

const (
	FacultyComputing            Faculty = "FCI"
	FacultyEngineering          Faculty = "FOE"
	FacultyManagement           Faculty = "FOM"
	FacultyCreativeMultimedia   Faculty = "FCM"
	FacultyAppliedCommunication Faculty = "FAC"
	FacultyInformationScience   Faculty = "FIST"
	FacultyEngineeringTech      Faculty = "FET"
	FacultyLaw                  Faculty = "FOL"
)

var facultyNames = map[Faculty]string{
	FacultyComputing:            "Faculty of Computing & Informatics",
	FacultyEngineering:          "Faculty of Engineering",
	FacultyManagement:           "Faculty of Management",
	FacultyCreativeMultimedia:   "Faculty of Creative Multimedia",
	FacultyAppliedCommunication: "Faculty of Applied Communication",
	FacultyInformationScience:   "Faculty of Information Science & Technology",
	FacultyEngineeringTech:      "Faculty of Engineering & Technology",
	FacultyLaw:                  "Faculty of Law",
}

// AllFaculties returns the eight faculties in a stable order.
func AllFaculties() []Faculty {
	return []Faculty{
		FacultyComputing, FacultyEngineering, FacultyManagement, FacultyCreativeMultimedia,
		FacultyAppliedCommunication, FacultyInformationScience, FacultyEngineeringTech, FacultyLaw,
	}
}

// IsValid reports whether f is one of the eight faculties.
func (f Faculty) IsValid() bool {
	_, ok := facultyNames[f]
	return ok
}

// DisplayName returns the long name, e.g. "Faculty of Computing & Informatics (FCI)".
func (f Faculty) DisplayName() string {
	name, ok := facultyNames[f]
	if !ok {
		return string(f)
	}
	return name + " (" + string(f) + ")"
}

// ParseFaculty accepts a faculty code or its long display name, case-insensitively.
// The boolean is false when s names no known faculty.
func ParseFaculty(s string) (Faculty, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	code := Faculty(strings.ToUpper(s))
	if code.IsValid() {
		return code, true
	}
	for f := range facultyNames {
		if strings.EqualFold(s, f.DisplayName()) || strings.EqualFold(s, facultyNames[f]) {
			return f, true
		}
	}
	return "", false
}

// ══════════════════════════════════════════════════════════════════════════════
// USER
// ══════════════════════════════════════════════════════════════════════════════

// User is a registered account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	StudentID    string
	Faculty      Faculty
	Role         Role

	// TotalPoints and CurrentStreak are mutated only by the aggregator.
	TotalPoints   int
	CurrentStreak int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName returns "First Last".
func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRATION RULES
// ══════════════════════════════════════════════════════════════════════════════

// InstitutionDomain is the e-mail domain accepted at registration.
const InstitutionDomain = "mmu.edu.my"

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

const passwordSpecials = `!@#$%^&*(),.?":{}|<>`

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks syntax and that the address belongs to the institution.
func ValidateEmail(email string) error {
	const op = "ValidateEmail"
	email = NormalizeEmail(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return shared.InvalidSubmission("user", op, "email address is malformed")
	}
	at := strings.LastIndex(email, "@")
	host := email[at+1:]
	if host != InstitutionDomain && !strings.HasSuffix(host, "."+InstitutionDomain) {
		return shared.InvalidSubmission("user", op, "email must be an @%s address", InstitutionDomain)
	}
	return nil
}

// ValidatePassword enforces the password strength policy.
func ValidatePassword(password string) error {
	const op = "ValidatePassword"
	if len(password) < MinPasswordLength {
		return shared.InvalidSubmission("user", op, "password must be at least %d characters long", MinPasswordLength)
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	switch {
	case !upper:
		return shared.InvalidSubmission("user", op, "password must contain at least one uppercase letter")
	case !lower:
		return shared.InvalidSubmission("user", op, "password must contain at least one lowercase letter")
	case !digit:
		return shared.InvalidSubmission("user", op, "password must contain at least one number")
	case !special:
		return shared.InvalidSubmission("user", op, "password must contain at least one special character")
	}
	return nil
}

// Registration is the validated input for a new account.
type Registration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	StudentID string
	Faculty   string
}

// Validate checks every field and returns the parsed faculty.
func (r Registration) Validate() (Faculty, error) {
	if err := ValidateEmail(r.Email); err != nil {
		return "", err
	}
	if err := ValidatePassword(r.Password); err != nil {
		return "", err
	}
	if strings.TrimSpace(r.FirstName) == "" || strings.TrimSpace(r.LastName) == "" {
		return "", shared.InvalidSubmission("user", "Register", "first and last name are required")
	}
	if strings.TrimSpace(r.StudentID) == "" {
		return "", shared.InvalidSubmission("user", "Register", "student id is required")
	}
	f, ok := ParseFaculty(r.Faculty)
	if !ok {
		return "", shared.InvalidSubmission("user", "Register", "unknown faculty %q", r.Faculty)
	}
	return f, nil
}
