package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
)

func validRegistration() Registration {
	return Registration{
		Email:     "Alice.Tan@student.mmu.edu.my",
		Password:  "Green#Earth1",
		FirstName: "Alice",
		LastName:  "Tan",
		StudentID: "1211100001",
		Faculty:   "fci",
	}
}

func TestRegistration_Validate(t *testing.T) {
	f, err := validRegistration().Validate()
	require.NoError(t, err)
	assert.Equal(t, FacultyComputing, f)
}

func TestRegistration_Rejects(t *testing.T) {
	tests := map[string]func(r *Registration){
		"foreign domain":  func(r *Registration) { r.Email = "alice@gmail.com" },
		"lookalike":       func(r *Registration) { r.Email = "alice@evilmmu.edu.my" },
		"malformed email": func(r *Registration) { r.Email = "not-an-email" },
		"short password":  func(r *Registration) { r.Password = "Aa1!" },
		"no upper":        func(r *Registration) { r.Password = "green#earth1" },
		"no lower":        func(r *Registration) { r.Password = "GREEN#EARTH1" },
		"no digit":        func(r *Registration) { r.Password = "Green#Earth" },
		"no special":      func(r *Registration) { r.Password = "GreenEarth1" },
		"missing name":    func(r *Registration) { r.FirstName = " " },
		"missing id":      func(r *Registration) { r.StudentID = "" },
		"unknown faculty": func(r *Registration) { r.Faculty = "FXX" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			r := validRegistration()
			mutate(&r)
			_, err := r.Validate()
			assert.True(t, shared.IsInvalidSubmission(err), "got %v", err)
		})
	}
}

func TestParseFaculty(t *testing.T) {
	f, ok := ParseFaculty("Faculty of Law (FOL)")
	require.True(t, ok)
	assert.Equal(t, FacultyLaw, f)

	f, ok = ParseFaculty("faculty of engineering")
	require.True(t, ok)
	assert.Equal(t, FacultyEngineering, f)

	_, ok = ParseFaculty("")
	assert.False(t, ok)
	assert.Len(t, AllFaculties(), 8)
	assert.Equal(t, "Faculty of Computing & Informatics (FCI)", FacultyComputing.DisplayName())
}

func TestRole(t *testing.T) {
	assert.True(t, RoleStudent.IsRanked())
	assert.False(t, RoleAdmin.IsRanked())
	assert.False(t, Role("teacher").IsValid())
}

func TestPassword_HashAndCheck(t *testing.T) {
	hash, err := HashPassword("Green#Earth1", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, "Green#Earth1", hash)
	assert.True(t, CheckPassword(hash, "Green#Earth1"))
	assert.False(t, CheckPassword(hash, "green#earth1"))
}
