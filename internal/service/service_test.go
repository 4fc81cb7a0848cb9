package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"campus_identity/internal/credential"
	"campus_identity/internal/domain"
	"campus_identity/internal/store"
	"campus_identity/internal/testutil"
	"campus_identity/internal/utils"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "service-test-secret-0123456789abcdef"

type fixture struct {
	db       *gorm.DB
	repo     *store.Store
	hasher   *credential.Manager
	tokens   *utils.TokenService
	reg      *Registrar
	accounts *Accounts
	dir      *Directory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := testutil.NewDB(t)
	repo := store.New(gdb)
	f := &fixture{
		db:     gdb,
		repo:   repo,
		hasher: credential.NewManager(bcrypt.MinCost, 4),
		tokens: utils.NewTokenService(testSecret, "campus-identity", utils.DefaultTokenTTL),
	}
	f.reg = NewRegistrar(repo, f.hasher, f.tokens)
	f.accounts = NewAccounts(repo, f.hasher, f.tokens)
	f.dir = NewDirectory(repo)
	return f
}

func studentRegistration(email, reg, roll string) Registration {
	return Registration{
		Account: Account{
			Name:               "Student " + reg,
			Email:              email,
			RegistrationNumber: reg,
			Password:           "password123",
			Role:               domain.RoleStudent,
			Department:         "Computer Science",
		},
		Profile: &StudentProfileInput{RollNumber: roll, Batch: "2022", Semester: 1},
	}
}

func teacherRegistration(email, reg, employeeID string) Registration {
	return Registration{
		Account: Account{
			Name:               "Teacher " + reg,
			Email:              email,
			RegistrationNumber: reg,
			Password:           "password123",
			Role:               domain.RoleTeacher,
			Department:         "Mathematics",
		},
		Profile: &TeacherProfileInput{EmployeeID: employeeID, Designation: domain.DesignationLecturer, Experience: 3},
	}
}

func adminRegistration(email, reg string) Registration {
	return Registration{
		Account: Account{
			Name:               "Admin " + reg,
			Email:              email,
			RegistrationNumber: reg,
			Password:           "password123",
			Role:               domain.RoleAdmin,
			Department:         "Administration",
		},
	}
}

func (f *fixture) register(t *testing.T, reg Registration) *AuthResult {
	t.Helper()
	res, err := f.reg.Register(context.Background(), reg)
	require.NoError(t, err)
	return res
}

func (f *fixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

// outageRepo fails every profile write inside a transaction.
type outageRepo struct {
	store.Repository
}

func (r outageRepo) Profiles() store.ProfileRepository { return failingProfiles{r.Repository.Profiles()} }

func (r outageRepo) WithTransaction(ctx context.Context, fn func(store.Repository) error) error {
	return r.Repository.WithTransaction(ctx, func(tx store.Repository) error {
		return fn(outageRepo{tx})
	})
}

var errOutage = errors.New("storage unavailable")

type failingProfiles struct {
	store.ProfileRepository
}

func (failingProfiles) CreateStudentProfile(context.Context, uint, *domain.StudentProfile) error {
	return errOutage
}

func (failingProfiles) CreateTeacherProfile(context.Context, uint, *domain.TeacherProfile) error {
	return errOutage
}

// racingRepo pretends the pre-check saw nothing, as a concurrent
// registration would.
type racingRepo struct {
	store.Repository
}

func (r racingRepo) Users() store.UserRepository { return blindUsers{r.Repository.Users()} }

type blindUsers struct {
	store.UserRepository
}

func (blindUsers) ExistsAny(context.Context, string, string) (bool, error) { return false, nil }

// brokenTokens never issues.
type brokenTokens struct{}

func (brokenTokens) Issue(uint) (string, error) { return "", errors.New("signing key unavailable") }

func tokenOlderThan(t *testing.T, d time.Duration) time.Time {
	t.Helper()
	return time.Now().Add(-d).Truncate(time.Second)
}

func mustHash(t *testing.T, f *fixture) credential.Hash {
	t.Helper()
	h, err := f.hasher.Hash(context.Background(), "password123")
	require.NoError(t, err)
	return h
}
