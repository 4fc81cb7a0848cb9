package store

import (
	"context" // Transactions and pings
	"errors"  // Error matching
	"strings" // Driver message matching

	"github.com/go-sql-driver/mysql" // MySQL error numbers
	"gorm.io/gorm"                   // GORM ORM library
)

// mysqlDuplicateEntry is ER_DUP_ENTRY
const mysqlDuplicateEntry = 1062

// Store is the gorm-backed Repository
type Store struct {
	db       *gorm.DB      // Connection or open transaction
	users    *UserStore    // users table
	profiles *ProfileStore // student_profiles and teacher_profiles
}

// New creates a Store on db
func New(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		users:    &UserStore{db: db},
		profiles: &ProfileStore{db: db},
	}
}

func (s *Store) Users() UserRepository       { return s.users }
func (s *Store) Profiles() ProfileRepository { return s.profiles }

// WithTransaction runs fn against stores bound to one transaction, committing only when fn returns nil
func (s *Store) WithTransaction(ctx context.Context, fn func(Repository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx)) // Every store inside fn shares tx
	})
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// isUniqueViolation recognizes a unique index rejection from MySQL or SQLite
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true // Translated by the dialector
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return true
	}
	msg := err.Error() // Untranslated driver errors
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Duplicate entry")
}

// notFound maps gorm's missing-row error to ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
