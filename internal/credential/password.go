package credential

import (
	"context"             // Cancellation while waiting for a hashing slot
	"database/sql/driver" // Column encoding
	"errors"              // Error values
	"fmt"                 // Error formatting
	"runtime"             // Default pool size
	"time"                // Change stamps

	"golang.org/x/crypto/bcrypt"  // Password hashing
	"golang.org/x/sync/semaphore" // Bounded hashing pool
)

const (
	DefaultCost       = 12 // bcrypt work factor for every stored password
	MinPasswordLength = 8  // Shortest accepted password
	MaxPasswordLength = 72 // bcrypt input limit in bytes
)

// decoyPassword seeds the digest compared against when no account matches
const decoyPassword = "no-account-matches-this-identifier"

var (
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("password must be at most %d bytes", MaxPasswordLength)
	errHashNotEncodable = errors.New("credential: password hash must not be serialized")
)

// Hash is an encoded bcrypt digest; outside this package it only comes from Manager.Hash or a scanned column,
// so a plaintext password can never reach the users table
type Hash struct {
	encoded string // $2a$... digest
}

// IsZero reports whether h holds no digest
func (h Hash) IsZero() bool { return h.encoded == "" }

// String never reveals the digest
func (h Hash) String() string { return "[redacted]" }

// MarshalJSON refuses to encode the digest
func (h Hash) MarshalJSON() ([]byte, error) { return nil, errHashNotEncodable }

// GormDataType maps the digest to a string column
func (Hash) GormDataType() string { return "string" }

// Value implements driver.Valuer
func (h Hash) Value() (driver.Value, error) { return h.encoded, nil }

// Scan implements sql.Scanner
func (h *Hash) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		h.encoded = "" // NULL column
	case string:
		h.encoded = v
	case []byte:
		h.encoded = string(v) // MySQL returns bytes
	default:
		return fmt.Errorf("credential: cannot scan %T into Hash", src)
	}
	return nil
}

// Manager runs bcrypt through a bounded pool so a burst of logins or registrations cannot occupy every CPU
type Manager struct {
	cost  int                 // bcrypt work factor
	sem   *semaphore.Weighted // Concurrent hash computations
	now   func() time.Time    // Clock for change stamps
	decoy Hash                // Digest verified when no account matches
}

// NewManager returns a Manager with the given cost and pool size; out of range values fall back to defaults
func NewManager(cost, concurrency int) *Manager {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	if concurrency < 1 {
		concurrency = runtime.NumCPU() // One slot per CPU
	}
	m := &Manager{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(concurrency)),
		now:  time.Now,
	}
	// Computed up front so the first miss costs the same as later ones
	if b, err := bcrypt.GenerateFromPassword([]byte(decoyPassword), cost); err == nil {
		m.decoy = Hash{encoded: string(b)}
	}
	return m
}

// Cost returns the bcrypt work factor in use
func (m *Manager) Cost() int { return m.cost }

// ValidatePassword checks the length policy without hashing
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// Hash computes a salted bcrypt digest of plaintext
func (m *Manager) Hash(ctx context.Context, plaintext string) (Hash, error) {
	if err := ValidatePassword(plaintext); err != nil {
		return Hash{}, err
	}
	// Wait for a free hashing slot
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return Hash{}, err
	}
	defer m.sem.Release(1)

	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), m.cost)
	if err != nil {
		return Hash{}, fmt.Errorf("hash password: %w", err)
	}
	return Hash{encoded: string(b)}, nil
}

// Verify reports whether candidate matches h; a malformed or empty digest, or a cancelled context, yields false
func (m *Manager) Verify(ctx context.Context, candidate string, h Hash) bool {
	if h.IsZero() {
		return false
	}
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer m.sem.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(h.encoded), []byte(candidate)) == nil // Constant-time compare
}

// VerifyDecoy spends one full verification on a throwaway digest so a login for an unknown
// identifier takes as long as a wrong password; it always reports false
func (m *Manager) VerifyDecoy(ctx context.Context, candidate string) bool {
	m.Verify(ctx, candidate, m.decoy)
	return false
}

// ChangeStamp returns the instant to record as a password change, backdated one second:
// token issue times have second precision, so a token minted in the same second as the save
// must still compare as issued before it
func (m *Manager) ChangeStamp() time.Time {
	return m.now().Add(-time.Second)
}

// ChangedAfter reports whether a password change recorded at changedAt happened strictly after issuedAt
func ChangedAfter(changedAt *time.Time, issuedAt time.Time) bool {
	return changedAt != nil && changedAt.After(issuedAt)
}
