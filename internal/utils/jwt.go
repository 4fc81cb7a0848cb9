package utils

import (
	"errors" // Error values
	"time"   // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
)

// DefaultTokenTTL is the lifetime of a session token
const DefaultTokenTTL = 30 * 24 * time.Hour

var (
	ErrInvalidToken = errors.New("invalid token")     // Bad signature, malformed or wrong algorithm
	ErrExpiredToken = errors.New("token has expired") // Past its exp claim
)

// JWT Claims
type Claims struct {
	UserID               uint `json:"user_id"` // Custom claim for user ID
	jwt.RegisteredClaims      // Standard JWT claims
}

// TokenInfo is what a verified token says about its holder
type TokenInfo struct {
	UserID   uint      // Subject user
	IssuedAt time.Time // Issue instant, second precision
}

// TokenService issues and verifies stateless session tokens
type TokenService struct {
	secret []byte           // HMAC signing key
	ttl    time.Duration    // Token lifetime
	issuer string           // iss claim
	now    func() time.Time // Clock
}

// NewTokenService creates a token service signing with secret
func NewTokenService(secret, issuer string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL // Fall back to 30 days
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
}

// TTL returns the configured token lifetime
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue creates a JWT token for a given user ID
func (s *TokenService) Issue(userID uint) (string, error) {
	now := s.now()
	// Set token claims
	claims := Claims{
		UserID: userID, // Custom claim for user ID
		// Standard claims
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,                           // Issuing service
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)), // Token expires after the configured TTL
			IssuedAt:  jwt.NewNumericDate(now),            // Issued at current time
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	return token.SignedString(s.secret)                        // Sign the token with the secret
}

// Verify parses and validates a JWT token string
func (s *TokenService) Verify(tokenStr string) (*TokenInfo, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), // Reject alg confusion
		jwt.WithTimeFunc(s.now),                                      // Clock used for exp
		jwt.WithExpirationRequired(),                                 // Every token must expire
		jwt.WithIssuedAt(),                                           // Reject tokens from the future
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer)) // Only our own tokens
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return s.secret, nil // Return the secret key for validation
	}, opts...)
	// Check for parsing errors
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	// Validate token and extract claims
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}
	return &TokenInfo{UserID: claims.UserID, IssuedAt: claims.IssuedAt.Time}, nil
}
