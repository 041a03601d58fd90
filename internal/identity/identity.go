// Package identity is the minimal stand-in the broadcast core talks to for
// authentication and the allow-list access policy. The real OpenID
// federation and access-policy evaluation are external collaborators (see
// spec); this package only validates the bearer token the external identity
// provider hands the client and answers "can this subject queue a track" /
// "is this subject an admin" from the configured allow-lists.
package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingToken = errors.New("missing authorization token")
	ErrRateLimited  = errors.New("too many authentication attempts, please try again later")
	ErrForbidden    = errors.New("subject is not on the allow list")
)

// fixedJWTHeader is the base64url form of {"alg":"HS256","typ":"JWT"}. This
// package only ever signs with one algorithm, so the header segment never
// varies and there is no header to parse on verification — a token is
// rejected outright if its first segment isn't this exact string.
const fixedJWTHeader = "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9"

// Config is how the access policy and token validator are parameterized.
type Config struct {
	JWTSecret string
	TokenTTL  time.Duration

	// AllowedIDs is the queueing allow list. Empty means any authenticated
	// subject may queue.
	AllowedIDs []string
	// AdminIDs may perform privileged operations beyond plain queueing.
	AdminIDs []string

	MaxAttempts   int
	WindowSeconds int
}

// Claims is the JWT payload this package verifies.
type Claims struct {
	Sub string `json:"sub"`
	Iat int64  `json:"iat"`
	Exp int64  `json:"exp"`
}

// User is the authenticated, policy-evaluated subject attached to a request.
type User struct {
	ID       string `json:"id"`
	CanQueue bool   `json:"canQueue"`
	IsAdmin  bool   `json:"isAdmin"`
}

// Identity validates bearer tokens and evaluates the allow-list policy.
type Identity struct {
	cfg     Config
	allowed map[string]bool
	admins  map[string]bool
	limiter *attemptLimiter
}

// New builds an Identity from cfg, applying sane defaults for TTL and
// rate-limit window when unset.
func New(cfg Config) *Identity {
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.WindowSeconds == 0 {
		cfg.WindowSeconds = 900
	}
	if len(cfg.JWTSecret) < 32 {
		slog.Warn("identity: JWT secret is shorter than 32 characters, this is insecure in production")
	}

	allowed := make(map[string]bool, len(cfg.AllowedIDs))
	for _, id := range cfg.AllowedIDs {
		allowed[id] = true
	}
	admins := make(map[string]bool, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = true
	}

	return &Identity{
		cfg:     cfg,
		allowed: allowed,
		admins:  admins,
		limiter: newAttemptLimiter(cfg.MaxAttempts, time.Duration(cfg.WindowSeconds)*time.Second),
	}
}

// CreateToken signs a token for subject, for use by the external identity
// provider integration (or, in development, a local token-mint helper).
func (id *Identity) CreateToken(subject string) (string, error) {
	now := time.Now()
	claims := Claims{Sub: subject, Iat: now.Unix(), Exp: now.Add(id.cfg.TokenTTL).Unix()}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("identity: marshal claims: %w", err)
	}
	signingInput := fixedJWTHeader + "." + base64.RawURLEncoding.EncodeToString(claimsJSON)
	return signingInput + "." + id.signatureOf(signingInput), nil
}

// ValidateToken parses and verifies a token string, rejecting algorithm
// confusion, expiry, and future-issued tokens (60s clock-skew tolerance).
func (id *Identity) ValidateToken(tokenStr string) (*Claims, error) {
	if len(tokenStr) > 4096 {
		return nil, ErrInvalidToken
	}

	firstDot := strings.IndexByte(tokenStr, '.')
	lastDot := strings.LastIndexByte(tokenStr, '.')
	if firstDot < 0 || lastDot <= firstDot {
		return nil, ErrInvalidToken
	}
	header, claimsPart, sigPart := tokenStr[:firstDot], tokenStr[firstDot+1:lastDot], tokenStr[lastDot+1:]

	if header != fixedJWTHeader {
		return nil, fmt.Errorf("%w: unrecognized header", ErrInvalidToken)
	}

	gotSig, err := decodeSegment(sigPart)
	if err != nil {
		return nil, fmt.Errorf("%w: bad signature encoding", ErrInvalidToken)
	}
	wantSig, err := base64.RawURLEncoding.DecodeString(id.signatureOf(header + "." + claimsPart))
	if err != nil || !hmac.Equal(gotSig, wantSig) {
		return nil, ErrInvalidToken
	}

	claimsJSON, err := decodeSegment(claimsPart)
	if err != nil {
		return nil, fmt.Errorf("%w: bad claims encoding", ErrInvalidToken)
	}
	var claims Claims
	if err := json.Unmarshal(claimsJSON, &claims); err != nil {
		return nil, fmt.Errorf("%w: bad claims", ErrInvalidToken)
	}

	now := time.Now().Unix()
	if now > claims.Exp {
		return nil, ErrExpiredToken
	}
	if claims.Iat > now+60 {
		return nil, fmt.Errorf("%w: issued in the future", ErrInvalidToken)
	}
	if claims.Sub == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	return &claims, nil
}

// Authorize validates tokenStr and evaluates the allow-list policy for its
// subject. Every attempt from remoteAddr, successful or not, draws down a
// per-IP token bucket so repeated probing is throttled without needing to
// track individual failure timestamps.
func (id *Identity) Authorize(tokenStr, remoteAddr string) (*User, error) {
	if !id.limiter.allow(hostOf(remoteAddr)) {
		return nil, ErrRateLimited
	}
	if tokenStr == "" {
		return nil, ErrMissingToken
	}
	claims, err := id.ValidateToken(tokenStr)
	if err != nil {
		return nil, err
	}
	return id.userFor(claims.Sub), nil
}

// userFor evaluates the allow-list policy for a validated subject.
func (id *Identity) userFor(subject string) *User {
	canQueue := len(id.allowed) == 0 || id.allowed[subject]
	return &User{ID: subject, CanQueue: canQueue, IsAdmin: id.admins[subject]}
}

// signatureOf returns the base64url-encoded HMAC-SHA256 of signingInput
// under the configured secret.
func (id *Identity) signatureOf(signingInput string) string {
	mac := hmac.New(sha256.New, []byte(id.cfg.JWTSecret))
	mac.Write([]byte(signingInput))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// decodeSegment decodes a JWT segment, tolerating both the standard
// unpadded form and a padded form some clients still send.
func decodeSegment(s string) ([]byte, error) {
	if data, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.URLEncoding.DecodeString(s)
}

// hostOf strips the port from a "host:port" remote address. Addresses that
// don't parse as host:port (already bare IPs, unix sockets) pass through
// unchanged.
func hostOf(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// attemptLimiter throttles repeated authentication attempts per remote
// address using a token bucket per key, reusing the same golang.org/x/time/
// rate primitive the HTTP layer's queue rate limiting is built on rather
// than hand-rolling a sliding window of timestamps.
type attemptLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*limiterEntry
	rps      rate.Limit
	burst    int
	idleTTL  time.Duration
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

func newAttemptLimiter(maxAttempts int, window time.Duration) *attemptLimiter {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	al := &attemptLimiter{
		buckets: make(map[string]*limiterEntry),
		rps:     rate.Limit(float64(maxAttempts) / window.Seconds()),
		burst:   maxAttempts,
		idleTTL: window,
	}
	go al.sweep()
	return al
}

// allow reports whether key may make another attempt right now, consuming
// one token from its bucket if so.
func (al *attemptLimiter) allow(key string) bool {
	al.mu.Lock()
	defer al.mu.Unlock()
	entry, ok := al.buckets[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(al.rps, al.burst)}
		al.buckets[key] = entry
	}
	entry.lastUsed = time.Now()
	return entry.limiter.Allow()
}

// sweep evicts buckets that have been idle for longer than idleTTL, bounding
// memory for a long-lived process seeing many distinct remote addresses.
func (al *attemptLimiter) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-al.idleTTL)
		al.mu.Lock()
		for key, entry := range al.buckets {
			if entry.lastUsed.Before(cutoff) {
				delete(al.buckets, key)
			}
		}
		al.mu.Unlock()
	}
}
