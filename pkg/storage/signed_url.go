package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FeedClaims is what a calendar subscription token grants.
type FeedClaims struct {
	UserID    string
	Scope     string
	ExpiresAt time.Time
}

// FeedSigner issues and verifies HMAC-signed subscription tokens. Calendar
// clients cannot send Authorization headers, so the token rides in the URL.
type FeedSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewFeedSigner constructs a signer with the provided secret and TTL.
func NewFeedSigner(secret string, ttl time.Duration) *FeedSigner {
	if ttl <= 0 {
		ttl = 90 * 24 * time.Hour
	}
	return &FeedSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate returns a token of the form user.expiry.scope.signature.
func (s *FeedSigner) Generate(userID, scope string) (string, time.Time, error) {
	if userID == "" || scope == "" {
		return "", time.Time{}, fmt.Errorf("userID and scope required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).UTC().Truncate(time.Second)
	encodedUser := base64.RawURLEncoding.EncodeToString([]byte(userID))
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	token := strings.Join([]string{encodedUser, ts, scope, s.sign(encodedUser, ts, scope)}, ".")
	return token, expiresAt, nil
}

// Parse validates the signature and expiry and returns the embedded claims.
func (s *FeedSigner) Parse(token string) (FeedClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return FeedClaims{}, fmt.Errorf("invalid token format")
	}
	encodedUser, ts, scope, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(encodedUser, ts, scope)), []byte(signature)) {
		return FeedClaims{}, fmt.Errorf("invalid token signature")
	}
	rawUser, err := base64.RawURLEncoding.DecodeString(encodedUser)
	if err != nil {
		return FeedClaims{}, fmt.Errorf("decode user: %w", err)
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return FeedClaims{}, fmt.Errorf("invalid timestamp")
	}
	expiresAt := time.Unix(expUnix, 0).UTC()
	if s.now().After(expiresAt) {
		return FeedClaims{}, fmt.Errorf("token expired")
	}
	return FeedClaims{UserID: string(rawUser), Scope: scope, ExpiresAt: expiresAt}, nil
}

func (s *FeedSigner) sign(encodedUser, ts, scope string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(encodedUser + "|" + ts + "|" + scope))
	return hex.EncodeToString(mac.Sum(nil))
}
