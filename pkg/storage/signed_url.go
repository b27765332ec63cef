package storage

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

var (
	// ErrInvalidToken covers malformed or tampered download tokens.
	ErrInvalidToken = errors.New("invalid download token")
	// ErrTokenExpired is returned for well-formed tokens past their expiry.
	ErrTokenExpired = errors.New("download token expired")
)

// downloadClaims is the signed body of a download token.
type downloadClaims struct {
	JobID   string `json:"j"`
	Path    string `json:"p"`
	Expires int64  `json:"e"`
}

// SignedURLSigner issues opaque download tokens for rendered availability exports.
// A token is base64url(claims) "." base64url(hmac-sha256(claims)).
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer. A non-positive ttl defaults to 24h.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL reports how long generated tokens stay valid.
func (s *SignedURLSigner) TTL() time.Duration {
	return s.ttl
}

// Generate signs a token for the stored export at relPath.
func (s *SignedURLSigner) Generate(jobID, relPath string) (string, time.Time, error) {
	if jobID == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("jobID and relPath required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	clean := path.Clean(relPath)
	if strings.HasPrefix(clean, "..") || path.IsAbs(clean) {
		return "", time.Time{}, fmt.Errorf("export path %q escapes storage root", relPath)
	}

	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	body, err := json.Marshal(downloadClaims{JobID: jobID, Path: clean, Expires: expiresAt.Unix()})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("encode claims: %w", err)
	}
	token := encodeSegment(body) + "." + encodeSegment(s.sign(body))
	return token, expiresAt, nil
}

// Parse verifies the token signature and returns the job and path it grants.
// allowExpired skips the expiry check so cleanup can still resolve old links.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	bodySeg, sigSeg, ok := strings.Cut(token, ".")
	if !ok || bodySeg == "" || sigSeg == "" {
		return "", "", time.Time{}, fmt.Errorf("%w: format", ErrInvalidToken)
	}
	body, err := base64.RawURLEncoding.DecodeString(bodySeg)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("%w: claims encoding", ErrInvalidToken)
	}
	signature, err := base64.RawURLEncoding.DecodeString(sigSeg)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("%w: signature encoding", ErrInvalidToken)
	}
	if !hmac.Equal(signature, s.sign(body)) {
		return "", "", time.Time{}, fmt.Errorf("%w: signature", ErrInvalidToken)
	}

	var claims downloadClaims
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&claims); err != nil || claims.JobID == "" || claims.Path == "" {
		return "", "", time.Time{}, fmt.Errorf("%w: claims", ErrInvalidToken)
	}

	expiresAt = time.Unix(claims.Expires, 0)
	if !allowExpired && !s.now().Before(expiresAt) {
		return "", "", time.Time{}, ErrTokenExpired
	}
	return claims.JobID, claims.Path, expiresAt, nil
}

func (s *SignedURLSigner) sign(body []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write(body)
	return mac.Sum(nil)
}

func encodeSegment(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
