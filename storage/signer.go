// Package storage provides the object-storage collaborator: signed upload
// descriptors minted server-side and a disk store that only accepts writes
// carrying a valid descriptor token for the exact path being written.
package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrBadToken means the token does not match the path or was tampered with.
	ErrBadToken = errors.New("storage: invalid upload token")
	// ErrTokenExpired means the descriptor TTL lapsed before the upload.
	ErrTokenExpired = errors.New("storage: upload token expired")
)

// Descriptor is a single-path upload credential. The token authorizes
// exactly one path until ExpiresAt; the server never proxies the bytes.
type Descriptor struct {
	Path      string    `json:"path"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Signer mints and verifies descriptors with an HMAC-SHA256 over
// bucket, path and expiry. Tokens are self-contained: "<exp-unix>.<hex mac>".
type Signer struct {
	secret []byte
	bucket string
	ttl    time.Duration
}

// NewSigner creates a Signer for one bucket.
func NewSigner(secret, bucket string, ttl time.Duration) *Signer {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &Signer{secret: []byte(secret), bucket: bucket, ttl: ttl}
}

// NewObjectPath returns a fresh random object path inside the bucket.
// Callers never choose their own paths.
func (s *Signer) NewObjectPath() string {
	return s.bucket + "/" + uuid.NewString()
}

// Mint issues a descriptor for the given path.
func (s *Signer) Mint(path string) Descriptor {
	exp := time.Now().Add(s.ttl)
	return Descriptor{
		Path:      path,
		Token:     fmt.Sprintf("%d.%s", exp.Unix(), s.mac(path, exp.Unix())),
		ExpiresAt: exp,
	}
}

// Verify checks that token authorizes a write to path and has not expired.
func (s *Signer) Verify(path, token string) error {
	expStr, mac, ok := strings.Cut(token, ".")
	if !ok {
		return ErrBadToken
	}
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return ErrBadToken
	}
	want := s.mac(path, exp)
	if subtle.ConstantTimeCompare([]byte(mac), []byte(want)) != 1 {
		return ErrBadToken
	}
	if time.Now().Unix() > exp {
		return ErrTokenExpired
	}
	return nil
}

func (s *Signer) mac(path string, exp int64) string {
	h := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(h, "%s\n%s\n%d", s.bucket, path, exp)
	return hex.EncodeToString(h.Sum(nil))
}
