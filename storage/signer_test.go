package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintAndVerify(t *testing.T) {
	s := NewSigner("secret", "uploads", time.Hour)

	path := s.NewObjectPath() + "/photo.jpg"
	d := s.Mint(path)

	assert.Equal(t, path, d.Path)
	assert.True(t, strings.HasPrefix(path, "uploads/"))
	assert.NoError(t, s.Verify(d.Path, d.Token))
}

func TestVerifyRejectsWrongPath(t *testing.T) {
	s := NewSigner("secret", "uploads", time.Hour)

	d := s.Mint("uploads/abc/photo.jpg")
	err := s.Verify("uploads/abc/other.jpg", d.Token)
	assert.ErrorIs(t, err, ErrBadToken)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	s := NewSigner("secret", "uploads", time.Hour)

	d := s.Mint("uploads/abc/photo.jpg")

	assert.ErrorIs(t, s.Verify(d.Path, d.Token+"0"), ErrBadToken)
	assert.ErrorIs(t, s.Verify(d.Path, "garbage"), ErrBadToken)
	assert.ErrorIs(t, s.Verify(d.Path, ""), ErrBadToken)

	// shifting the embedded expiry invalidates the mac before expiry is read
	_, mac, ok := strings.Cut(d.Token, ".")
	require.True(t, ok)
	assert.ErrorIs(t, s.Verify(d.Path, "9999999999."+mac), ErrBadToken)
}

func TestVerifyRejectsForeignSigner(t *testing.T) {
	a := NewSigner("secret-a", "uploads", time.Hour)
	b := NewSigner("secret-b", "uploads", time.Hour)

	d := a.Mint("uploads/abc/photo.jpg")
	assert.ErrorIs(t, b.Verify(d.Path, d.Token), ErrBadToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	s := NewSigner("secret", "uploads", -time.Minute)

	d := s.Mint("uploads/abc/photo.jpg")
	assert.ErrorIs(t, s.Verify(d.Path, d.Token), ErrTokenExpired)
}

func TestObjectPathsAreUnique(t *testing.T) {
	s := NewSigner("secret", "uploads", time.Hour)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		p := s.NewObjectPath()
		assert.False(t, seen[p])
		seen[p] = true
	}
}
