package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, expiresAt, err := signer.Generate("doc-1", "enrollment/e1/file.pdf")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	docID, relPath, _, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", docID)
	assert.Equal(t, "enrollment/e1/file.pdf", relPath)
}

func TestSignedURLRejectsTamperedToken(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, _, err := signer.Generate("doc-1", "enrollment/e1/file.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token + "x")
	assert.Error(t, err)
}

func TestSignedURLRejectsWrongSecret(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	other := NewSignedURLSigner("different", time.Minute)

	token, _, err := signer.Generate("doc-1", "enrollment/e1/file.pdf")
	require.NoError(t, err)

	_, _, _, err = other.Parse(token)
	assert.Error(t, err)
}

func TestSignedURLRejectsExpiredToken(t *testing.T) {
	signer := &SignedURLSigner{secret: []byte("secret"), ttl: -time.Minute}

	token, _, err := signer.Generate("doc-1", "enrollment/e1/file.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token)
	assert.Error(t, err)
}
