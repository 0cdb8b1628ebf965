package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, expires, err := signer.Generate("exp-1", "reviews/exp-1.csv")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expires, 5*time.Second)

	exportID, path, _, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "exp-1", exportID)
	assert.Equal(t, "reviews/exp-1.csv", path)
}

func TestSignedURLRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, _, err := signer.Generate("exp-1", "reviews/exp-1.csv")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token+"x", false)
	require.Error(t, err)

	other := NewSignedURLSigner("different", time.Minute)
	_, _, _, err = other.Parse(token, false)
	require.Error(t, err)
}
