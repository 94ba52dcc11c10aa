package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminProof(t *testing.T) {
	proof, err := NewAdminProof("ADMIN2024")
	require.NoError(t, err)
	assert.NotEqual(t, "ADMIN2024", proof)

	assert.True(t, VerifyAdminProof("ADMIN2024", proof))
	assert.False(t, VerifyAdminProof("ADMIN2025", proof), "rotated code")
	assert.False(t, VerifyAdminProof("ADMIN2024", "ADMIN2024"), "plaintext echo")
	assert.False(t, VerifyAdminProof("", proof))
}

func TestAdminProofNeedsCode(t *testing.T) {
	_, err := NewAdminProof("")
	assert.ErrorIs(t, err, ErrEmptyAdminCode)
}
