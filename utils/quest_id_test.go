package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveQuestID(t *testing.T) {
	id := DeriveQuestID("first-transfer")

	assert.True(t, strings.HasPrefix(id, "0x"))
	assert.Len(t, id, 66, "0x prefix plus 32 hex-encoded bytes")

	// Deterministic, and distinct per name.
	assert.Equal(t, id, DeriveQuestID("first-transfer"))
	assert.NotEqual(t, id, DeriveQuestID("second-transfer"))
}
