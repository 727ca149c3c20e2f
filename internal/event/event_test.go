package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndDecode(t *testing.T) {
	e := New(TypePoolDeposit, "0xalice", PoolDepositPayload{
		Lender: "0xalice",
		Amount: 5000,
	})

	assert.Equal(t, TypePoolDeposit, e.Type)
	assert.Equal(t, "0xalice", e.Actor)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", e.ID.String())
	assert.False(t, e.CreatedAt.IsZero())

	var p PoolDepositPayload
	require.NoError(t, e.Decode(&p))
	assert.Equal(t, uint64(5000), p.Amount)
	assert.Equal(t, "0xalice", p.Lender)
}
