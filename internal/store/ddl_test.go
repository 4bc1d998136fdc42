package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDDLStatements(t *testing.T) {
	for _, driver := range []string{"postgres", "sqlite"} {
		stmts, err := DDLStatements(driver)
		require.NoError(t, err, driver)
		require.NotEmpty(t, stmts)
		joined := strings.Join(stmts, "\n")
		assert.Contains(t, joined, ConstraintLiveSlot, driver)
		assert.Contains(t, joined, "WHERE status <> 'cancelled'", driver)
		for _, s := range stmts {
			assert.False(t, strings.HasPrefix(s, "--"), "comment leaked into statement: %q", s)
		}
	}
	_, err := DDLStatements("mysql")
	assert.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	err := &UniqueViolationError{Constraint: ConstraintLiveSlot}
	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, ConstraintLiveSlot))
	assert.False(t, IsUniqueViolation(err, ConstraintUserPhone))
	assert.ErrorIs(t, err, ErrUniqueViolation)
	assert.False(t, IsUniqueViolation(assert.AnError, ""))
}
