package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScope(t *testing.T) {
	for in, want := range map[string]Scope{
		"":          ScopeFollowing,
		"following": ScopeFollowing,
		"program":   ScopeProgram,
		"college":   ScopeCollege,
		"campus":    ScopeCampus,
		"all":       ScopeAll,
	} {
		got, err := ParseScope(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}

	for _, in := range []string{"friends", "ALL", "Program", "everything"} {
		_, err := ParseScope(in)
		assert.ErrorIs(t, err, ErrInvalidScope, "input %q", in)
	}
}
