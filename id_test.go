package taskd

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taskdata/taskd/kit/platform/errors"
)

func TestIDFromString(t *testing.T) {
	t.Parallel()

	id, err := IDFromString("1188312487419276290")
	require.NoError(t, err)
	require.Equal(t, ID(1188312487419276290), id)
	require.True(t, id.Valid())
	require.Equal(t, "1188312487419276290", id.String())

	for _, s := range []string{"", "banana", "-5", "0", "1.5", "99999999999999999999999"} {
		id, err := IDFromString(s)
		require.Error(t, err, "expected %q to be rejected", s)
		require.Equal(t, errors.EInvalid, errors.ErrorCode(err))
		require.False(t, id.Valid())
	}
}

func TestInvalidID(t *testing.T) {
	t.Parallel()

	require.False(t, InvalidID().Valid())
	require.False(t, ID(-1).Valid())
	require.True(t, ID(1).Valid())
}
