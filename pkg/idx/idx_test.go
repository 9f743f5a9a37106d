package idx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/docsauth/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNewAndParse(t *testing.T) {
	id := idx.New()
	require.False(t, id.IsZero())

	parsed, err := idx.Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = idx.Parse("  ")
	require.ErrorIs(t, err, idx.ErrInvalid)

	_, err = idx.Parse("not-a-ulid")
	require.ErrorIs(t, err, idx.ErrInvalid)
}

func TestMonotonicWithinSameInstant(t *testing.T) {
	at := time.Unix(1700000000, 0).UTC()
	a := idx.NewAt(at)
	b := idx.NewAt(at)

	require.Less(t, a.String(), b.String())
	require.WithinDuration(t, at, a.Time(), time.Millisecond)
}

func TestPrefixed(t *testing.T) {
	kid := idx.Prefixed("kid")
	require.True(t, strings.HasPrefix(kid, "kid_"))
	require.Equal(t, strings.ToLower(kid), kid)

	require.NotContains(t, idx.Prefixed(""), "_")
}

func TestTimeOfInvalidID(t *testing.T) {
	require.True(t, idx.ID("garbage").Time().IsZero())
}
