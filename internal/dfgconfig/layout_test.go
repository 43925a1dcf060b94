package dfgconfig_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pslhy/DAFL/internal/dfgconfig"
	"github.com/pslhy/DAFL/internal/scheduler"
)

func Test_ParseDFGScore_AssignsIndicesInLineOrder(t *testing.T) {
	t.Parallel()

	input := "10 3 foo.c:42\n20 1 bar.c:7\n5 9 foo.c:50\n"

	layout, err := dfgconfig.ParseDFGScore(strings.NewReader(input), dfgconfig.DefaultMapSize)
	require.NoError(t, err)
	require.Equal(t, []uint32{10, 20, 5}, layout.Scores)
	require.Equal(t, []uint64{3, 1, 9}, layout.Counts)

	idx, ok := layout.IndexOf("bar.c:7")
	require.True(t, ok)
	require.Equal(t, uint32(1), idx)

	_, ok = layout.IndexOf("missing.c:1")
	require.False(t, ok)
}

func Test_ParseDFGScore_SkipsBlankLines(t *testing.T) {
	t.Parallel()

	input := "10 3 foo.c:42\n\n  \n20 1 bar.c:7\n"

	layout, err := dfgconfig.ParseDFGScore(strings.NewReader(input), dfgconfig.DefaultMapSize)
	require.NoError(t, err)
	require.Len(t, layout.Nodes, 2)
}

func Test_ParseDFGScore_FatalWhenMapSizeExceeded(t *testing.T) {
	t.Parallel()

	input := "1 1 a.c:1\n1 1 b.c:2\n1 1 c.c:3\n"

	_, err := dfgconfig.ParseDFGScore(strings.NewReader(input), 3)
	require.Error(t, err)
	require.True(t, errors.Is(err, scheduler.ErrDFGMapTooLarge))
}

func Test_ParseDFGScore_AcceptsExactlyMapSizeMinusOneLines(t *testing.T) {
	t.Parallel()

	input := "1 1 a.c:1\n1 1 b.c:2\n"

	layout, err := dfgconfig.ParseDFGScore(strings.NewReader(input), 3)
	require.NoError(t, err)
	require.Len(t, layout.Nodes, 2)
}

func Test_ParseDFGScore_FatalWhenLineCountReachesMapSize(t *testing.T) {
	t.Parallel()

	input := "1 1 a.c:1\n1 1 b.c:2\n"

	_, err := dfgconfig.ParseDFGScore(strings.NewReader(input), 2)
	require.Error(t, err)
	require.True(t, errors.Is(err, scheduler.ErrDFGMapTooLarge))
}

func Test_ParseDFGScore_RejectsMalformedLine(t *testing.T) {
	t.Parallel()

	_, err := dfgconfig.ParseDFGScore(strings.NewReader("not-enough-fields\n"), dfgconfig.DefaultMapSize)
	require.Error(t, err)
}

func Test_ParseDFGScore_DefaultsMapSizeWhenNonPositive(t *testing.T) {
	t.Parallel()

	layout, err := dfgconfig.ParseDFGScore(strings.NewReader("1 1 a.c:1\n"), 0)
	require.NoError(t, err)
	require.Len(t, layout.Nodes, 1)
}
