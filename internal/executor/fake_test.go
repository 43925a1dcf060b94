package executor_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pslhy/DAFL/internal/executor"
)

func byteTouchHarness(input []byte) ([]uint64, []uint32, bool) {
	hits := make([]uint64, 4)
	scores := []uint32{10, 20, 30, 40}

	for _, b := range input {
		hits[int(b)%len(hits)]++
	}

	return hits, scores, false
}

func Test_FakeExecutor_FirstCall_ReportsNewEdgeCoverage(t *testing.T) {
	t.Parallel()

	exec := executor.NewFakeExecutor(byteTouchHarness)

	res, err := exec.Execute(context.Background(), []byte("abc"))
	require.NoError(t, err)
	require.True(t, res.NewEdgeCoverage)
}

func Test_FakeExecutor_RepeatedIdenticalInput_NoLongerNew(t *testing.T) {
	t.Parallel()

	exec := executor.NewFakeExecutor(byteTouchHarness)

	_, err := exec.Execute(context.Background(), []byte{0, 1, 2, 3})
	require.NoError(t, err)

	res, err := exec.Execute(context.Background(), []byte{0, 1, 2, 3})
	require.NoError(t, err)
	require.False(t, res.NewEdgeCoverage, "every index was already seen on the first call")
}

func Test_FakeExecutor_NewIndexTouched_ReportsNewCoverageAgain(t *testing.T) {
	t.Parallel()

	exec := executor.NewFakeExecutor(byteTouchHarness)

	_, err := exec.Execute(context.Background(), []byte{0})
	require.NoError(t, err)

	res, err := exec.Execute(context.Background(), []byte{0, 1})
	require.NoError(t, err)
	require.True(t, res.NewEdgeCoverage, "index 1 was never touched before")
}

func Test_FakeExecutor_RespectsCanceledContext(t *testing.T) {
	t.Parallel()

	exec := executor.NewFakeExecutor(byteTouchHarness)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exec.Execute(ctx, []byte("x"))
	require.Error(t, err)
}

func Test_FakeExecutor_DigestIsDeterministicForIdenticalInput(t *testing.T) {
	t.Parallel()

	exec1 := executor.NewFakeExecutor(byteTouchHarness)
	exec2 := executor.NewFakeExecutor(byteTouchHarness)

	res1, err := exec1.Execute(context.Background(), []byte("same input"))
	require.NoError(t, err)

	res2, err := exec2.Execute(context.Background(), []byte("same input"))
	require.NoError(t, err)

	require.Equal(t, res1.EdgeDigest, res2.EdgeDigest)
}

func Test_ReadAllInput_HandlesShortReads(t *testing.T) {
	t.Parallel()

	r := &shortReader{remaining: "the quick brown fox"}

	data, err := executor.ReadAllInput(r)
	require.NoError(t, err)
	require.Equal(t, "the quick brown fox", string(data))
}

// shortReader never returns more than 3 bytes per Read call, to exercise
// ReadAllInput's loop-until-EOF behavior.
type shortReader struct {
	remaining string
}

func (r *shortReader) Read(p []byte) (int, error) {
	if r.remaining == "" {
		return 0, io.EOF
	}

	n := 3
	if n > len(r.remaining) {
		n = len(r.remaining)
	}

	copy(p, r.remaining[:n])
	r.remaining = r.remaining[n:]

	return n, nil
}
