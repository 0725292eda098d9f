package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomide-ak/invoice-bridge/constants"
)

func newTestRepo(t *testing.T) *SQLiteOutcomes {
	t.Helper()
	repo, err := OpenSQLite(filepath.Join(t.TempDir(), "outcomes.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo
}

func TestSaveSuccessAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveSuccess(ctx, SuccessOutcome{
		TrackingID: "t-1",
		Filename:   "invoice.xml",
		XMLLocator: "/files/t-1_invoice.xml",
		EDILocator: "/files/t-1_converted.x12",
		Message:    "Invoice processed successfully",
	}))

	out, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "t-1", out[0].TrackingID)
	assert.Equal(t, constants.OutcomeSuccess, out[0].Status)
	assert.Empty(t, out[0].StepErrors)
	assert.False(t, out[0].CreatedAt.IsZero())
	assert.Nil(t, out[0].DeletedAt)
}

func TestSaveFailureRoundTripsStepErrors(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	stepErrors := []StepError{
		{
			Step:        string(constants.StepEDIFormat),
			ErrorType:   string(constants.ErrTypeFormat),
			Message:     "ISA07: Sender ID must be 15 characters",
			Suggestions: []string{"Pad the sender ID to 15 characters"},
		},
	}
	require.NoError(t, repo.SaveFailure(ctx, FailureOutcome{
		TrackingID: "t-2",
		Filename:   "bad.xml",
		XMLLocator: "/files/t-2_bad.xml",
		FailedStep: string(constants.StepEDIFormat),
		Message:    "EDI format validation failed with 1 errors",
		StepErrors: stepErrors,
	}))

	out, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, constants.OutcomeFailed, out[0].Status)
	assert.Equal(t, string(constants.StepEDIFormat), out[0].FailedStep)
	assert.Equal(t, stepErrors, out[0].StepErrors)
}

func TestCounts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{}, c)

	require.NoError(t, repo.SaveSuccess(ctx, SuccessOutcome{TrackingID: "a", Filename: "a.xml"}))
	require.NoError(t, repo.SaveSuccess(ctx, SuccessOutcome{TrackingID: "b", Filename: "b.xml"}))
	require.NoError(t, repo.SaveFailure(ctx, FailureOutcome{TrackingID: "c", Filename: "c.xml"}))
	require.NoError(t, repo.SoftDelete(ctx, "b"))

	c, err = repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Successful: 1, Failed: 1, Deleted: 1}, c)
}

func TestSoftDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveSuccess(ctx, SuccessOutcome{TrackingID: "gone", Filename: "g.xml"}))
	require.NoError(t, repo.SoftDelete(ctx, "gone"))

	out, err := repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, out)

	err = repo.SoftDelete(ctx, "gone")
	assert.ErrorIs(t, err, ErrOutcomeNotFound)
}

func TestSoftDeleteUnknownTrackingID(t *testing.T) {
	repo := newTestRepo(t)
	assert.ErrorIs(t, repo.SoftDelete(context.Background(), "missing"), ErrOutcomeNotFound)
}

func TestListLimit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, repo.SaveSuccess(ctx, SuccessOutcome{TrackingID: id, Filename: id + ".xml"}))
	}
	out, err := repo.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}
