package persist

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"couple-summary-be/internal/entity"
	"couple-summary-be/internal/pkg/logger"
	"couple-summary-be/internal/repository/specification"
	"couple-summary-be/pkg/summary/lease"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	errs  []error
	calls []bool
	saved *entity.UserSummary
}

func (f *fakeUsers) Upsert(_ context.Context, s *entity.UserSummary, includeMetrics bool) error {
	f.calls = append(f.calls, includeMetrics)
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	if err == nil {
		cp := *s
		if !includeMetrics {
			cp.Metrics = nil
		}
		f.saved = &cp
	}
	return err
}

func (f *fakeUsers) FindOne(context.Context, ...specification.Specification) (*entity.UserSummary, error) {
	return f.saved, nil
}

type fakeShared struct {
	errs  []error
	calls []bool
}

func (f *fakeShared) MarkReady(_ context.Context, _ lease.Lease, _ string, _ json.RawMessage, include bool) error {
	f.calls = append(f.calls, include)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	return nil
}

var metrics = json.RawMessage(`{"overall_score":70}`)

func TestSaveUser_RetriesWithoutMetricsOnMissingColumn(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"postgres text", errors.New(`ERROR: column "metrics" of relation "ai_summaries" does not exist`)},
		{"rest proxy text", errors.New(`Could not find the 'metrics' column of 'ai_summaries' in the schema cache`)},
		{"loose text", errors.New(`metrics does not exist`)},
		{"typed pg error", &pgconn.PgError{Code: "42703", Message: `column "metrics" does not exist`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &fakeUsers{errs: []error{tt.err}}
			w := NewWriter(users, &fakeShared{}, logger.NewNop())

			err := w.SaveUser(context.Background(), uuid.New(), uuid.New(), `{"headline":"x"}`, metrics)
			require.NoError(t, err)
			assert.Equal(t, []bool{true, false}, users.calls)
			assert.Nil(t, users.saved.Metrics)
		})
	}
}

func TestSaveUser_OtherErrorsAreNotRetried(t *testing.T) {
	users := &fakeUsers{errs: []error{errors.New("connection refused")}}
	w := NewWriter(users, &fakeShared{}, logger.NewNop())

	err := w.SaveUser(context.Background(), uuid.New(), uuid.New(), `{}`, metrics)
	require.Error(t, err)
	assert.Equal(t, []bool{true}, users.calls)
}

func TestSaveUser_RetriesOnlyOnce(t *testing.T) {
	drift := errors.New(`column "metrics" of relation "ai_summaries" does not exist`)
	users := &fakeUsers{errs: []error{drift, drift}}
	w := NewWriter(users, &fakeShared{}, logger.NewNop())

	err := w.SaveUser(context.Background(), uuid.New(), uuid.New(), `{}`, metrics)
	require.Error(t, err)
	assert.Len(t, users.calls, 2)
}

func TestSaveUser_KeepsMetricsWhenAccepted(t *testing.T) {
	users := &fakeUsers{}
	w := NewWriter(users, &fakeShared{}, logger.NewNop())

	require.NoError(t, w.SaveUser(context.Background(), uuid.New(), uuid.New(), `{}`, metrics))
	assert.Equal(t, []bool{true}, users.calls)
	assert.JSONEq(t, string(metrics), string(users.saved.Metrics))
}

func TestSaveShared_RetriesWithoutMetrics(t *testing.T) {
	shared := &fakeShared{errs: []error{errors.New(`column "metrics" of relation "ai_couple_summaries" does not exist`)}}
	w := NewWriter(&fakeUsers{}, shared, logger.NewNop())

	require.NoError(t, w.SaveShared(context.Background(), lease.Lease{SessionId: uuid.New(), Holder: uuid.New(), Token: uuid.New()}, `{}`, metrics))
	assert.Equal(t, []bool{true, false}, shared.calls)
}

func TestSaveShared_PassesThroughSentinels(t *testing.T) {
	lost := errors.New("lease lost")
	shared := &fakeShared{errs: []error{lost}}
	w := NewWriter(&fakeUsers{}, shared, logger.NewNop())

	err := w.SaveShared(context.Background(), lease.Lease{SessionId: uuid.New(), Holder: uuid.New(), Token: uuid.New()}, `{}`, metrics)
	assert.ErrorIs(t, err, lost)
	assert.Len(t, shared.calls, 1)
}
