package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadreport/internal/core"
	"roadreport/internal/store"
	"roadreport/internal/store/memory"
)

func TestRecordService_CreateTrip(t *testing.T) {
	st := memory.New()
	svc := NewRecordService(st)
	ctx := context.Background()

	created, err := svc.CreateTrip(ctx, core.Trip{Distance: core.Float(12.5), Start: at(2024, time.March, 1)})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID, "an ID is assigned when missing")

	got, err := st.GetTrip(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 12.5, got.Miles())

	kept, err := svc.CreateTrip(ctx, core.Trip{ID: "mine", Distance: core.Float(1), Start: at(2024, time.March, 1)})
	require.NoError(t, err)
	assert.Equal(t, "mine", kept.ID)
}

func TestRecordService_CreateTripValidation(t *testing.T) {
	svc := NewRecordService(memory.New())
	tests := []struct {
		name string
		trip core.Trip
		want error
	}{
		{"missing distance", core.Trip{Start: at(2024, 1, 1)}, core.ErrMissingDistance},
		{"negative distance", core.Trip{Distance: core.Float(-1), Start: at(2024, 1, 1)}, core.ErrInvalidDistance},
		{"missing date", core.Trip{Distance: core.Float(1)}, core.ErrMissingDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTrip(context.Background(), tt.trip)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRecordService_ClassifyTrip(t *testing.T) {
	st := memory.New()
	svc := NewRecordService(st)
	ctx := context.Background()
	require.NoError(t, st.SaveTrip(ctx, core.Trip{ID: "t1", Distance: core.Float(3), Start: at(2024, 1, 1)}))

	got, err := svc.ClassifyTrip(ctx, "t1", "BUSINESS")
	require.NoError(t, err)
	assert.Equal(t, "Business", got.Purpose)
	assert.True(t, got.IsBusiness())

	got, err = svc.ClassifyTrip(ctx, "t1", "personal")
	require.NoError(t, err)
	assert.Equal(t, "Personal", got.Purpose)

	_, err = svc.ClassifyTrip(ctx, "t1", "vacation")
	assert.ErrorIs(t, err, core.ErrInvalidLabel)

	_, err = svc.ClassifyTrip(ctx, "missing", "business")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecordService_Expenses(t *testing.T) {
	st := memory.New()
	svc := NewRecordService(st)
	ctx := context.Background()

	created, err := svc.CreateExpense(ctx, core.Expense{
		Amount:   core.Float(42.5),
		Category: "  Gas ",
		Date:     at(2024, time.March, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, "Gas", created.Category)

	_, err = svc.CreateExpense(ctx, core.Expense{Amount: core.Float(1), Date: at(2024, 1, 1)})
	assert.ErrorIs(t, err, core.ErrEmptyCategory)

	classified, err := svc.ClassifyExpense(ctx, created.ID, "business")
	require.NoError(t, err)
	assert.Equal(t, "Business", classified.Classification)

	require.NoError(t, svc.DeleteExpense(ctx, created.ID))
	_, err = st.GetExpense(ctx, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecordService_DeleteTrip(t *testing.T) {
	st := memory.New()
	svc := NewRecordService(st)
	ctx := context.Background()
	require.NoError(t, st.SaveTrip(ctx, core.Trip{ID: "t1"}))

	require.NoError(t, svc.DeleteTrip(ctx, "t1"))
	assert.ErrorIs(t, svc.DeleteTrip(ctx, "t1"), store.ErrNotFound)
}

func TestRecordService_Rates(t *testing.T) {
	st := memory.New()
	svc := NewRecordService(st)
	ctx := context.Background()

	require.NoError(t, svc.SetRate(ctx, " business ", 0.655))
	overrides, _ := st.RateOverrides(ctx)
	assert.Equal(t, map[string]float64{"business": 0.655}, overrides)

	assert.Error(t, svc.SetRate(ctx, "", 0.5))
	assert.Error(t, svc.SetRate(ctx, "business", -0.1))

	require.NoError(t, svc.ClearRate(ctx, "business"))
	overrides, _ = st.RateOverrides(ctx)
	assert.Empty(t, overrides)
}
