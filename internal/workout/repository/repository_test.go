package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/database"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/workout"
)

func strPtr(s string) *string { return &s }

func runRepoSuite(t *testing.T, r Repository) {
	ctx := context.Background()

	t.Run("workout CRUD", func(t *testing.T) {
		w := &workout.Workout{Name: "Run", Description: strPtr("5k"), Duration: 30, Date: "2024-05-02", UserID: 1}
		require.NoError(t, r.CreateWorkout(ctx, w))
		require.Positive(t, w.ID)

		got, err := r.GetWorkout(ctx, 1, w.ID)
		require.NoError(t, err)
		require.Equal(t, "Run", got.Name)
		require.Equal(t, "5k", *got.Description)

		// other users cannot see it
		_, err = r.GetWorkout(ctx, 2, w.ID)
		require.ErrorIs(t, err, ErrNotFound)

		w.Name = "Long run"
		w.Description = nil
		w.Duration = 60
		require.NoError(t, r.UpdateWorkout(ctx, w))
		got, err = r.GetWorkout(ctx, 1, w.ID)
		require.NoError(t, err)
		require.Equal(t, "Long run", got.Name)
		require.Nil(t, got.Description)
		require.Equal(t, 60, got.Duration)

		require.ErrorIs(t, r.UpdateWorkout(ctx, &workout.Workout{ID: w.ID, UserID: 2, Name: "x", Date: "2024-01-01"}), ErrNotFound)
		require.ErrorIs(t, r.DeleteWorkout(ctx, 2, w.ID), ErrNotFound)
		require.NoError(t, r.DeleteWorkout(ctx, 1, w.ID))
		require.ErrorIs(t, r.DeleteWorkout(ctx, 1, w.ID), ErrNotFound)
	})

	t.Run("list orders by date and filters", func(t *testing.T) {
		for _, d := range []string{"2024-03-10", "2024-01-05", "2024-02-20", "2024-01-05"} {
			require.NoError(t, r.CreateWorkout(ctx, &workout.Workout{Name: "w", Duration: 10, Date: d, UserID: 10}))
		}
		require.NoError(t, r.CreateWorkout(ctx, &workout.Workout{Name: "other", Duration: 10, Date: "2024-01-01", UserID: 11}))

		all, err := r.ListWorkouts(ctx, 10, workout.Filter{})
		require.NoError(t, err)
		require.Len(t, all, 4)
		require.Equal(t, "2024-01-05", all[0].Date)
		require.Equal(t, "2024-01-05", all[1].Date)
		require.Less(t, all[0].ID, all[1].ID)
		require.Equal(t, "2024-03-10", all[3].Date)

		some, err := r.ListWorkouts(ctx, 10, workout.Filter{From: "2024-01-06", To: "2024-02-20"})
		require.NoError(t, err)
		require.Len(t, some, 1)
		require.Equal(t, "2024-02-20", some[0].Date)

		none, err := r.ListWorkouts(ctx, 99, workout.Filter{})
		require.NoError(t, err)
		require.NotNil(t, none)
		require.Empty(t, none)
	})

	t.Run("routines and links", func(t *testing.T) {
		a := &workout.Workout{Name: "a", Duration: 5, Date: "2024-04-01", UserID: 20}
		b := &workout.Workout{Name: "b", Duration: 5, Date: "2024-04-02", UserID: 20}
		require.NoError(t, r.CreateWorkout(ctx, a))
		require.NoError(t, r.CreateWorkout(ctx, b))

		rt := &workout.Routine{Name: "Leg day", Duration: 45, Date: "2024-04-03", UserID: 20, WorkoutIDs: []int64{b.ID, a.ID, b.ID}}
		require.NoError(t, r.CreateRoutine(ctx, rt))
		require.Positive(t, rt.ID)
		require.Equal(t, []int64{a.ID, b.ID}, rt.WorkoutIDs)

		got, err := r.GetRoutine(ctx, 20, rt.ID)
		require.NoError(t, err)
		require.Equal(t, []int64{a.ID, b.ID}, got.WorkoutIDs)
		_, err = r.GetRoutine(ctx, 21, rt.ID)
		require.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, r.UnlinkWorkout(ctx, rt.ID, a.ID))
		require.NoError(t, r.UnlinkWorkout(ctx, rt.ID, a.ID))
		got, err = r.GetRoutine(ctx, 20, rt.ID)
		require.NoError(t, err)
		require.Equal(t, []int64{b.ID}, got.WorkoutIDs)

		require.NoError(t, r.LinkWorkout(ctx, rt.ID, a.ID))
		require.NoError(t, r.LinkWorkout(ctx, rt.ID, a.ID))
		require.ErrorIs(t, r.LinkWorkout(ctx, rt.ID, 987654), ErrNotFound)
		got, err = r.GetRoutine(ctx, 20, rt.ID)
		require.NoError(t, err)
		require.Equal(t, []int64{a.ID, b.ID}, got.WorkoutIDs)

		// updating without replacing keeps the links
		rt.Name = "Legs"
		rt.WorkoutIDs = nil
		require.NoError(t, r.UpdateRoutine(ctx, rt, false))
		require.Equal(t, []int64{a.ID, b.ID}, rt.WorkoutIDs)

		rt.WorkoutIDs = []int64{a.ID}
		require.NoError(t, r.UpdateRoutine(ctx, rt, true))
		require.Equal(t, []int64{a.ID}, rt.WorkoutIDs)

		// deleting a workout drops it from routines
		require.NoError(t, r.DeleteWorkout(ctx, 20, a.ID))
		got, err = r.GetRoutine(ctx, 20, rt.ID)
		require.NoError(t, err)
		require.Equal(t, "Legs", got.Name)
		require.Empty(t, got.WorkoutIDs)

		list, err := r.ListRoutines(ctx, 20)
		require.NoError(t, err)
		require.Len(t, list, 1)

		require.ErrorIs(t, r.DeleteRoutine(ctx, 21, rt.ID), ErrNotFound)
		require.NoError(t, r.DeleteRoutine(ctx, 20, rt.ID))
		_, err = r.GetRoutine(ctx, 20, rt.ID)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryRepo(t *testing.T) {
	runRepoSuite(t, NewMemoryRepo())
}

func TestGormRepo(t *testing.T) {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	runRepoSuite(t, NewGormRepo(db))
}

func TestGormRepo_LinksCascade(t *testing.T) {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	r := NewGormRepo(db)
	ctx := context.Background()

	w := &workout.Workout{Name: "swim", Duration: 30, Date: "2024-07-01", UserID: 3}
	require.NoError(t, r.CreateWorkout(ctx, w))
	rt := &workout.Routine{Name: "Pool", Duration: 30, Date: "2024-07-01", UserID: 3, WorkoutIDs: []int64{w.ID}}
	require.NoError(t, r.CreateRoutine(ctx, rt))

	// rows removed behind the repository's back still take their links along
	require.NoError(t, db.Delete(&workout.Workout{}, w.ID).Error)
	var n int64
	require.NoError(t, db.Model(&workout.WorkoutRoutine{}).Where("workout_id = ?", w.ID).Count(&n).Error)
	require.Zero(t, n)

	require.ErrorIs(t, r.LinkWorkout(ctx, rt.ID, w.ID), ErrNotFound)
	got, err := r.GetRoutine(ctx, 3, rt.ID)
	require.NoError(t, err)
	require.Empty(t, got.WorkoutIDs)

	w2 := &workout.Workout{Name: "dive", Duration: 10, Date: "2024-07-02", UserID: 3}
	require.NoError(t, r.CreateWorkout(ctx, w2))
	require.NoError(t, r.LinkWorkout(ctx, rt.ID, w2.ID))
	require.NoError(t, db.Delete(&workout.Routine{}, rt.ID).Error)
	require.NoError(t, db.Model(&workout.WorkoutRoutine{}).Where("routine_id = ?", rt.ID).Count(&n).Error)
	require.Zero(t, n)
}
