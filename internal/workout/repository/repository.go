package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/workoutlog/workoutlog/backend/go-services/internal/workout"
)

// ErrNotFound is returned when a row does not exist or belongs to another user.
var ErrNotFound = errors.New("not found")

// Repository persists workouts, routines and the links between them.
// Every read and write is scoped to the owning user id.
type Repository interface {
	CreateWorkout(ctx context.Context, w *workout.Workout) error
	GetWorkout(ctx context.Context, userID, id int64) (*workout.Workout, error)
	ListWorkouts(ctx context.Context, userID int64, f workout.Filter) ([]*workout.Workout, error)
	UpdateWorkout(ctx context.Context, w *workout.Workout) error
	DeleteWorkout(ctx context.Context, userID, id int64) error

	CreateRoutine(ctx context.Context, r *workout.Routine) error
	GetRoutine(ctx context.Context, userID, id int64) (*workout.Routine, error)
	ListRoutines(ctx context.Context, userID int64) ([]*workout.Routine, error)
	// UpdateRoutine writes the routine fields and, when replaceLinks is set, its workout set.
	UpdateRoutine(ctx context.Context, r *workout.Routine, replaceLinks bool) error
	DeleteRoutine(ctx context.Context, userID, id int64) error

	LinkWorkout(ctx context.Context, routineID, workoutID int64) error
	UnlinkWorkout(ctx context.Context, routineID, workoutID int64) error
}

func sortWorkouts(ws []*workout.Workout) {
	sort.SliceStable(ws, func(i, j int) bool {
		if ws[i].Date != ws[j].Date {
			return ws[i].Date < ws[j].Date
		}
		return ws[i].ID < ws[j].ID
	})
}

func sortIDs(ids []int64) []int64 {
	out := append([]int64{}, ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// dedupe keeps the first occurrence of every id.
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
