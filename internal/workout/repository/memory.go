package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/workoutlog/workoutlog/backend/go-services/internal/workout"
)

// MemoryRepo is an in-memory Repository used by DB_DRIVER=memory and unit tests.
type MemoryRepo struct {
	mu        sync.RWMutex
	workoutID int64
	routineID int64
	workouts  map[int64]workout.Workout
	routines  map[int64]workout.Routine
	links     map[int64]map[int64]bool // routine id -> workout ids
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		workouts: map[int64]workout.Workout{},
		routines: map[int64]workout.Routine{},
		links:    map[int64]map[int64]bool{},
	}
}

func (m *MemoryRepo) CreateWorkout(ctx context.Context, w *workout.Workout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workoutID++
	w.ID = m.workoutID
	w.CreatedAt = time.Now().UTC()
	w.UpdatedAt = w.CreatedAt
	m.workouts[w.ID] = *w
	return nil
}

func (m *MemoryRepo) GetWorkout(ctx context.Context, userID, id int64) (*workout.Workout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.workouts[id]
	if !ok || w.UserID != userID {
		return nil, ErrNotFound
	}
	return &w, nil
}

func (m *MemoryRepo) ListWorkouts(ctx context.Context, userID int64, f workout.Filter) ([]*workout.Workout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*workout.Workout{}
	for _, w := range m.workouts {
		w := w
		if w.UserID == userID && f.Match(&w) {
			out = append(out, &w)
		}
	}
	sortWorkouts(out)
	return out, nil
}

func (m *MemoryRepo) UpdateWorkout(ctx context.Context, w *workout.Workout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.workouts[w.ID]
	if !ok || cur.UserID != w.UserID {
		return ErrNotFound
	}
	w.CreatedAt = cur.CreatedAt
	w.UpdatedAt = time.Now().UTC()
	m.workouts[w.ID] = *w
	return nil
}

func (m *MemoryRepo) DeleteWorkout(ctx context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workouts[id]
	if !ok || w.UserID != userID {
		return ErrNotFound
	}
	delete(m.workouts, id)
	for _, set := range m.links {
		delete(set, id)
	}
	return nil
}

func (m *MemoryRepo) routineIDs(routineID int64) []int64 {
	ids := make([]int64, 0, len(m.links[routineID]))
	for id := range m.links[routineID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *MemoryRepo) setLinks(routineID int64, workoutIDs []int64) {
	set := make(map[int64]bool, len(workoutIDs))
	for _, id := range workoutIDs {
		set[id] = true
	}
	m.links[routineID] = set
}

func (m *MemoryRepo) CreateRoutine(ctx context.Context, r *workout.Routine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routineID++
	r.ID = m.routineID
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	m.setLinks(r.ID, r.WorkoutIDs)
	r.WorkoutIDs = m.routineIDs(r.ID)
	stored := *r
	stored.WorkoutIDs = nil
	m.routines[r.ID] = stored
	return nil
}

func (m *MemoryRepo) GetRoutine(ctx context.Context, userID, id int64) (*workout.Routine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.routines[id]
	if !ok || r.UserID != userID {
		return nil, ErrNotFound
	}
	r.WorkoutIDs = m.routineIDs(id)
	return &r, nil
}

func (m *MemoryRepo) ListRoutines(ctx context.Context, userID int64) ([]*workout.Routine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*workout.Routine{}
	for id, r := range m.routines {
		if r.UserID != userID {
			continue
		}
		r := r
		r.WorkoutIDs = m.routineIDs(id)
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryRepo) UpdateRoutine(ctx context.Context, r *workout.Routine, replaceLinks bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.routines[r.ID]
	if !ok || cur.UserID != r.UserID {
		return ErrNotFound
	}
	if replaceLinks {
		m.setLinks(r.ID, r.WorkoutIDs)
	}
	r.CreatedAt = cur.CreatedAt
	r.UpdatedAt = time.Now().UTC()
	r.WorkoutIDs = m.routineIDs(r.ID)
	stored := *r
	stored.WorkoutIDs = nil
	m.routines[r.ID] = stored
	return nil
}

func (m *MemoryRepo) DeleteRoutine(ctx context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routines[id]
	if !ok || r.UserID != userID {
		return ErrNotFound
	}
	delete(m.routines, id)
	delete(m.links, id)
	return nil
}

func (m *MemoryRepo) LinkWorkout(ctx context.Context, routineID, workoutID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.routines[routineID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.workouts[workoutID]; !ok {
		return ErrNotFound
	}
	if m.links[routineID] == nil {
		m.links[routineID] = map[int64]bool{}
	}
	m.links[routineID][workoutID] = true
	return nil
}

func (m *MemoryRepo) UnlinkWorkout(ctx context.Context, routineID, workoutID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.links[routineID], workoutID)
	return nil
}
