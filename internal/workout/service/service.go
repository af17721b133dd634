package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/workout"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/workout/repository"
	"github.com/workoutlog/workoutlog/backend/go-services/pkg/metrics"
)

var (
	ErrWorkoutNotFound = errors.New("workout not found")
	ErrRoutineNotFound = errors.New("routine not found")
	// ErrExportUnavailable is returned by Export when no object store is configured.
	ErrExportUnavailable = errors.New("export storage is not configured")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ObjectStore is the subset of the MinIO wrapper used for exports.
type ObjectStore interface {
	UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	GetPresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// WorkoutInput is the writable part of a workout.
type WorkoutInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Duration    int     `json:"duration"`
	Date        string  `json:"date"`
}

// RoutineInput is the writable part of a routine. A nil WorkoutIDs leaves links untouched on update.
type RoutineInput struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Duration    int      `json:"duration"`
	Date        string   `json:"date"`
	WorkoutIDs  *[]int64 `json:"workout_ids"`
}

// ExportResult describes an uploaded export.
type ExportResult struct {
	Key   string `json:"key"`
	URL   string `json:"url"`
	Count int    `json:"count"`
}

const exportURLTTL = 15 * time.Minute

// Service holds the workout and routine business rules.
type Service struct {
	repo  repository.Repository
	store ObjectStore
	now   func() time.Time
}

// NewService builds a Service. store may be nil, which disables exports.
func NewService(repo repository.Repository, store ObjectStore) *Service {
	return &Service{repo: repo, store: store, now: time.Now}
}

func validate(name string, duration int, date string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if duration < 0 {
		return &ValidationError{Field: "duration", Reason: "must not be negative"}
	}
	if _, err := time.Parse(workout.DateLayout, date); err != nil {
		return &ValidationError{Field: "date", Reason: "must be a date in YYYY-MM-DD format"}
	}
	return nil
}

func mutated(kind, op string) {
	metrics.WorkoutMutations.WithLabelValues(kind, op).Inc()
}

func (s *Service) CreateWorkout(ctx context.Context, userID int64, in WorkoutInput) (*workout.Workout, error) {
	if err := validate(in.Name, in.Duration, in.Date); err != nil {
		return nil, err
	}
	w := &workout.Workout{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Duration:    in.Duration,
		Date:        in.Date,
		UserID:      userID,
	}
	if err := s.repo.CreateWorkout(ctx, w); err != nil {
		return nil, fmt.Errorf("create workout: %w", err)
	}
	mutated("workout", "create")
	return w, nil
}

func (s *Service) GetWorkout(ctx context.Context, userID, id int64) (*workout.Workout, error) {
	w, err := s.repo.GetWorkout(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrWorkoutNotFound
	}
	return w, err
}

// ListWorkouts returns the user's workouts inside f. Bounds must be dates when set.
func (s *Service) ListWorkouts(ctx context.Context, userID int64, f workout.Filter) ([]*workout.Workout, error) {
	for field, v := range map[string]string{"from": f.From, "to": f.To} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(workout.DateLayout, v); err != nil {
			return nil, &ValidationError{Field: field, Reason: "must be a date in YYYY-MM-DD format"}
		}
	}
	return s.repo.ListWorkouts(ctx, userID, f)
}

func (s *Service) UpdateWorkout(ctx context.Context, userID, id int64, in WorkoutInput) (*workout.Workout, error) {
	if err := validate(in.Name, in.Duration, in.Date); err != nil {
		return nil, err
	}
	w := &workout.Workout{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Duration:    in.Duration,
		Date:        in.Date,
		UserID:      userID,
	}
	if err := s.repo.UpdateWorkout(ctx, w); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, fmt.Errorf("update workout: %w", err)
	}
	mutated("workout", "update")
	return w, nil
}

func (s *Service) DeleteWorkout(ctx context.Context, userID, id int64) error {
	if err := s.repo.DeleteWorkout(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrWorkoutNotFound
		}
		return fmt.Errorf("delete workout: %w", err)
	}
	mutated("workout", "delete")
	return nil
}

// Stats summarises the last days days of workouts, today included. days == 0 covers everything.
func (s *Service) Stats(ctx context.Context, userID int64, days int) (*workout.Stats, error) {
	if days < 0 {
		return nil, &ValidationError{Field: "days", Reason: "must not be negative"}
	}
	var f workout.Filter
	if days > 0 {
		today := s.now().UTC()
		f.From = today.AddDate(0, 0, -(days - 1)).Format(workout.DateLayout)
		f.To = today.Format(workout.DateLayout)
	}
	ws, err := s.repo.ListWorkouts(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	st := &workout.Stats{Count: len(ws), From: f.From, To: f.To}
	for _, w := range ws {
		st.TotalDuration += w.Duration
	}
	if st.Count > 0 {
		st.AverageDuration = float64(st.TotalDuration) / float64(st.Count)
	}
	return st, nil
}

// checkOwned verifies every id names a workout of userID.
func (s *Service) checkOwned(ctx context.Context, userID int64, ids []int64) error {
	for _, id := range ids {
		if _, err := s.repo.GetWorkout(ctx, userID, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return &ValidationError{Field: "workout_ids", Reason: fmt.Sprintf("workout %d does not exist", id)}
			}
			return err
		}
	}
	return nil
}

func (s *Service) CreateRoutine(ctx context.Context, userID int64, in RoutineInput) (*workout.Routine, error) {
	if err := validate(in.Name, in.Duration, in.Date); err != nil {
		return nil, err
	}
	r := &workout.Routine{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Duration:    in.Duration,
		Date:        in.Date,
		UserID:      userID,
		WorkoutIDs:  []int64{},
	}
	if in.WorkoutIDs != nil {
		if err := s.checkOwned(ctx, userID, *in.WorkoutIDs); err != nil {
			return nil, err
		}
		r.WorkoutIDs = *in.WorkoutIDs
	}
	if err := s.repo.CreateRoutine(ctx, r); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// a listed workout was deleted after checkOwned
			return nil, &ValidationError{Field: "workout_ids", Reason: "a listed workout no longer exists"}
		}
		return nil, fmt.Errorf("create routine: %w", err)
	}
	mutated("routine", "create")
	return r, nil
}

func (s *Service) GetRoutine(ctx context.Context, userID, id int64) (*workout.Routine, error) {
	r, err := s.repo.GetRoutine(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRoutineNotFound
	}
	return r, err
}

func (s *Service) ListRoutines(ctx context.Context, userID int64) ([]*workout.Routine, error) {
	return s.repo.ListRoutines(ctx, userID)
}

func (s *Service) UpdateRoutine(ctx context.Context, userID, id int64, in RoutineInput) (*workout.Routine, error) {
	if err := validate(in.Name, in.Duration, in.Date); err != nil {
		return nil, err
	}
	if _, err := s.GetRoutine(ctx, userID, id); err != nil {
		return nil, err
	}
	r := &workout.Routine{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Duration:    in.Duration,
		Date:        in.Date,
		UserID:      userID,
	}
	if in.WorkoutIDs != nil {
		if err := s.checkOwned(ctx, userID, *in.WorkoutIDs); err != nil {
			return nil, err
		}
		r.WorkoutIDs = *in.WorkoutIDs
	}
	if err := s.repo.UpdateRoutine(ctx, r, in.WorkoutIDs != nil); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoutineNotFound
		}
		return nil, fmt.Errorf("update routine: %w", err)
	}
	mutated("routine", "update")
	return r, nil
}

func (s *Service) DeleteRoutine(ctx context.Context, userID, id int64) error {
	if err := s.repo.DeleteRoutine(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoutineNotFound
		}
		return fmt.Errorf("delete routine: %w", err)
	}
	mutated("routine", "delete")
	return nil
}

// LinkWorkout adds one of the user's workouts to one of their routines. Linking twice is a no-op.
func (s *Service) LinkWorkout(ctx context.Context, userID, routineID, workoutID int64) (*workout.Routine, error) {
	if _, err := s.GetRoutine(ctx, userID, routineID); err != nil {
		return nil, err
	}
	if err := s.checkOwned(ctx, userID, []int64{workoutID}); err != nil {
		return nil, err
	}
	if err := s.repo.LinkWorkout(ctx, routineID, workoutID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("link workout: %w", err)
		}
		if _, err := s.GetRoutine(ctx, userID, routineID); err != nil {
			return nil, err
		}
		return nil, &ValidationError{Field: "workout_ids", Reason: fmt.Sprintf("workout %d does not exist", workoutID)}
	}
	mutated("routine", "link")
	return s.GetRoutine(ctx, userID, routineID)
}

// UnlinkWorkout removes a workout from a routine. Unlinking a workout that is not linked is a no-op.
func (s *Service) UnlinkWorkout(ctx context.Context, userID, routineID, workoutID int64) (*workout.Routine, error) {
	if _, err := s.GetRoutine(ctx, userID, routineID); err != nil {
		return nil, err
	}
	if err := s.repo.UnlinkWorkout(ctx, routineID, workoutID); err != nil {
		return nil, fmt.Errorf("unlink workout: %w", err)
	}
	mutated("routine", "unlink")
	return s.GetRoutine(ctx, userID, routineID)
}

// ExportEnabled reports whether an object store is configured.
func (s *Service) ExportEnabled() bool { return s.store != nil }

// Export uploads every workout and routine of the user as one JSON document
// and returns a short-lived download URL.
func (s *Service) Export(ctx context.Context, userID int64) (*ExportResult, error) {
	if s.store == nil {
		return nil, ErrExportUnavailable
	}
	ws, err := s.repo.ListWorkouts(ctx, userID, workout.Filter{})
	if err != nil {
		return nil, err
	}
	rs, err := s.repo.ListRoutines(ctx, userID)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(workout.Export{UserID: userID, ExportedAt: s.now().UTC(), Workouts: ws, Routines: rs})
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	key := fmt.Sprintf("exports/%d/%s.json", userID, uuid.NewString())
	if err := s.store.UploadFile(ctx, key, bytes.NewReader(body), int64(len(body)), "application/json"); err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}
	url, err := s.store.GetPresignedURL(ctx, key, exportURLTTL)
	if err != nil {
		return nil, fmt.Errorf("presign export: %w", err)
	}
	mutated("export", "create")
	return &ExportResult{Key: key, URL: url, Count: len(ws)}, nil
}
