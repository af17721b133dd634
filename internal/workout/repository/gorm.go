package repository

import (
	"context"
	"errors"
	"time"

	"github.com/workoutlog/workoutlog/backend/go-services/internal/workout"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRepo implements Repository on the relational schema created by database.Migrate.
type GormRepo struct {
	db *gorm.DB
}

func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{db: db}
}

// notFound maps missing rows, and links pointing at missing rows, onto ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return ErrNotFound
	}
	return err
}

// fields builds an update map so a nil description is written as NULL.
func fields(name string, description *string, duration int, date string) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"duration":    duration,
		"date":        date,
		"updated_at":  time.Now().UTC(),
	}
}

func (g *GormRepo) CreateWorkout(ctx context.Context, w *workout.Workout) error {
	w.ID = 0
	return g.db.WithContext(ctx).Create(w).Error
}

func (g *GormRepo) GetWorkout(ctx context.Context, userID, id int64) (*workout.Workout, error) {
	var w workout.Workout
	if err := g.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&w).Error; err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

func (g *GormRepo) ListWorkouts(ctx context.Context, userID int64, f workout.Filter) ([]*workout.Workout, error) {
	q := g.db.WithContext(ctx).Where("user_id = ?", userID)
	if f.From != "" {
		q = q.Where("date >= ?", f.From)
	}
	if f.To != "" {
		q = q.Where("date <= ?", f.To)
	}
	out := []*workout.Workout{}
	if err := q.Order("date asc, id asc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (g *GormRepo) UpdateWorkout(ctx context.Context, w *workout.Workout) error {
	res := g.db.WithContext(ctx).Model(&workout.Workout{}).
		Where("id = ? AND user_id = ?", w.ID, w.UserID).
		Updates(fields(w.Name, w.Description, w.Duration, w.Date))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *GormRepo) DeleteWorkout(ctx context.Context, userID, id int64) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&workout.Workout{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("workout_id = ?", id).Delete(&workout.WorkoutRoutine{}).Error
	})
}

func (g *GormRepo) loadLinks(tx *gorm.DB, routines ...*workout.Routine) error {
	if len(routines) == 0 {
		return nil
	}
	byID := make(map[int64]*workout.Routine, len(routines))
	ids := make([]int64, 0, len(routines))
	for _, r := range routines {
		r.WorkoutIDs = []int64{}
		byID[r.ID] = r
		ids = append(ids, r.ID)
	}
	var links []workout.WorkoutRoutine
	if err := tx.Where("routine_id IN ?", ids).Order("workout_id asc").Find(&links).Error; err != nil {
		return err
	}
	for _, l := range links {
		r := byID[l.RoutineID]
		r.WorkoutIDs = append(r.WorkoutIDs, l.WorkoutID)
	}
	return nil
}

func insertLinks(tx *gorm.DB, routineID int64, workoutIDs []int64) error {
	ids := dedupe(workoutIDs)
	if len(ids) == 0 {
		return nil
	}
	rows := make([]workout.WorkoutRoutine, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, workout.WorkoutRoutine{WorkoutID: id, RoutineID: routineID})
	}
	err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	return notFound(err)
}

func (g *GormRepo) CreateRoutine(ctx context.Context, r *workout.Routine) error {
	r.ID = 0
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(r).Error; err != nil {
			return err
		}
		if err := insertLinks(tx, r.ID, r.WorkoutIDs); err != nil {
			return err
		}
		return g.loadLinks(tx, r)
	})
}

func (g *GormRepo) GetRoutine(ctx context.Context, userID, id int64) (*workout.Routine, error) {
	var r workout.Routine
	db := g.db.WithContext(ctx)
	if err := db.Where("id = ? AND user_id = ?", id, userID).First(&r).Error; err != nil {
		return nil, notFound(err)
	}
	if err := g.loadLinks(db, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (g *GormRepo) ListRoutines(ctx context.Context, userID int64) ([]*workout.Routine, error) {
	db := g.db.WithContext(ctx)
	out := []*workout.Routine{}
	if err := db.Where("user_id = ?", userID).Order("id asc").Find(&out).Error; err != nil {
		return nil, err
	}
	if err := g.loadLinks(db, out...); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *GormRepo) UpdateRoutine(ctx context.Context, r *workout.Routine, replaceLinks bool) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&workout.Routine{}).
			Where("id = ? AND user_id = ?", r.ID, r.UserID).
			Updates(fields(r.Name, r.Description, r.Duration, r.Date))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if replaceLinks {
			if err := tx.Where("routine_id = ?", r.ID).Delete(&workout.WorkoutRoutine{}).Error; err != nil {
				return err
			}
			if err := insertLinks(tx, r.ID, r.WorkoutIDs); err != nil {
				return err
			}
		}
		return g.loadLinks(tx, r)
	})
}

func (g *GormRepo) DeleteRoutine(ctx context.Context, userID, id int64) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&workout.Routine{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("routine_id = ?", id).Delete(&workout.WorkoutRoutine{}).Error
	})
}

func (g *GormRepo) LinkWorkout(ctx context.Context, routineID, workoutID int64) error {
	return insertLinks(g.db.WithContext(ctx), routineID, []int64{workoutID})
}

func (g *GormRepo) UnlinkWorkout(ctx context.Context, routineID, workoutID int64) error {
	return g.db.WithContext(ctx).
		Where("routine_id = ? AND workout_id = ?", routineID, workoutID).
		Delete(&workout.WorkoutRoutine{}).Error
}
