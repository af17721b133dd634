package workout

import "time"

// DateLayout is the wire and storage format of workout and routine dates.
const DateLayout = "2006-01-02"

// Workout is a single training session owned by one user.
type Workout struct {
	ID          int64     `json:"id" gorm:"primaryKey" bson:"_id"`
	Name        string    `json:"name" gorm:"index;not null" bson:"name"`
	Description *string   `json:"description" gorm:"index" bson:"description,omitempty"`
	Duration    int       `json:"duration" bson:"duration"` // minutes
	Date        string    `json:"date" gorm:"index" bson:"date"`
	UserID      int64     `json:"user_id" gorm:"index;not null" bson:"userId"`
	CreatedAt   time.Time `json:"-" bson:"createdAt"`
	UpdatedAt   time.Time `json:"-" bson:"updatedAt"`
}

func (Workout) TableName() string { return "workouts" }

// Routine groups workouts of the same user into a program.
type Routine struct {
	ID          int64     `json:"id" gorm:"primaryKey" bson:"_id"`
	Name        string    `json:"name" gorm:"index;not null" bson:"name"`
	Description *string   `json:"description" gorm:"index" bson:"description,omitempty"`
	Duration    int       `json:"duration" bson:"duration"` // minutes
	Date        string    `json:"date" bson:"date"`
	UserID      int64     `json:"user_id" gorm:"index;not null" bson:"userId"`
	WorkoutIDs  []int64   `json:"workout_ids" gorm:"-" bson:"workoutIds"`
	CreatedAt   time.Time `json:"-" bson:"createdAt"`
	UpdatedAt   time.Time `json:"-" bson:"updatedAt"`
}

func (Routine) TableName() string { return "routines" }

// WorkoutRoutine is the many-to-many link between workouts and routines.
// Link rows go away with either side.
type WorkoutRoutine struct {
	WorkoutID int64    `gorm:"primaryKey;autoIncrement:false"`
	RoutineID int64    `gorm:"primaryKey;autoIncrement:false;index"`
	Workout   *Workout `json:"-" bson:"-" gorm:"foreignKey:WorkoutID;constraint:OnDelete:CASCADE"`
	Routine   *Routine `json:"-" bson:"-" gorm:"foreignKey:RoutineID;constraint:OnDelete:CASCADE"`
}

func (WorkoutRoutine) TableName() string { return "workout_routine" }

// Filter narrows workout listings to an inclusive date range. Empty bounds are open.
type Filter struct {
	From string
	To   string
}

// Match reports whether the workout date falls inside the filter.
func (f Filter) Match(w *Workout) bool {
	if f.From != "" && w.Date < f.From {
		return false
	}
	if f.To != "" && w.Date > f.To {
		return false
	}
	return true
}

// Stats summarises the workouts inside a window.
type Stats struct {
	Count           int     `json:"count"`
	TotalDuration   int     `json:"total_duration"`
	AverageDuration float64 `json:"average_duration"`
	From            string  `json:"from,omitempty"`
	To              string  `json:"to,omitempty"`
}

// Export is the document written to object storage by an export.
type Export struct {
	UserID     int64      `json:"user_id"`
	ExportedAt time.Time  `json:"exported_at"`
	Workouts   []*Workout `json:"workouts"`
	Routines   []*Routine `json:"routines"`
}
