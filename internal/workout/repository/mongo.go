package repository

import (
	"context"
	"errors"
	"time"

	"github.com/workoutlog/workoutlog/backend/go-services/internal/database"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/workout"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo stores workouts and routines in two collections. Routines embed
// their linked workout ids, so the link table becomes an array field.
type MongoRepo struct {
	workouts *mongo.Collection
	routines *mongo.Collection
	counters *mongo.Collection
}

// NewMongoRepo ensures the per-user indexes exist.
func NewMongoRepo(ctx context.Context, db *mongo.Database) (*MongoRepo, error) {
	m := &MongoRepo{
		workouts: db.Collection("workouts"),
		routines: db.Collection("routines"),
		counters: db.Collection(database.CountersCollection),
	}
	_, err := m.workouts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: 1}},
	})
	if err != nil {
		return nil, err
	}
	_, err = m.routines.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "workoutIds", Value: 1}}},
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MongoRepo) CreateWorkout(ctx context.Context, w *workout.Workout) error {
	id, err := database.NextSequence(ctx, m.counters, "workouts")
	if err != nil {
		return err
	}
	w.ID = id
	w.CreatedAt = time.Now().UTC()
	w.UpdatedAt = w.CreatedAt
	_, err = m.workouts.InsertOne(ctx, w)
	return err
}

func (m *MongoRepo) GetWorkout(ctx context.Context, userID, id int64) (*workout.Workout, error) {
	var w workout.Workout
	err := m.workouts.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&w)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (m *MongoRepo) ListWorkouts(ctx context.Context, userID int64, f workout.Filter) ([]*workout.Workout, error) {
	filter := bson.M{"userId": userID}
	date := bson.M{}
	if f.From != "" {
		date["$gte"] = f.From
	}
	if f.To != "" {
		date["$lte"] = f.To
	}
	if len(date) > 0 {
		filter["date"] = date
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := m.workouts.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*workout.Workout{}
	for cur.Next(ctx) {
		var w workout.Workout
		if err := cur.Decode(&w); err != nil {
			return nil, err
		}
		out = append(out, &w)
	}
	return out, cur.Err()
}

func (m *MongoRepo) UpdateWorkout(ctx context.Context, w *workout.Workout) error {
	w.UpdatedAt = time.Now().UTC()
	set := bson.M{"name": w.Name, "description": w.Description, "duration": w.Duration, "date": w.Date, "updatedAt": w.UpdatedAt}
	res, err := m.workouts.UpdateOne(ctx, bson.M{"_id": w.ID, "userId": w.UserID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) DeleteWorkout(ctx context.Context, userID, id int64) error {
	res, err := m.workouts.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	_, err = m.routines.UpdateMany(ctx, bson.M{"workoutIds": id}, bson.M{"$pull": bson.M{"workoutIds": id}})
	return err
}

func (m *MongoRepo) CreateRoutine(ctx context.Context, r *workout.Routine) error {
	id, err := database.NextSequence(ctx, m.counters, "routines")
	if err != nil {
		return err
	}
	r.ID = id
	r.WorkoutIDs = sortIDs(dedupe(r.WorkoutIDs))
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	_, err = m.routines.InsertOne(ctx, r)
	return err
}

func (m *MongoRepo) GetRoutine(ctx context.Context, userID, id int64) (*workout.Routine, error) {
	var r workout.Routine
	err := m.routines.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&r)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r.WorkoutIDs = sortIDs(r.WorkoutIDs)
	return &r, nil
}

func (m *MongoRepo) ListRoutines(ctx context.Context, userID int64) ([]*workout.Routine, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := m.routines.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*workout.Routine{}
	for cur.Next(ctx) {
		var r workout.Routine
		if err := cur.Decode(&r); err != nil {
			return nil, err
		}
		r.WorkoutIDs = sortIDs(r.WorkoutIDs)
		out = append(out, &r)
	}
	return out, cur.Err()
}

func (m *MongoRepo) UpdateRoutine(ctx context.Context, r *workout.Routine, replaceLinks bool) error {
	r.UpdatedAt = time.Now().UTC()
	set := bson.M{"name": r.Name, "description": r.Description, "duration": r.Duration, "date": r.Date, "updatedAt": r.UpdatedAt}
	if replaceLinks {
		set["workoutIds"] = sortIDs(dedupe(r.WorkoutIDs))
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated workout.Routine
	err := m.routines.FindOneAndUpdate(ctx, bson.M{"_id": r.ID, "userId": r.UserID}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return err
	}
	r.CreatedAt = updated.CreatedAt
	r.WorkoutIDs = sortIDs(updated.WorkoutIDs)
	return nil
}

func (m *MongoRepo) DeleteRoutine(ctx context.Context, userID, id int64) error {
	res, err := m.routines.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) LinkWorkout(ctx context.Context, routineID, workoutID int64) error {
	n, err := m.workouts.CountDocuments(ctx, bson.M{"_id": workoutID})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	res, err := m.routines.UpdateOne(ctx, bson.M{"_id": routineID}, bson.M{"$addToSet": bson.M{"workoutIds": workoutID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) UnlinkWorkout(ctx context.Context, routineID, workoutID int64) error {
	_, err := m.routines.UpdateOne(ctx, bson.M{"_id": routineID}, bson.M{"$pull": bson.M{"workoutIds": workoutID}})
	return err
}
