package healthcheck

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names of the document store layout.
const (
	campaignsCollection = "health_check_schedules"
	resultsCollection   = "health_check_records"
	syncLogsCollection  = "sync_logs"
)

// EnsureMongoIndexes creates the unique and lookup indexes the document
// repositories rely on.
func EnsureMongoIndexes(ctx context.Context, database *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		campaignsCollection: {
			{Keys: bson.D{{Key: "campaign_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "appointments.scheduled_date", Value: 1}}},
		},
		resultsCollection: {
			{Keys: bson.D{{Key: "his_record_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "campaign_id", Value: 1}, {Key: "check_date", Value: -1}}},
		},
		syncLogsCollection: {
			{Keys: bson.D{{Key: "log_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "campaign_id", Value: 1}, {Key: "initiated_at", Value: -1}}},
		},
	}
	for coll, models := range specs {
		if _, err := database.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}

// -- Campaigns --

// campaignRepoMongo embeds appointments inside the campaign document, so a
// single replace updates the list and its counters atomically.
type campaignRepoMongo struct {
	coll *mongo.Collection
}

func NewCampaignMongoRepo(database *mongo.Database) CampaignRepository {
	return &campaignRepoMongo{coll: database.Collection(campaignsCollection)}
}

func (r *campaignRepoMongo) Create(ctx context.Context, c *Campaign) error {
	c.Version = 1
	if c.Appointments == nil {
		c.Appointments = []Appointment{}
	}
	if _, err := r.coll.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateCampaign
		}
		return err
	}
	return nil
}

func (r *campaignRepoMongo) Get(ctx context.Context, campaignID string) (*Campaign, error) {
	var c Campaign
	err := r.coll.FindOne(ctx, bson.M{"campaign_id": campaignID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *campaignRepoMongo) Save(ctx context.Context, c *Campaign) error {
	expected := c.Version
	next := *c
	next.Version = expected + 1
	res, err := r.coll.ReplaceOne(ctx, bson.M{"campaign_id": c.CampaignID, "version": expected}, &next)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := r.coll.CountDocuments(ctx, bson.M{"campaign_id": c.CampaignID})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}
	c.Version = next.Version
	return nil
}

func (r *campaignRepoMongo) ListSummaries(ctx context.Context) ([]*CampaignSummary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "campaign_id", Value: -1}}).
		SetProjection(bson.M{"appointments": 0})
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var out []*CampaignSummary
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *campaignRepoMongo) ListAppointmentsBetween(ctx context.Context, from, to time.Time, campaignID string) ([]*ScheduledAppointment, error) {
	filter := bson.M{"appointments": bson.M{"$elemMatch": bson.M{
		"scheduled_date": bson.M{"$gte": from, "$lt": to},
	}}}
	if campaignID != "" {
		filter["campaign_id"] = campaignID
	}
	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var campaigns []*Campaign
	if err := cur.All(ctx, &campaigns); err != nil {
		return nil, err
	}

	var out []*ScheduledAppointment
	for _, c := range campaigns {
		out = append(out, appointmentsBetween(c, from, to)...)
	}
	sortSchedule(out)
	return out, nil
}

// -- Results --

type resultRepoMongo struct {
	coll *mongo.Collection
}

func NewResultMongoRepo(database *mongo.Database) ResultRepository {
	return &resultRepoMongo{coll: database.Collection(resultsCollection)}
}

// resultSummaryProjection limits reads to the HR-visible fields.
var resultSummaryProjection = bson.M{
	"_id":               0,
	"his_record_id":     1,
	"campaign_id":       1,
	"appointment_id":    1,
	"employee_id":       1,
	"employee_name":     1,
	"check_date":        1,
	"health_status":     1,
	"restrictions":      1,
	"doctor_conclusion": 1,
}

func (r *resultRepoMongo) Create(ctx context.Context, res *Result) error {
	_, err := r.coll.InsertOne(ctx, res)
	return err
}

func (r *resultRepoMongo) ListSummaries(ctx context.Context, campaignID, employeeID string) ([]*ResultSummary, error) {
	filter := bson.M{"campaign_id": campaignID}
	if employeeID != "" {
		filter["employee_id"] = employeeID
	}
	opts := options.Find().
		SetProjection(resultSummaryProjection).
		SetSort(bson.D{{Key: "check_date", Value: -1}, {Key: "created_at", Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var out []*ResultSummary
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *resultRepoMongo) CountByHealthStatus(ctx context.Context, campaignID string) (map[HealthStatus]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "campaign_id", Value: campaignID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$health_status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var groups []struct {
		Status string `bson:"_id"`
		Count  int    `bson:"count"`
	}
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	counts := make(map[HealthStatus]int, len(groups))
	for _, g := range groups {
		counts[HealthStatus(g.Status)] = g.Count
	}
	return counts, nil
}

// -- Sync logs --

type syncLogRepoMongo struct {
	coll *mongo.Collection
}

func NewSyncLogMongoRepo(database *mongo.Database) SyncLogRepository {
	return &syncLogRepoMongo{coll: database.Collection(syncLogsCollection)}
}

func (r *syncLogRepoMongo) Create(ctx context.Context, e *SyncLogEntry) error {
	_, err := r.coll.InsertOne(ctx, e)
	return err
}

func (r *syncLogRepoMongo) Finish(ctx context.Context, e *SyncLogEntry) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"log_id": e.ID, "completed_at": nil},
		bson.M{"$set": bson.M{
			"status":           e.Status,
			"records_count":    e.RecordsCount,
			"successful_count": e.SuccessfulCount,
			"failed_count":     e.FailedCount,
			"message":          e.Message,
			"error_message":    e.ErrorMessage,
			"details":          e.Details,
			"completed_at":     e.CompletedAt,
			"duration_ms":      e.DurationMS,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := r.coll.CountDocuments(ctx, bson.M{"log_id": e.ID})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrLedgerClosed
	}
	return nil
}

func (r *syncLogRepoMongo) List(ctx context.Context, f LedgerFilter, limit, offset int) ([]*SyncLogEntry, int, error) {
	filter := bson.M{}
	if f.CampaignID != "" {
		filter["campaign_id"] = f.CampaignID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.SyncType != "" {
		filter["sync_type"] = f.SyncType
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "initiated_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	var out []*SyncLogEntry
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, int(total), nil
}
