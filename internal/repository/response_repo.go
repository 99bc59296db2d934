package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ShashankAtmakur/survey-management-system/internal/model"
)

// ResponseRepo handles persistence of response records. Listings are in
// submission order.
type ResponseRepo interface {
	Create(ctx context.Context, record *model.ResponseRecord) error
	GetByID(ctx context.Context, surveyID, id string) (*model.ResponseRecord, error)
	ListBySurvey(ctx context.Context, surveyID string, skip, limit int64) ([]*model.ResponseRecord, error)
	CountBySurvey(ctx context.Context, surveyID string) (int64, error)
	Delete(ctx context.Context, surveyID, id string) error
	// CountAnswers returns the number of records holding an answer under text.
	CountAnswers(ctx context.Context, surveyID, text string) (int64, error)
	// RenameAnswerKey moves stored answers from one question text to another
	// and returns the number of records changed. Records that already hold an
	// answer under to are left unchanged.
	RenameAnswerKey(ctx context.Context, surveyID, from, to string) (int64, error)
}

// Question texts may contain dots and dollar signs, so answers are stored as
// an array rather than a document keyed by text.
type responseDoc struct {
	ID           string      `bson:"_id"`
	SurveyID     string      `bson:"surveyId"`
	Answers      []answerDoc `bson:"answers"`
	RespondentIP string      `bson:"respondentIp,omitempty"`
	SubmittedAt  time.Time   `bson:"submittedAt"`
}

type answerDoc struct {
	Question string `bson:"question"`
	Value    string `bson:"value"`
	AudioKey string `bson:"audioKey,omitempty"`
}

func toResponseDoc(r *model.ResponseRecord) responseDoc {
	doc := responseDoc{
		ID:           r.ID,
		SurveyID:     r.SurveyID,
		Answers:      make([]answerDoc, 0, len(r.Responses)),
		RespondentIP: r.RespondentIP,
		SubmittedAt:  r.SubmittedAt,
	}
	for text, v := range r.Responses {
		doc.Answers = append(doc.Answers, answerDoc{Question: text, Value: v.String(), AudioKey: r.AudioData[text]})
	}
	sort.Slice(doc.Answers, func(i, j int) bool { return doc.Answers[i].Question < doc.Answers[j].Question })
	return doc
}

func (d responseDoc) record() *model.ResponseRecord {
	r := &model.ResponseRecord{
		ID:           d.ID,
		SurveyID:     d.SurveyID,
		Responses:    make(model.Answers, len(d.Answers)),
		RespondentIP: d.RespondentIP,
		SubmittedAt:  d.SubmittedAt.UTC(),
	}
	for _, a := range d.Answers {
		r.Responses[a.Question] = model.AnswerValue(a.Value)
		if a.AudioKey != "" {
			if r.AudioData == nil {
				r.AudioData = make(map[string]string)
			}
			r.AudioData[a.Question] = a.AudioKey
		}
	}
	return r
}

type responseRepo struct {
	collection *mongo.Collection
}

// NewResponseRepo creates a new response repository
func NewResponseRepo(db *mongo.Database) ResponseRepo {
	return &responseRepo{
		collection: db.Collection("responses"),
	}
}

// EnsureResponseIndexes creates the survey listing index.
func EnsureResponseIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("responses").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "surveyId", Value: 1}, {Key: "submittedAt", Value: 1}},
	})
	return err
}

func (r *responseRepo) Create(ctx context.Context, record *model.ResponseRecord) error {
	if record.ID == "" {
		record.ID = primitive.NewObjectID().Hex()
	}
	if record.SubmittedAt.IsZero() {
		record.SubmittedAt = time.Now().UTC()
	}

	_, err := r.collection.InsertOne(ctx, toResponseDoc(record))
	return err
}

func (r *responseRepo) GetByID(ctx context.Context, surveyID, id string) (*model.ResponseRecord, error) {
	var doc responseDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "surveyId": surveyID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.record(), nil
}

func (r *responseRepo) ListBySurvey(ctx context.Context, surveyID string, skip, limit int64) ([]*model.ResponseRecord, error) {
	findOpts := options.Find().
		SetSort(bson.D{{Key: "submittedAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(skip)
	if limit > 0 {
		findOpts.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, bson.M{"surveyId": surveyID}, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []responseDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	records := make([]*model.ResponseRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.record())
	}
	return records, nil
}

func (r *responseRepo) CountBySurvey(ctx context.Context, surveyID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"surveyId": surveyID})
}

func (r *responseRepo) Delete(ctx context.Context, surveyID, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "surveyId": surveyID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *responseRepo) CountAnswers(ctx context.Context, surveyID, text string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"surveyId": surveyID, "answers.question": text})
}

func (r *responseRepo) RenameAnswerKey(ctx context.Context, surveyID, from, to string) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{
			"surveyId": surveyID,
			"$and": bson.A{
				bson.M{"answers.question": from},
				bson.M{"answers.question": bson.M{"$ne": to}},
			},
		},
		bson.M{"$set": bson.M{"answers.$[a].question": to}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"a.question": from}},
		}),
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
