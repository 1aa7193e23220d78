package gallery

import (
	"context"
	"errors"
	"time"

	"github.com/emojiforge/emojiforge/backend/go-services/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type emojiDocument struct {
	ID            string    `bson:"_id"`
	ImageURL      string    `bson:"imageUrl"`
	ObjectKey     string    `bson:"objectKey"`
	Prompt        string    `bson:"prompt"`
	CreatorUserID string    `bson:"creatorUserId"`
	LikedBy       []string  `bson:"likedBy"`
	LikesCount    int       `bson:"likesCount"`
	CreatedAt     time.Time `bson:"createdAt"`
}

func toDocument(e *models.Emoji) emojiDocument {
	return emojiDocument{
		ID:            e.ID.String(),
		ImageURL:      e.ImageURL,
		ObjectKey:     e.ObjectKey,
		Prompt:        e.Prompt,
		CreatorUserID: e.CreatorUserID.String(),
		LikedBy:       []string{},
		LikesCount:    e.LikesCount,
		CreatedAt:     e.CreatedAt,
	}
}

func (d emojiDocument) toModel(viewer uuid.UUID) (models.Emoji, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return models.Emoji{}, err
	}
	creator, err := uuid.Parse(d.CreatorUserID)
	if err != nil {
		return models.Emoji{}, err
	}
	e := models.Emoji{
		ID:            id,
		ImageURL:      d.ImageURL,
		ObjectKey:     d.ObjectKey,
		Prompt:        d.Prompt,
		CreatorUserID: creator,
		LikesCount:    d.LikesCount,
		CreatedAt:     d.CreatedAt,
	}
	if viewer != uuid.Nil {
		v := viewer.String()
		for _, u := range d.LikedBy {
			if u == v {
				e.Liked = true
				break
			}
		}
	}
	return e, nil
}

// MongoRepository stores emojis as documents with an embedded likedBy set.
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

// EnsureIndexes creates the listing indexes; safe to call repeatedly.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "creatorUserId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "likedBy", Value: 1}}},
	})
	return err
}

func (r *MongoRepository) Create(ctx context.Context, e *models.Emoji) error {
	_, err := r.col.InsertOne(ctx, toDocument(e))
	return err
}

func (r *MongoRepository) Get(ctx context.Context, id, viewer uuid.UUID) (*models.Emoji, error) {
	var d emojiDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrEmojiNotFound
		}
		return nil, err
	}
	e, err := d.toModel(viewer)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func listFilter(q ListQuery) bson.M {
	filter := bson.M{}
	if q.LikedOnly {
		filter["likedBy"] = q.Viewer.String()
	}
	if q.CreatorID != nil {
		filter["creatorUserId"] = q.CreatorID.String()
	}
	return filter
}

func (r *MongoRepository) List(ctx context.Context, q ListQuery) ([]models.Emoji, error) {
	dir := -1
	if q.Sort == SortOldest {
		dir = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: dir}, {Key: "_id", Value: 1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cur, err := r.col.Find(ctx, listFilter(q), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []emojiDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Emoji, 0, len(docs))
	for _, d := range docs {
		e, err := d.toModel(q.Viewer)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// likeUpdate adds or removes userID from likedBy and recomputes likesCount
// in one server-side pipeline update.
func likeUpdate(userID string, like bool) mongo.Pipeline {
	op := "$setDifference"
	if like {
		op = "$setUnion"
	}
	current := bson.D{{Key: "$ifNull", Value: bson.A{"$likedBy", bson.A{}}}}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "likedBy", Value: bson.D{{Key: op, Value: bson.A{current, bson.A{userID}}}}}}}},
		{{Key: "$set", Value: bson.D{{Key: "likesCount", Value: bson.D{{Key: "$size", Value: "$likedBy"}}}}}},
	}
}

func (r *MongoRepository) SetLike(ctx context.Context, emojiID, userID uuid.UUID, like bool, now time.Time) (*models.Emoji, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d emojiDocument
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": emojiID.String()}, likeUpdate(userID.String(), like), opts).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrEmojiNotFound
		}
		return nil, err
	}
	e, err := d.toModel(userID)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
