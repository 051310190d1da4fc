package mongostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"nexa-dashboard/internal/storage"
)

type collection struct {
	coll *mongo.Collection
	name string
}

func (c *collection) check() error {
	if !storage.KnownCollection(c.name) {
		return fmt.Errorf("%w: %s", storage.ErrUnknownCollection, c.name)
	}
	return nil
}

func (c *collection) FindOne(ctx context.Context, filter storage.Filter) (storage.Document, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	query, err := toFilter(filter)
	if err != nil {
		return nil, err
	}

	var out bson.M
	if err := c.coll.FindOne(ctx, query).Decode(&out); err != nil {
		return nil, mapError(c.name, err)
	}
	return toDocument(out)
}

func (c *collection) Find(ctx context.Context, filter storage.Filter) ([]storage.Document, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	query, err := toFilter(filter)
	if err != nil {
		return nil, err
	}

	cursor, err := c.coll.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var results []bson.M
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}

	docs := make([]storage.Document, 0, len(results))
	for _, result := range results {
		doc, err := toDocument(result)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (c *collection) Insert(ctx context.Context, doc any) (string, error) {
	if err := c.check(); err != nil {
		return "", err
	}
	value, err := toInsert(doc)
	if err != nil {
		return "", err
	}

	result, err := c.coll.InsertOne(ctx, value)
	if err != nil {
		return "", mapError(c.name, err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		return id.Hex(), nil
	}
	return fmt.Sprint(result.InsertedID), nil
}

func (c *collection) FindOneAndSet(ctx context.Context, filter storage.Filter, update storage.Update, upsert bool) (storage.Document, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	query, err := toFilter(filter)
	if err != nil {
		return nil, err
	}
	change, err := toUpdate(update)
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(upsert).
		SetReturnDocument(options.After)
	var out bson.M
	if err := c.coll.FindOneAndUpdate(ctx, query, change, opts).Decode(&out); err != nil {
		return nil, mapError(c.name, err)
	}
	return toDocument(out)
}

func (c *collection) UpdateByID(ctx context.Context, id string, update storage.Update) error {
	if err := c.check(); err != nil {
		return err
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %q", storage.ErrInvalidID, id)
	}
	change, err := toUpdate(update)
	if err != nil {
		return err
	}

	result, err := c.coll.UpdateOne(ctx, bson.M{"_id": objectID}, change)
	if err != nil {
		return mapError(c.name, err)
	}
	if result.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (c *collection) DeleteByID(ctx context.Context, id string) error {
	if err := c.check(); err != nil {
		return err
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %q", storage.ErrInvalidID, id)
	}

	result, err := c.coll.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return mapError(c.name, err)
	}
	if result.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (c *collection) DeleteMany(ctx context.Context, filter storage.Filter) (int64, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	query, err := toFilter(filter)
	if err != nil {
		return 0, err
	}

	result, err := c.coll.DeleteMany(ctx, query)
	if err != nil {
		return 0, mapError(c.name, err)
	}
	return result.DeletedCount, nil
}

func mapError(name string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return storage.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %s: %v", storage.ErrDuplicateKey, name, err)
	default:
		return err
	}
}

func toFilter(filter storage.Filter) (bson.M, error) {
	query := bson.M{}
	for key, value := range filter {
		if !storage.ValidKey(key) {
			return nil, fmt.Errorf("%w: %q", storage.ErrInvalidKey, key)
		}
		if key == "_id" {
			id, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %v", storage.ErrInvalidID, value)
			}
			objectID, err := primitive.ObjectIDFromHex(id)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", storage.ErrInvalidID, id)
			}
			query[key] = objectID
			continue
		}
		if bounds, ok := value.(storage.Range); ok {
			cond := bson.M{}
			if bounds.Gte != nil {
				cond["$gte"] = bounds.Gte
			}
			if bounds.Lt != nil {
				cond["$lt"] = bounds.Lt
			}
			if len(cond) > 0 {
				query[key] = cond
			}
			continue
		}
		query[key] = value
	}
	return query, nil
}

func toUpdate(update storage.Update) (bson.M, error) {
	change := bson.M{}
	if len(update.Set) > 0 {
		set, err := toOperator(update.Set)
		if err != nil {
			return nil, err
		}
		change["$set"] = set
	}
	if len(update.SetOnInsert) > 0 {
		setOnInsert, err := toOperator(update.SetOnInsert)
		if err != nil {
			return nil, err
		}
		change["$setOnInsert"] = setOnInsert
	}
	if len(update.Unset) > 0 {
		unset := bson.M{}
		for _, key := range update.Unset {
			if !storage.ValidKey(key) || key == "_id" {
				return nil, fmt.Errorf("%w: %q", storage.ErrInvalidKey, key)
			}
			unset[key] = ""
		}
		change["$unset"] = unset
	}
	if len(change) == 0 {
		return nil, errors.New("empty update")
	}
	return change, nil
}

func toOperator(values map[string]any) (bson.M, error) {
	out := bson.M{}
	for key, value := range values {
		if !storage.ValidKey(key) || key == "_id" {
			return nil, fmt.Errorf("%w: %q", storage.ErrInvalidKey, key)
		}
		out[key] = value
	}
	return out, nil
}

// toInsert turns a string "_id" on map documents into an ObjectID.
func toInsert(doc any) (any, error) {
	m, ok := doc.(map[string]any)
	if !ok {
		return doc, nil
	}
	raw, ok := m["_id"].(string)
	if !ok {
		return doc, nil
	}
	objectID, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", storage.ErrInvalidID, raw)
	}
	out := make(bson.M, len(m))
	for key, value := range m {
		out[key] = value
	}
	out["_id"] = objectID
	return out, nil
}

func toDocument(m bson.M) (storage.Document, error) {
	data, err := json.Marshal(fromBSON(m))
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return storage.Document(data), nil
}

func fromBSON(value any) any {
	switch v := value.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case primitive.DateTime:
		return v.Time().UTC()
	case bson.M:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = fromBSON(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = fromBSON(item)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(v))
		for _, item := range v {
			out[item.Key] = fromBSON(item.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = fromBSON(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = fromBSON(item)
		}
		return out
	default:
		return v
	}
}
