package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/formvn/formbot/forms"
)

const formsCollection = "forms"

// FormsRepo persists form schemas keyed by form_id.
type FormsRepo struct {
	col *mongo.Collection
}

// Upsert writes the schema, replacing any previous version with the same
// form_id. Reprocessing the same document therefore converges on one record.
func (r *FormsRepo) Upsert(ctx context.Context, schema *forms.FormSchema) error {
	_, err := r.col.ReplaceOne(ctx,
		bson.M{"form_id": schema.FormID},
		schema,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert form %s: %w", schema.FormID, wrapMongoErr(err))
	}
	return nil
}

// Get returns the schema for formID, or ErrNotFound.
func (r *FormsRepo) Get(ctx context.Context, formID string) (*forms.FormSchema, error) {
	var schema forms.FormSchema
	err := r.col.FindOne(ctx, bson.M{"form_id": formID}).Decode(&schema)
	if err != nil {
		return nil, wrapMongoErr(err)
	}
	return &schema, nil
}

// List returns summaries of all known forms, newest first.
func (r *FormsRepo) List(ctx context.Context) ([]forms.FormSchema, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}
	defer cur.Close(ctx)

	var schemas []forms.FormSchema
	if err := cur.All(ctx, &schemas); err != nil {
		return nil, fmt.Errorf("failed to decode forms: %w", err)
	}
	return schemas, nil
}
