package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/iramuteqtagger/internal/models"
)

// RunStore records tagging runs in a Firestore collection, one document per
// run keyed by run ID.
type RunStore struct {
	client     *firestore.Client
	collection string
}

// NewRunStore opens a Firestore client for projectID.
func NewRunStore(ctx context.Context, projectID, collection string) (*RunStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return &RunStore{client: client, collection: collection}, nil
}

// Create writes the initial record of a run.
func (s *RunStore) Create(ctx context.Context, runID string, run models.Run) error {
	if _, err := s.client.Collection(s.collection).Doc(runID).Set(ctx, run); err != nil {
		return fmt.Errorf("failed to create run record: %w", err)
	}
	return nil
}

// Update applies field updates to a run record.
func (s *RunStore) Update(ctx context.Context, runID string, updates ...firestore.Update) error {
	if _, err := s.client.Collection(s.collection).Doc(runID).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to update run record: %w", err)
	}
	return nil
}

// SetStatus moves a run to status, recording errDetails when non-empty.
func (s *RunStore) SetStatus(ctx context.Context, runID, status, errDetails string) error {
	updates := []firestore.Update{{Path: "status", Value: status}}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	return s.Update(ctx, runID, updates...)
}

func (s *RunStore) Close() error {
	return s.client.Close()
}
