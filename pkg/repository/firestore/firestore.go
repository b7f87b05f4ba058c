package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"

	"github.com/everlift-app/everlift/pkg/domain/interfaces"
	"github.com/everlift-app/everlift/pkg/domain/types"
)

// Firestore is the durable tier backed by Cloud Firestore. Layout:
//
//	users/{user}/confidence/{focus__need}    one doc per scope
//	users/{user}/plans/{plan_id}             one doc per accepted plan
//	users/{user}/transcripts/{focus__need}/messages/{msg_id}
type Firestore struct {
	client     *firestore.Client
	confidence *confidenceRepository
	plans      *planRepository
	transcript *transcriptRepository
}

var _ interfaces.Repository = &Firestore{}

func New(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	var client *firestore.Client
	var err error
	if databaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID))
	}

	return &Firestore{
		client:     client,
		confidence: &confidenceRepository{client: client},
		plans:      &planRepository{client: client},
		transcript: &transcriptRepository{client: client},
	}, nil
}

func (f *Firestore) Confidence() interfaces.ConfidenceRepository {
	return f.confidence
}

func (f *Firestore) Plans() interfaces.PlanRepository {
	return f.plans
}

func (f *Firestore) Transcript() interfaces.TranscriptRepository {
	return f.transcript
}

// ClearUser removes every stored document under the user across confidence,
// plans and transcripts.
func (f *Firestore) ClearUser(ctx context.Context, userID types.UserID) error {
	if err := f.confidence.clearUser(ctx, userID); err != nil {
		return goerr.Wrap(err, "failed to clear confidence records", goerr.V("user_id", userID))
	}
	if err := f.plans.clearUser(ctx, userID); err != nil {
		return goerr.Wrap(err, "failed to clear plans", goerr.V("user_id", userID))
	}
	if err := f.transcript.clearUser(ctx, userID); err != nil {
		return goerr.Wrap(err, "failed to clear transcripts", goerr.V("user_id", userID))
	}
	return nil
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

func userDoc(client *firestore.Client, userID types.UserID) *firestore.DocumentRef {
	return client.Collection("users").Doc(userID.String())
}

// deleteAll drains a document iterator, deleting every document.
func deleteAll(ctx context.Context, docs *firestore.DocumentIterator) error {
	defer docs.Stop()
	for {
		doc, err := docs.Next()
		if err != nil {
			if isIteratorDone(err) {
				return nil
			}
			return goerr.Wrap(err, "failed to iterate documents for deletion")
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			return goerr.Wrap(err, "failed to delete document", goerr.V("doc_id", doc.Ref.ID))
		}
	}
}
