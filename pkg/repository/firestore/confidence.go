package firestore

import (
	"context"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/everlift-app/everlift/pkg/domain/interfaces"
	"github.com/everlift-app/everlift/pkg/domain/model"
	"github.com/everlift-app/everlift/pkg/domain/types"
)

const confidenceCollection = "confidence"

type confidenceRepository struct {
	client *firestore.Client
}

var _ interfaces.ConfidenceRepository = &confidenceRepository{}

type confidenceEntryDoc struct {
	Date  string  `firestore:"date"`
	Level float64 `firestore:"level"`
}

type confidenceDoc struct {
	Baseline      *float64             `firestore:"baseline"`
	LastCheckDate string               `firestore:"last_check_date"`
	History       []confidenceEntryDoc `firestore:"history"`
}

// scopeDocID flattens (focus, need) into one document id segment.
func scopeDocID(scope model.Scope) string {
	return strings.Join([]string{model.Slugify(scope.Focus), scope.Need.Slug()}, "__")
}

func (r *confidenceRepository) doc(scope model.Scope) *firestore.DocumentRef {
	return userDoc(r.client, scope.UserID).Collection(confidenceCollection).Doc(scopeDocID(scope))
}

func (r *confidenceRepository) Get(ctx context.Context, scope model.Scope) (*model.ConfidenceRecord, error) {
	snap, err := r.doc(scope).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get confidence record", goerr.V("scope", scope.Key()))
	}

	var doc confidenceDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal confidence record", goerr.V("scope", scope.Key()))
	}

	record := &model.ConfidenceRecord{
		Baseline:      doc.Baseline,
		LastCheckDate: doc.LastCheckDate,
	}
	for _, e := range doc.History {
		record.History = append(record.History, model.ConfidenceEntry{Date: e.Date, Level: e.Level})
	}
	return record, nil
}

func (r *confidenceRepository) Put(ctx context.Context, scope model.Scope, record *model.ConfidenceRecord) error {
	if record == nil {
		return goerr.New("confidence record is nil")
	}

	doc := confidenceDoc{
		Baseline:      record.Baseline,
		LastCheckDate: record.LastCheckDate,
	}
	for _, e := range record.History {
		doc.History = append(doc.History, confidenceEntryDoc{Date: e.Date, Level: e.Level})
	}

	if _, err := r.doc(scope).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to save confidence record", goerr.V("scope", scope.Key()))
	}
	return nil
}

func (r *confidenceRepository) clearUser(ctx context.Context, userID types.UserID) error {
	docs := userDoc(r.client, userID).Collection(confidenceCollection).Documents(ctx)
	return deleteAll(ctx, docs)
}

func isIteratorDone(err error) bool {
	return err == iterator.Done
}
