package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"

	"github.com/everlift-app/everlift/pkg/domain/interfaces"
	"github.com/everlift-app/everlift/pkg/domain/model"
	"github.com/everlift-app/everlift/pkg/domain/types"
)

const (
	transcriptCollection = "transcripts"
	messagesCollection   = "messages"
)

type transcriptRepository struct {
	client *firestore.Client
}

var _ interfaces.TranscriptRepository = &transcriptRepository{}

type messageDoc struct {
	ID         string    `firestore:"id"`
	Role       string    `firestore:"role"`
	Kind       string    `firestore:"kind"`
	Text       string    `firestore:"text"`
	PlanID     string    `firestore:"plan_id"`
	TS         time.Time `firestore:"ts"`
	BackendKey string    `firestore:"backend_key"`
}

func (r *transcriptRepository) collection(scope model.Scope) *firestore.CollectionRef {
	return userDoc(r.client, scope.UserID).
		Collection(transcriptCollection).Doc(scopeDocID(scope)).
		Collection(messagesCollection)
}

func (r *transcriptRepository) List(ctx context.Context, scope model.Scope) ([]model.Message, error) {
	docs := r.collection(scope).OrderBy("ts", firestore.Asc).Documents(ctx)
	defer docs.Stop()

	var messages []model.Message
	for {
		doc, err := docs.Next()
		if err != nil {
			if isIteratorDone(err) {
				break
			}
			return nil, goerr.Wrap(err, "failed to iterate transcript", goerr.V("scope", scope.Key()))
		}
		var md messageDoc
		if err := doc.DataTo(&md); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal message", goerr.V("doc_id", doc.Ref.ID))
		}
		messages = append(messages, md.toModel())
	}
	return messages, nil
}

func (r *transcriptRepository) Append(ctx context.Context, scope model.Scope, msg model.Message) error {
	return r.Upsert(ctx, scope, msg)
}

func (r *transcriptRepository) Upsert(ctx context.Context, scope model.Scope, msg model.Message) error {
	ref := r.collection(scope).Doc(msg.ID.String())
	if _, err := ref.Set(ctx, toMessageDoc(msg)); err != nil {
		return goerr.Wrap(err, "failed to save message",
			goerr.V("scope", scope.Key()),
			goerr.V("message_id", msg.ID))
	}
	return nil
}

func (r *transcriptRepository) Remove(ctx context.Context, scope model.Scope, id types.MessageID) error {
	if _, err := r.collection(scope).Doc(id.String()).Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete message",
			goerr.V("scope", scope.Key()),
			goerr.V("message_id", id))
	}
	return nil
}

func (r *transcriptRepository) Clear(ctx context.Context, scope model.Scope) error {
	return deleteAll(ctx, r.collection(scope).Documents(ctx))
}

func (r *transcriptRepository) clearUser(ctx context.Context, userID types.UserID) error {
	transcripts := userDoc(r.client, userID).Collection(transcriptCollection).DocumentRefs(ctx)
	for {
		ref, err := transcripts.Next()
		if err != nil {
			if isIteratorDone(err) {
				return nil
			}
			return goerr.Wrap(err, "failed to iterate transcripts", goerr.V("user_id", userID))
		}
		if err := deleteAll(ctx, ref.Collection(messagesCollection).Documents(ctx)); err != nil {
			return err
		}
		if _, err := ref.Delete(ctx); err != nil {
			return goerr.Wrap(err, "failed to delete transcript doc", goerr.V("doc_id", ref.ID))
		}
	}
}

func toMessageDoc(m model.Message) messageDoc {
	return messageDoc{
		ID:         m.ID.String(),
		Role:       m.Role.String(),
		Kind:       m.Kind.String(),
		Text:       m.Text,
		PlanID:     m.PlanID.String(),
		TS:         m.TS,
		BackendKey: m.BackendKey,
	}
}

func (md messageDoc) toModel() model.Message {
	return model.Message{
		ID:         types.MessageID(md.ID),
		Role:       types.Role(md.Role),
		Kind:       types.MessageKind(md.Kind),
		Text:       md.Text,
		PlanID:     types.PlanID(md.PlanID),
		TS:         md.TS,
		BackendKey: md.BackendKey,
	}
}
