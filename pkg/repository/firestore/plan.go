package firestore

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"

	"github.com/everlift-app/everlift/pkg/domain/interfaces"
	"github.com/everlift-app/everlift/pkg/domain/model"
	"github.com/everlift-app/everlift/pkg/domain/types"
)

const planCollection = "plans"

type planRepository struct {
	client *firestore.Client
}

var _ interfaces.PlanRepository = &planRepository{}

type resourceDoc struct {
	Title string `firestore:"title"`
	URL   string `firestore:"url"`
	Type  string `firestore:"type"`
}

type planStepDoc struct {
	ID        string        `firestore:"id"`
	Label     string        `firestore:"label"`
	Resources []resourceDoc `firestore:"resources"`
}

type milestoneDoc struct {
	Name   string `firestore:"name"`
	Status string `firestore:"status"`
}

type planDoc struct {
	ID         string         `firestore:"id"`
	Title      string         `firestore:"title"`
	Goal       string         `firestore:"goal"`
	Focus      string         `firestore:"focus"`
	NeedKey    string         `firestore:"need_key"`
	NeedLabel  string         `firestore:"need_label"`
	Steps      []planStepDoc  `firestore:"steps"`
	Milestones []milestoneDoc `firestore:"milestones"`
	CreatedAt  time.Time      `firestore:"created_at"`
	AcceptedAt *time.Time     `firestore:"accepted_at"`
}

func (r *planRepository) collection(userID types.UserID) *firestore.CollectionRef {
	return userDoc(r.client, userID).Collection(planCollection)
}

func (r *planRepository) List(ctx context.Context, userID types.UserID) ([]*model.Plan, error) {
	docs := r.collection(userID).Documents(ctx)
	defer docs.Stop()

	var plans []*model.Plan
	for {
		doc, err := docs.Next()
		if err != nil {
			if isIteratorDone(err) {
				break
			}
			return nil, goerr.Wrap(err, "failed to iterate plans", goerr.V("user_id", userID))
		}
		var pd planDoc
		if err := doc.DataTo(&pd); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal plan", goerr.V("doc_id", doc.Ref.ID))
		}
		plans = append(plans, pd.toModel())
	}

	// Most-recent-first by acceptance, then creation.
	sort.SliceStable(plans, func(i, j int) bool {
		return planSortKey(plans[i]).After(planSortKey(plans[j]))
	})
	return plans, nil
}

func (r *planRepository) Put(ctx context.Context, userID types.UserID, plan *model.Plan) error {
	if plan == nil {
		return goerr.New("plan is nil")
	}
	ref := r.collection(userID).Doc(plan.ID.String())
	if _, err := ref.Set(ctx, toPlanDoc(plan)); err != nil {
		return goerr.Wrap(err, "failed to save plan",
			goerr.V("user_id", userID),
			goerr.V("plan_id", plan.ID))
	}
	return nil
}

func (r *planRepository) Replace(ctx context.Context, userID types.UserID, plans []*model.Plan) error {
	if err := r.clearUser(ctx, userID); err != nil {
		return err
	}
	for _, p := range plans {
		if err := r.Put(ctx, userID, p); err != nil {
			return err
		}
	}
	return nil
}

func (r *planRepository) Delete(ctx context.Context, userID types.UserID, planID types.PlanID) error {
	if _, err := r.collection(userID).Doc(planID.String()).Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete plan",
			goerr.V("user_id", userID),
			goerr.V("plan_id", planID))
	}
	return nil
}

func (r *planRepository) clearUser(ctx context.Context, userID types.UserID) error {
	return deleteAll(ctx, r.collection(userID).Documents(ctx))
}

func planSortKey(p *model.Plan) time.Time {
	if p.AcceptedAt != nil {
		return *p.AcceptedAt
	}
	return p.CreatedAt
}

func toPlanDoc(p *model.Plan) planDoc {
	doc := planDoc{
		ID:         p.ID.String(),
		Title:      p.Title,
		Goal:       p.Goal,
		Focus:      p.Focus,
		NeedKey:    p.NeedKey.String(),
		NeedLabel:  p.NeedLabel,
		CreatedAt:  p.CreatedAt,
		AcceptedAt: p.AcceptedAt,
	}
	for _, s := range p.Steps {
		sd := planStepDoc{ID: s.ID, Label: s.Label}
		for _, res := range s.Resources {
			sd.Resources = append(sd.Resources, resourceDoc{Title: res.Title, URL: res.URL, Type: res.Type})
		}
		doc.Steps = append(doc.Steps, sd)
	}
	for _, m := range p.Milestones {
		doc.Milestones = append(doc.Milestones, milestoneDoc{Name: m.Name, Status: m.Status})
	}
	return doc
}

func (pd planDoc) toModel() *model.Plan {
	p := &model.Plan{
		ID:         types.PlanID(pd.ID),
		Title:      pd.Title,
		Goal:       pd.Goal,
		Focus:      pd.Focus,
		NeedKey:    types.NeedKey(pd.NeedKey),
		NeedLabel:  pd.NeedLabel,
		CreatedAt:  pd.CreatedAt,
		AcceptedAt: pd.AcceptedAt,
	}
	for _, sd := range pd.Steps {
		step := model.PlanStep{ID: sd.ID, Label: sd.Label}
		for _, rd := range sd.Resources {
			step.Resources = append(step.Resources, model.Resource{Title: rd.Title, URL: rd.URL, Type: rd.Type})
		}
		p.Steps = append(p.Steps, step)
	}
	for _, md := range pd.Milestones {
		p.Milestones = append(p.Milestones, model.Milestone{Name: md.Name, Status: md.Status})
	}
	return p
}
