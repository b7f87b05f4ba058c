package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"

	"github.com/everlift-app/everlift/pkg/domain/model"
	"github.com/everlift-app/everlift/pkg/domain/types"
	"github.com/everlift-app/everlift/pkg/service/coach"
	"github.com/everlift-app/everlift/pkg/service/needs"
	"github.com/everlift-app/everlift/pkg/usecase"
	"github.com/everlift-app/everlift/pkg/utils/errutil"
	"github.com/everlift-app/everlift/pkg/utils/safe"
)

// scopeRequest is the scope triple shared by most endpoints. Custom needs
// carry their user-typed label alongside the key.
type scopeRequest struct {
	UserID      string `json:"user_id"`
	Focus       string `json:"focus"`
	Need        string `json:"need"`
	CustomLabel string `json:"custom_label,omitempty"`
}

func (s *Server) resolveScope(req scopeRequest) (model.Scope, error) {
	if req.UserID == "" {
		return model.Scope{}, goerr.New("user_id is required")
	}
	key, err := types.ParseNeedKey(req.Need)
	if err != nil {
		return model.Scope{}, err
	}
	need, err := s.uc.Registry.Resolve(key, req.CustomLabel)
	if err != nil {
		return model.Scope{}, err
	}
	return model.Scope{
		UserID: types.UserID(req.UserID),
		Focus:  req.Focus,
		Need:   need,
	}, nil
}

func (s *Server) scopeFromQuery(r *http.Request) (model.Scope, error) {
	q := r.URL.Query()
	return s.resolveScope(scopeRequest{
		UserID:      q.Get("user_id"),
		Focus:       q.Get("focus"),
		Need:        q.Get("need"),
		CustomLabel: q.Get("custom_label"),
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data) //nolint:errcheck // header already committed
}

// turnResponse is the wire shape for one controller turn.
type turnResponse struct {
	Ignored  bool          `json:"ignored,omitempty"`
	Messages []messageWire `json:"messages"`
	Plan     *planWire     `json:"plan,omitempty"`
	Mode     string        `json:"mode"`
	UI       coach.UIHints `json:"ui"`
}

func toTurnResponse(res *usecase.TurnResult) turnResponse {
	return turnResponse{
		Ignored:  res.Ignored,
		Messages: toMessageWires(res.Messages),
		Plan:     toPlanWire(res.Plan),
		Mode:     res.Mode.String(),
		UI:       res.UI,
	}
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req scopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return
	}
	scope, err := s.resolveScope(req)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	snap, err := s.uc.Session.OpenSession(r.Context(), scope)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}
	summary, err := s.uc.Ledger.Summarize(r.Context(), scope)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, map[string]any{
		"state":      toUIStateWire(snap.UIState),
		"messages":   toMessageWires(snap.Transcript),
		"confidence": toConfidenceWire(summary),
		"plans":      toPlanWires(snap.AllPlans),
	})
}

type chatRequest struct {
	scopeRequest
	Message string         `json:"message"`
	Profile map[string]any `json:"profile,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return
	}
	// When the client sends no need, infer one from the message text so the
	// turn still lands in a usable scope.
	if req.Need == "" {
		req.Need = s.uc.Registry.Infer(req.Message, req.Focus).String()
	}
	scope, err := s.resolveScope(req.scopeRequest)
	if err != nil {
		if errors.Is(err, needs.ErrBlankCustomLabel) {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusUnprocessableEntity)
			return
		}
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	res, err := s.uc.Session.HandleMessage(r.Context(), scope, req.Message, req.Profile)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, toTurnResponse(res))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	scope, err := s.scopeFromQuery(r)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}
	snap, err := s.uc.Sync.Hydrate(r.Context(), scope)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, map[string]any{"messages": toMessageWires(snap.Transcript)})
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxVoiceSize); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid multipart body"), http.StatusBadRequest)
		return
	}
	scope, err := s.resolveScope(scopeRequest{
		UserID:      r.FormValue("user_id"),
		Focus:       r.FormValue("focus"),
		Need:        r.FormValue("need"),
		CustomLabel: r.FormValue("custom_label"),
	})
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "audio part is required"), http.StatusBadRequest)
		return
	}
	defer safe.Close(r.Context(), file)

	res, err := s.uc.Session.HandleVoice(r.Context(), scope, &coach.VoiceRequest{
		ProfileJSON: r.FormValue("profile_json"),
		Filename:    header.Filename,
		Audio:       file,
	})
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, toTurnResponse(res))
}

type dailyProgressRequest struct {
	scopeRequest
	MadeProgress bool           `json:"made_progress"`
	Profile      map[string]any `json:"profile,omitempty"`
}

func (s *Server) handleDailyProgress(w http.ResponseWriter, r *http.Request) {
	var req dailyProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return
	}
	scope, err := s.resolveScope(req.scopeRequest)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}
	res, err := s.uc.Session.HandleDailyProgress(r.Context(), scope, req.MadeProgress, req.Profile)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, toTurnResponse(res))
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		errutil.HandleHTTP(r.Context(), w, goerr.New("user_id is required"), http.StatusBadRequest)
		return
	}
	plans, err := s.uc.Sync.ListPlans(r.Context(), types.UserID(userID))
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, map[string]any{"plans": toPlanWires(plans)})
}

func (s *Server) handleAcceptPlan(w http.ResponseWriter, r *http.Request) {
	var req scopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		errutil.HandleHTTP(r.Context(), w, goerr.New("user_id is required"), http.StatusBadRequest)
		return
	}
	userID := types.UserID(req.UserID)
	planID := types.PlanID(chi.URLParam(r, "id"))

	p, err := s.uc.Sync.FindPlan(r.Context(), userID, req.Focus, planID)
	if err != nil {
		if errors.Is(err, usecase.ErrPlanNotFound) {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusNotFound)
			return
		}
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}
	if err := s.uc.Sync.AcceptPlan(r.Context(), userID, req.Focus, p); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, map[string]any{"plan": toPlanWire(p)})
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("user_id")
	if userID == "" {
		errutil.HandleHTTP(r.Context(), w, goerr.New("user_id is required"), http.StatusBadRequest)
		return
	}
	planID := types.PlanID(chi.URLParam(r, "id"))
	if err := s.uc.Sync.DeletePlan(r.Context(), types.UserID(userID), q.Get("focus"), planID); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListNeeds(w http.ResponseWriter, r *http.Request) {
	focus := r.URL.Query().Get("focus")
	defs := s.uc.Registry.ForFocus(focus)

	type needResponse struct {
		Key   string `json:"key"`
		Label string `json:"label"`
	}
	resp := make([]needResponse, 0, len(defs))
	for _, def := range defs {
		resp = append(resp, needResponse{Key: def.Key.String(), Label: def.Label})
	}
	writeJSON(w, r, map[string]any{"needs": resp})
}

// handleSwitchNeed retires the previously active need's scope: transient
// gates are cleared and its pending system prompts come out of the
// transcript. The body names the scope being left, not the one being opened.
func (s *Server) handleSwitchNeed(w http.ResponseWriter, r *http.Request) {
	var req scopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return
	}
	scope, err := s.resolveScope(req)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}
	if err := s.uc.Session.SwitchNeed(r.Context(), scope); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConfidence(w http.ResponseWriter, r *http.Request) {
	scope, err := s.scopeFromQuery(r)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}
	summary, err := s.uc.Ledger.Summarize(r.Context(), scope)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, toConfidenceWire(summary))
}

func (s *Server) handleClearChat(w http.ResponseWriter, r *http.Request) {
	var req scopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return
	}
	scope, err := s.resolveScope(req)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}
	if err := s.uc.Sync.ClearChat(r.Context(), scope); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type clearAllRequest struct {
	UserID  string `json:"user_id"`
	Confirm bool   `json:"confirm"`
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	var req clearAllRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		errutil.HandleHTTP(r.Context(), w, goerr.New("user_id is required"), http.StatusBadRequest)
		return
	}
	if err := s.uc.Sync.ClearAll(r.Context(), types.UserID(req.UserID), req.Confirm); err != nil {
		if errors.Is(err, usecase.ErrConfirmationRequired) {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusPreconditionRequired)
			return
		}
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
