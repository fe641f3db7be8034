package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jakechorley/support-match/pkg/core/matchflow"
	"github.com/jakechorley/support-match/pkg/core/model"
	"github.com/jakechorley/support-match/pkg/core/services"
)

type createRequestBody struct {
	RequesterID string `json:"requesterId"`
}

type volunteerBody struct {
	VolunteerID string `json:"volunteerId"`
}

type manualMatchBody struct {
	RequesterID string `json:"requesterId"`
	VolunteerID string `json:"volunteerId"`
}

type reviewBody struct {
	Decision model.Approval `json:"decision"`
}

// transition runs cmd and answers with the committed result
func (s *Server) transition(w http.ResponseWriter, r *http.Request, status int, cmd matchflow.Command) {
	result, err := services.ApplyMatchTransition(r.Context(), s.store, s.hub, s.notifier, s.metrics, s.logger, cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, result)
}

func (s *Server) registerRequester(w http.ResponseWriter, r *http.Request) {
	var requester model.RequesterProfile
	if err := decode(r, &requester); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := services.RegisterRequester(r.Context(), s.store, s.hub, s.logger, &requester); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, requester)
}

func (s *Server) registerVolunteer(w http.ResponseWriter, r *http.Request) {
	var volunteer model.VolunteerProfile
	if err := decode(r, &volunteer); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := services.RegisterVolunteer(r.Context(), s.store, s.hub, s.logger, &volunteer); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, volunteer)
}

func (s *Server) rankVolunteers(w http.ResponseWriter, r *http.Request) {
	result, err := services.RankVolunteersFor(r.Context(), s.store, s.logger, chi.URLParam(r, "id"), s.opts.RecommendedThreshold)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) rankVolunteersForAdmin(w http.ResponseWriter, r *http.Request) {
	result, err := services.RankVolunteersForAdmin(r.Context(), s.store, s.logger, chi.URLParam(r, "id"), s.opts.RecommendedThreshold)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := services.ListRequests(r.Context(), s.store, s.logger, services.RequestFilter{
		Status:      model.RequestStatus(q.Get("status")),
		RequesterID: q.Get("requesterId"),
		VolunteerID: q.Get("volunteerId"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) listMatches(w http.ResponseWriter, r *http.Request) {
	result, err := services.ListMatches(r.Context(), s.store, s.logger, r.URL.Query().Get("volunteerId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) listVolunteers(w http.ResponseWriter, r *http.Request) {
	result, err := services.ListVolunteers(r.Context(), s.store, s.logger, model.Approval(r.URL.Query().Get("approved")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) listPool(w http.ResponseWriter, r *http.Request) {
	result, err := services.ListPool(r.Context(), s.store, s.logger, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) createRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.transition(w, r, http.StatusCreated, matchflow.CreateRequest{RequesterID: body.RequesterID})
}

func (s *Server) selectVolunteer(w http.ResponseWriter, r *http.Request) {
	var body volunteerBody
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.transition(w, r, http.StatusOK, matchflow.SelectVolunteer{RequestID: chi.URLParam(r, "id"), VolunteerID: body.VolunteerID})
}

func (s *Server) acceptRequest(w http.ResponseWriter, r *http.Request) {
	var body volunteerBody
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.transition(w, r, http.StatusOK, matchflow.AcceptRequest{RequestID: chi.URLParam(r, "id"), VolunteerID: body.VolunteerID})
}

func (s *Server) declineRequest(w http.ResponseWriter, r *http.Request) {
	var body volunteerBody
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.transition(w, r, http.StatusOK, matchflow.DeclineRequest{RequestID: chi.URLParam(r, "id"), VolunteerID: body.VolunteerID})
}

func (s *Server) approveRequest(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, http.StatusOK, matchflow.ApproveRequest{RequestID: chi.URLParam(r, "id")})
}

func (s *Server) adminDeclineRequest(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, http.StatusOK, matchflow.AdminDeclineRequest{RequestID: chi.URLParam(r, "id")})
}

func (s *Server) manualMatch(w http.ResponseWriter, r *http.Request) {
	var body manualMatchBody
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.transition(w, r, http.StatusCreated, matchflow.ManualMatch{RequesterID: body.RequesterID, VolunteerID: body.VolunteerID})
}

func (s *Server) cancelMatch(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, http.StatusOK, matchflow.CancelMatch{MatchID: chi.URLParam(r, "id")})
}

func (s *Server) reviewVolunteer(w http.ResponseWriter, r *http.Request) {
	var body reviewBody
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.transition(w, r, http.StatusOK, matchflow.ReviewVolunteer{VolunteerID: chi.URLParam(r, "id"), Decision: body.Decision})
}

func (s *Server) deleteVolunteer(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, http.StatusOK, matchflow.DeleteVolunteer{VolunteerID: chi.URLParam(r, "id")})
}

func (s *Server) deleteRequester(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, http.StatusOK, matchflow.DeleteRequester{RequesterID: chi.URLParam(r, "id")})
}

func (s *Server) planSessions(w http.ResponseWriter, r *http.Request) {
	plan, err := services.PlanSessions(r.Context(), s.store, s.logger, chi.URLParam(r, "id"), s.opts.SessionRRule, s.opts.SessionCount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) suggest(w http.ResponseWriter, r *http.Request) {
	if s.ai == nil {
		s.writeError(w, r, fmt.Errorf("AI suggestions: %w", errUnavailable))
		return
	}
	result, err := services.SuggestVolunteers(r.Context(), s.store, s.ai, s.opts.MaxSuggestVolunteers,
		s.opts.RecommendedThreshold, s.logger, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
