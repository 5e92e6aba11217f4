package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/me/joinguard/pkg/model"
)

func (s *Server) handleListOutcomes(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if s.store == nil {
		respondError(w, reqID, http.StatusNotFound, auditDisabled())
		return
	}

	filter, apiErr := parseOutcomeFilter(r)
	if apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}

	recs, total, err := s.store.ListOutcomes(r.Context(), filter)
	if err != nil {
		s.logger.Error("list outcomes", "error", err)
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: "cannot read audit log"})
		return
	}
	if recs == nil {
		recs = []*model.OutcomeRecord{}
	}

	respondList(w, reqID, recs, &model.Pagination{
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
		HasMore: filter.Offset+filter.Limit < total,
	})
}

func (s *Server) handleOutcomeSummary(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if s.store == nil {
		respondError(w, reqID, http.StatusNotFound, auditDisabled())
		return
	}

	groupID, err := queryInt64(r, "group_id")
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("group_id must be an integer"))
		return
	}

	counts, err := s.store.CountOutcomes(r.Context(), groupID)
	if err != nil {
		s.logger.Error("count outcomes", "error", err)
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: "cannot read audit log"})
		return
	}
	for _, o := range []model.Outcome{model.OutcomeVerified, model.OutcomeRejected, model.OutcomeExpired} {
		if _, ok := counts[o]; !ok {
			counts[o] = 0
		}
	}
	respondOK(w, reqID, counts)
}

// parseOutcomeFilter reads ?group_id=&outcome=&limit=&offset= and clamps the page.
func parseOutcomeFilter(r *http.Request) (model.OutcomeFilter, *model.APIError) {
	filter := model.DefaultOutcomeFilter()

	groupID, err := queryInt64(r, "group_id")
	if err != nil {
		return filter, model.NewValidationError("group_id must be an integer")
	}
	filter.GroupID = groupID

	if v := r.URL.Query().Get("outcome"); v != "" {
		o, ok := model.ParseOutcome(strings.ToUpper(v))
		if !ok || !o.IsTerminal() {
			return filter, model.NewValidationError("outcome must be VERIFIED, REJECTED or EXPIRED")
		}
		filter.Outcome = o
	}

	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &filter.Limit}, {"offset", &filter.Offset}} {
		v := r.URL.Query().Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, model.NewValidationError(p.name + " must be an integer")
		}
		*p.dst = n
	}

	filter.Clamp()
	return filter, nil
}

func queryInt64(r *http.Request, name string) (int64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func auditDisabled() *model.APIError {
	return &model.APIError{Code: model.ErrNotFound, Message: "audit log is disabled"}
}
