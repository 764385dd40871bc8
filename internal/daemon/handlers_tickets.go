package daemon

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"airdesk/internal/api"
	"airdesk/internal/events"
	"airdesk/internal/logging"
	"airdesk/internal/ticket"
)

func (s *apiServer) handleListTickets(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := ticket.Filter{
		FirmID:     firmFromRequest(r),
		UrgentOnly: parseBool(query.Get("urgent")),
	}
	for _, raw := range query["status"] {
		for _, value := range strings.Split(raw, ",") {
			if strings.TrimSpace(value) == "" {
				continue
			}
			status, err := ticket.ParseStatus(value)
			if err != nil {
				s.writeFailure(w, r, err)
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if limit := strings.TrimSpace(query.Get("limit")); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}
	tickets, err := s.daemon.deps.Store.ListTickets(r.Context(), filter)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.TicketListResponse{Tickets: api.FromTickets(tickets)})
}

func (s *apiServer) handleBoard(w http.ResponseWriter, r *http.Request) {
	columns, err := s.daemon.deps.Store.TicketBoard(r.Context(), firmFromRequest(r), parseBool(r.URL.Query().Get("urgent")))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromColumns(columns))
}

func (s *apiServer) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	t, err := s.ownedTicket(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromTicket(t))
}

// handleUpdateStatus moves a ticket forward on the board. Repeating the
// current status succeeds without a change.
func (s *apiServer) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req api.StatusUpdateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	status, err := ticket.ParseStatus(req.Status)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	ctx := r.Context()
	id := r.PathValue("id")
	changed, err := s.daemon.deps.Store.UpdateTicketStatus(ctx, firmFromRequest(r), id, status)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if changed {
		s.daemon.deps.Metrics.TicketMoved(string(status))
		if t, err := s.daemon.deps.Store.GetTicket(ctx, id); err == nil {
			s.publish(r, events.FromTicket(events.TicketStatus, t, time.Now().UTC()))
		}
		logging.WithContext(ctx, s.log()).Info("ticket moved",
			logging.String(logging.FieldTicketID, id),
			logging.String("status", string(status)),
			logging.String(logging.FieldEventType, "ticket_moved"),
		)
	}
	s.writeJSON(w, http.StatusOK, api.StatusUpdateResponse{Success: true, Status: string(status), Changed: changed})
}

func (s *apiServer) handleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	t, err := s.ownedTicket(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if err := s.daemon.deps.Store.DeleteTicket(r.Context(), t.FirmID, t.ID); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.publish(r, events.FromTicket(events.TicketDeleted, t, time.Now().UTC()))
	logging.WithContext(r.Context(), s.log()).Info("ticket deleted",
		logging.String(logging.FieldTicketID, t.ID),
		logging.String(logging.FieldEventType, "ticket_deleted"),
	)
	w.WriteHeader(http.StatusNoContent)
}

// ownedTicket loads the ticket named in the path and checks it belongs to the
// requesting firm.
func (s *apiServer) ownedTicket(r *http.Request) (*ticket.Ticket, error) {
	t, err := s.daemon.deps.Store.GetTicket(r.Context(), r.PathValue("id"))
	if err != nil {
		return nil, err
	}
	if t.FirmID != firmFromRequest(r) {
		return nil, ticket.ErrForbidden
	}
	return t, nil
}

func (s *apiServer) publish(r *http.Request, event events.TicketEvent) {
	if err := s.daemon.deps.Publisher.Publish(r.Context(), event); err != nil {
		logging.WarnWithContext(s.log(), "ticket event not published", "event_publish_failed",
			logging.String(logging.FieldTicketID, event.TicketID),
			logging.String("kind", string(event.Kind)),
			logging.String(logging.FieldErrorHint, "check events.nats_url connectivity"),
			logging.Error(err),
		)
	}
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
