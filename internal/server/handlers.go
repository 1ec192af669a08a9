package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/pcurran/diarist/internal/chat"
	"github.com/pcurran/diarist/internal/observe"
	"github.com/pcurran/diarist/pkg/store"
)

// chatRequest is the body of POST /chat.
type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

// chatResponse is the body of a successful POST /chat.
type chatResponse struct {
	ConversationID string `json:"conversation_id"`
	Reply          string `json:"reply"`
}

// conversationResponse is the body of POST /conversations.
type conversationResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// messageView is one turn in GET /conversations/{id}/messages.
type messageView struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ToolName  string    `json:"tool_name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// conversationView is one entry in GET /conversations.
type conversationView struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// appointmentView is one entry in GET /appointments.
type appointmentView struct {
	EventID string    `json:"event_id"`
	Title   string    `json:"title"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Status  string    `json:"status"`
}

// errorResponse is the body of every non-2xx API response.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ConversationID == "" {
		writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := s.manager.HandleUserMessage(r.Context(), req.ConversationID, req.Message)
	switch {
	case errors.Is(err, chat.ErrConversationBusy):
		writeError(w, http.StatusConflict, "a previous message for this conversation is still being processed; retry shortly")
		return
	case errors.Is(err, store.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	case err != nil:
		observe.Logger(r.Context()).Error("chat request failed", "conversation_id", req.ConversationID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		ConversationID: req.ConversationID,
		Reply:          reply,
	})
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.manager.StartConversation(r.Context())
	if err != nil {
		observe.Logger(r.Context()).Error("create conversation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, conversationResponse{
		ID:        conv.ID,
		CreatedAt: conv.CreatedAt,
	})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.manager.Conversations(r.Context())
	if err != nil {
		observe.Logger(r.Context()).Error("list conversations failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	views := make([]conversationView, 0, len(convs))
	for _, c := range convs {
		views = append(views, conversationView{
			ID:        c.ID,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleAppointments(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversation_id")
	if conversationID == "" {
		writeError(w, http.StatusBadRequest, "conversation_id query parameter is required")
		return
	}

	appointments, err := s.manager.Appointments(r.Context(), conversationID)
	switch {
	case errors.Is(err, store.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	case err != nil:
		observe.Logger(r.Context()).Error("list appointments failed", "conversation_id", conversationID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	views := make([]appointmentView, 0, len(appointments))
	for _, a := range appointments {
		views = append(views, appointmentView{
			EventID: a.EventID,
			Title:   a.Title,
			Start:   a.Start,
			End:     a.End,
			Status:  string(a.Status),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	turns, err := s.manager.History(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	case err != nil:
		observe.Logger(r.Context()).Error("load messages failed", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	views := make([]messageView, 0, len(turns))
	for _, t := range turns {
		v := messageView{
			Role:      string(t.Role),
			Content:   t.Content,
			Timestamp: t.Timestamp,
		}
		if t.ToolCall != nil {
			v.ToolName = t.ToolCall.Name
		} else if t.Result != nil {
			v.ToolName = t.Result.ToolName
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
