package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/auth"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/sse"
	"github.com/go-chi/jwtauth/v5"
)

const streamHeartbeat = 25 * time.Second

type StreamHandler interface {
	IssueToken(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

type StreamHandlerImpl struct {
	jwtService jwt.Service
	hub        *sse.Hub
	heartbeat  time.Duration
}

func NewStreamHandler(jwtService jwt.Service, hub *sse.Hub) StreamHandler {
	return &StreamHandlerImpl{jwtService: jwtService, hub: hub, heartbeat: streamHeartbeat}
}

type StreamTokenResponse struct {
	StreamToken string `json:"stream_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// IssueToken implements StreamHandler. It trades an access token for a
// short-lived token the event stream accepts in its query string.
func (h *StreamHandlerImpl) IssueToken(w http.ResponseWriter, r *http.Request) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		response.Unauthorized(w, "Failed to extract claims from context")
		return
	}

	p, err := user.FromClaims(claims)
	if err != nil {
		response.Unauthorized(w, err.Error())
		return
	}

	token, expiresIn, err := h.jwtService.GenerateStreamToken(p)
	if err != nil {
		slog.Error("GenerateStreamToken error", "user_id", p.UserID, "error", err)
		response.InternalServerError(w, "Failed to issue stream token")
		return
	}

	response.Success(w, StreamTokenResponse{StreamToken: token, ExpiresIn: expiresIn})
}

// topicsFor returns the hub topics p is allowed to follow.
func topicsFor(p user.Principal) []string {
	if p.Can(user.PermissionMemorandumViewAll) {
		return []string{memorandum.CompanyTopic(p.CompanyID)}
	}
	if p.EmployeeID == "" {
		return nil
	}
	return []string{memorandum.EmployeeTopic(p.EmployeeID)}
}

// Stream implements StreamHandler.
func (h *StreamHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	claims, err := h.jwtService.ValidateStreamToken(r.URL.Query().Get("token"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	p, err := user.FromClaims(claims)
	if err != nil {
		response.HandleError(w, auth.ErrInvalidToken)
		return
	}
	topics := topicsFor(p)
	if len(topics) == 0 {
		response.HandleError(w, memorandum.ErrForbidden)
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		slog.Error("Stream flush unsupported", "error", err)
		return
	}

	events, cleanup := h.hub.Subscribe(topics...)
	defer cleanup()

	slog.Debug("Memorandum stream opened", "user_id", p.UserID, "topics", topics)
	defer slog.Debug("Memorandum stream closed", "user_id", p.UserID)

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case e, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(e.Data)
			if err != nil {
				slog.Error("Failed to encode stream event", "event", e.Event, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Event, data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
