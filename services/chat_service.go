package services

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/repo-advisor/agentboot"
	"github.com/SaiNageswarS/repo-advisor/metrics"
	"go.uber.org/zap"
	"google.golang.org/grpc/status"
)

const maxRequestBytes = 64 << 10

type Responder interface {
	Respond(ctx context.Context, sessionID, message string) (*agentboot.Reply, error)
}

type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ChatService serves POST /chat for browser clients.
type ChatService struct {
	responder   Responder
	allowOrigin string
}

func ProvideChatService(responder Responder, allowOrigin string) *ChatService {
	if allowOrigin == "" {
		allowOrigin = "*"
	}

	return &ChatService{
		responder:   responder,
		allowOrigin: allowOrigin,
	}
}

func (s *ChatService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		metrics.RecordChatRequest(strconv.Itoa(rec.status), time.Since(start))
	}()

	s.setCORSHeaders(rec.Header())

	switch r.Method {
	case http.MethodOptions:
		rec.WriteHeader(http.StatusOK)
	case http.MethodPost:
		s.chat(rec, r)
	default:
		rec.Header().Set("Allow", "POST, OPTIONS")
		writeJSON(rec, http.StatusMethodNotAllowed, ErrorResponse{
			Error:   "MethodNotAllowed",
			Message: "Only POST is supported",
		})
	}
}

func (s *ChatService) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		logger.Error("Invalid chat request body", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   agentboot.KindInvalidRequest,
			Message: "Request body must be a JSON object with a message field",
		})
		return
	}

	reply, err := s.responder.Respond(r.Context(), req.SessionID, req.Message)
	if err != nil {
		code, body := errorResponse(err)
		writeJSON(w, code, body)
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

func (s *ChatService) setCORSHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", s.allowOrigin)
	h.Set("Access-Control-Allow-Headers", "Content-Type")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
}

// errorResponse maps a responder error to an HTTP status and envelope.
// Internal details never reach the client.
func errorResponse(err error) (int, ErrorResponse) {
	switch kind := agentboot.ErrorKind(err); kind {
	case agentboot.KindInvalidRequest:
		return http.StatusBadRequest, ErrorResponse{Error: kind, Message: status.Convert(err).Message()}
	case agentboot.KindUpstreamUnavailable:
		logger.Error("Upstream unavailable", zap.Error(err))
		return http.StatusServiceUnavailable, ErrorResponse{
			Error:   kind,
			Message: "The assistant is temporarily unavailable, please try again",
		}
	default:
		logger.Error("Error processing chat request", zap.Error(err))
		return http.StatusInternalServerError, ErrorResponse{
			Error:   agentboot.KindInternalError,
			Message: "Internal server error",
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error writing response", zap.Error(err))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
