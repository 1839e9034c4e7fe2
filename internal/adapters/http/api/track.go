package api

import (
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/okian/tracker/internal/domain/model"
	"github.com/okian/tracker/pkg/metrics"
)

// Rejection reasons. Also used as metric labels.
var (
	errInvalidJSON   = errors.New("invalid json")
	errMissingFields = model.ErrInvalidEvent
)

// handleTrack handles POST /track requests.
func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	const op = "api.track"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		s.reject(w, r, op, errInvalidJSON, "invalid_json")
		return
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil || doc == nil {
		s.reject(w, r, op, errInvalidJSON, "invalid_json")
		return
	}

	kind, deviceID := stringField(doc, "event"), stringField(doc, "deviceId")
	if kind == "" || deviceID == "" {
		s.reject(w, r, op, errMissingFields, "missing_fields")
		return
	}
	payload := model.Payload{}
	if raw, ok := doc["payload"]; ok {
		if err := json.Unmarshal(raw, &payload); err != nil {
			s.reject(w, r, op, errInvalidJSON, "invalid_json")
			return
		}
	}

	req := model.TrackRequest{
		Kind:     kind,
		DeviceID: deviceID,
		Payload:  payload,
		IP:       clientIP(r),
		UA:       r.UserAgent(),
	}
	if _, err := s.deps.Track(r.Context(), req); err != nil {
		if errors.Is(err, model.ErrInvalidEvent) {
			s.reject(w, r, op, errMissingFields, "missing_fields")
			return
		}
		s.writeError(w, r, WrapKind(op, ErrStorage, err))
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) reject(w http.ResponseWriter, r *http.Request, op string, reason error, label string) {
	metrics.RecordEventRejected(label)
	s.writeError(w, r, WrapKind(op, ErrBadRequest, reason))
}

// stringField returns doc[key] when it holds a JSON string, otherwise "".
func stringField(doc map[string]json.RawMessage, key string) string {
	var v string
	if raw, ok := doc[key]; ok && json.Unmarshal(raw, &v) == nil {
		return v
	}
	return ""
}

// clientIP returns the host part of the direct peer address. Forwarding
// headers are not consulted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
