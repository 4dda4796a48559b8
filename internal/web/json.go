package web

import (
	"encoding/json"
	"net/http"

	"eventcal/internal/conflict"
	appLog "eventcal/internal/log"
	"eventcal/internal/model"
)

type eventsResponse struct {
	Events []model.Event `json:"events"`
	Count  int           `json:"count"`
}

type mutationResponse struct {
	Event     *model.Event        `json:"event"`
	Conflicts []conflict.Conflict `json:"conflicts,omitempty"`
}

type conflictsResponse struct {
	Conflicts   []conflict.Conflict `json:"conflicts"`
	Message     string              `json:"message"`
	PreventSave bool                `json:"preventSave"`
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
