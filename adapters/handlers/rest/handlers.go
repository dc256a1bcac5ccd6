//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

// Package rest is the thin HTTP surface over the job manager: submit a
// generation job, poll its status, health check. It contains no generation
// logic of its own.
package rest

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/weaviate/syngen/entities/synth"
	"github.com/weaviate/syngen/usecases/jobs"
)

type Handlers struct {
	manager *jobs.Manager
	logger  logrus.FieldLogger
}

func NewHandlers(manager *jobs.Manager, logger logrus.FieldLogger) *Handlers {
	return &Handlers{manager: manager, logger: logger}
}

// Routes wires the job API onto a fresh mux.
func (h *Handlers) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/synthetic-data/generate", h.generate)
	mux.HandleFunc("GET /v1/synthetic-data/status/{id}", h.status)
	mux.HandleFunc("GET /v1/synthetic-data/health", h.health)
	return mux
}

func (h *Handlers) generate(w http.ResponseWriter, r *http.Request) {
	var req synth.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "decode request: "+err.Error())
		return
	}

	id, err := h.manager.Submit(&req)
	if err != nil {
		if synth.IsValidationError(err) {
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.WithError(err).Error("job submission failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusAccepted, synth.JobStatus{
		ID:    id,
		State: synth.JobStatePending,
	})
}

func (h *Handlers) status(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	status, ok := h.manager.Status(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	h.writeJSON(w, http.StatusOK, status)
}

func (h *Handlers) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.WithError(err).Error("could not write response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, code int, message string) {
	h.writeJSON(w, code, map[string]string{"error": message})
}
