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

package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	enterrors "github.com/weaviate/syngen/entities/errors"
	"github.com/weaviate/syngen/entities/synth"
	"github.com/weaviate/syngen/usecases/monitoring"
)

// Manager tracks submitted jobs and runs them in the background. Statuses
// live in memory only; restarting the server forgets finished jobs.
type Manager struct {
	service *Service
	logger  logrus.FieldLogger
	metrics *monitoring.PrometheusMetrics

	mu       sync.Mutex
	statuses map[string]synth.JobStatus
}

func NewManager(service *Service, logger logrus.FieldLogger,
	metrics *monitoring.PrometheusMetrics,
) *Manager {
	return &Manager{
		service:  service,
		logger:   logger,
		metrics:  metrics,
		statuses: make(map[string]synth.JobStatus),
	}
}

// Submit validates the request, registers it and starts it in the
// background. Malformed requests are rejected synchronously, before a job
// id exists.
func (m *Manager) Submit(req *synth.Request) (string, error) {
	m.service.Normalize(req)
	if err := req.Validate(); err != nil {
		return "", err
	}

	id := uuid.New().String()
	m.setStatus(synth.JobStatus{ID: id, State: synth.JobStatePending})

	m.metrics.StartJob()
	enterrors.GoWrapper(func() { m.run(id, req) }, m.logger)

	return id, nil
}

// Status returns the job's status and whether the id is known.
func (m *Manager) Status(id string) (synth.JobStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, ok := m.statuses[id]
	return status, ok
}

func (m *Manager) run(id string, req *synth.Request) {
	logger := m.logger.WithField("job_id", id)

	defer func() {
		if r := recover(); r != nil {
			m.finish(id, req, 0, fmt.Errorf("panic during generation: %v", r))
			panic(r) // let the GoWrapper log the stack
		}
	}()

	m.setStatus(synth.JobStatus{ID: id, State: synth.JobStateProcessing})
	logger.Info("generation job started")

	elapsed, err := m.service.Run(context.Background(), req)
	m.finish(id, req, elapsed, err)
}

func (m *Manager) finish(id string, req *synth.Request, elapsed float64, err error) {
	if err != nil {
		m.logger.WithField("job_id", id).WithError(err).Error("generation job failed")
		m.setStatus(synth.JobStatus{
			ID:           id,
			State:        synth.JobStateFailed,
			ErrorMessage: err.Error(),
		})
		m.metrics.FinishJob(string(req.Sink.Kind), "failed", elapsed)
		return
	}

	m.setStatus(synth.JobStatus{
		ID:             id,
		State:          synth.JobStateCompleted,
		OutputLocation: req.OutputFile,
		ElapsedSeconds: elapsed,
	})
	m.metrics.FinishJob(string(req.Sink.Kind), "completed", elapsed)
}

func (m *Manager) setStatus(status synth.JobStatus) {
	m.mu.Lock()
	m.statuses[status.ID] = status
	m.mu.Unlock()
}
