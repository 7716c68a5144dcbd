// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/wingedpig/devdock/internal/project"
	"github.com/wingedpig/devdock/internal/supervisor"
)

// stopAllTimeout bounds how long stop-all waits for every process.
const stopAllTimeout = 30 * time.Second

// ProjectHandler handles project and process API requests.
type ProjectHandler struct {
	ctrl *project.Controller
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(ctrl *project.Controller) *ProjectHandler {
	return &ProjectHandler{ctrl: ctrl}
}

// List returns all projects.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.ctrl.Registry().List())
}

// Get returns a single project.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.ctrl.Registry().Get(mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

// Create registers a project.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req project.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid JSON")
		return
	}
	if req.Path == "" {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "path is required")
		return
	}

	p, err := h.ctrl.Registry().Create(req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, p)
}

// Update changes a project's definition.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req project.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid JSON")
		return
	}

	p, err := h.ctrl.Registry().Update(mux.Vars(r)["id"], req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

// Delete stops and removes a project.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	// Stopping must finish even if the client goes away.
	if err := h.ctrl.Delete(context.Background(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"id":      id,
		"deleted": true,
	})
}

// Start launches a project's dev server.
func (h *ProjectHandler) Start(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	// The process outlives the request.
	res, err := h.ctrl.Start(context.Background(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !res.Success {
		writeDomainError(w, res.Err)
		return
	}

	p, err := h.ctrl.Registry().Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

// Stop terminates a project's dev server.
func (h *ProjectHandler) Stop(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ok, err := h.ctrl.Stop(context.Background(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		WriteError(w, http.StatusInternalServerError, ErrProcessError, "failed to signal process")
		return
	}

	p, err := h.ctrl.Registry().Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

// StopAll stops every running process and waits for them to exit.
func (h *ProjectHandler) StopAll(w http.ResponseWriter, r *http.Request) {
	sup := h.ctrl.Supervisor()
	ids := sup.ListRunning()

	ctx, cancel := context.WithTimeout(context.Background(), stopAllTimeout)
	defer cancel()
	if err := sup.StopAllAndWait(ctx); err != nil {
		WriteErrorWithDetails(w, http.StatusInternalServerError, ErrProcessError, err.Error(), map[string]interface{}{
			"still_running": sup.ListRunning(),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"stopped": ids,
	})
}

// Running lists the processes the supervisor is tracking.
func (h *ProjectHandler) Running(w http.ResponseWriter, r *http.Request) {
	sup := h.ctrl.Supervisor()
	ids := sup.ListRunning()
	infos := make([]supervisor.ProcessInfo, 0, len(ids))
	for _, id := range ids {
		if info, ok := sup.Info(id); ok {
			infos = append(infos, info)
		}
	}
	WriteJSON(w, http.StatusOK, infos)
}
