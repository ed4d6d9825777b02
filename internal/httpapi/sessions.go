package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inqbatorchris/aimee-sub007/internal/geo"
	"github.com/inqbatorchris/aimee-sub007/internal/mode"
	"github.com/inqbatorchris/aimee-sub007/internal/pathedit"
	"github.com/inqbatorchris/aimee-sub007/internal/surface"
	"github.com/inqbatorchris/aimee-sub007/internal/topology"
)

type sessionResponse struct {
	ID    string        `json:"id"`
	State surface.State `json:"state"`
}

type eventResponse struct {
	Outcome mode.Outcome  `json:"outcome"`
	State   surface.State `json:"state"`
}

type selectionResponse struct {
	NodeIDs []string      `json:"node_ids"`
	State   surface.State `json:"state"`
}

type waypointResponse struct {
	Index int           `json:"index"`
	State surface.State `json:"state"`
}

type pathResponse struct {
	Waypoints []geo.Point   `json:"waypoints"`
	State     surface.State `json:"state"`
}

type deltaResponse struct {
	Delta pathedit.PathDelta `json:"delta"`
	State surface.State      `json:"state"`
}

type modeRequest struct {
	Mode *mode.Mode `json:"mode"`
}

type pointRequest struct {
	Point *geo.Point `json:"point"`
}

type markerRequest struct {
	NodeID string `json:"node_id"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type cableEditRequest struct {
	CableID string `json:"cable_id"`
}

type insertWaypointRequest struct {
	Point   *geo.Point `json:"point"`
	Nearest bool       `json:"nearest,omitempty"`
}

// withSession runs fn under the session lock and writes its result with status.
func (h *Handler) withSession(w http.ResponseWriter, r *http.Request, status int, fn func(sf *surface.Surface) (any, error)) {
	sess, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeEditorError(w, err)
		return
	}
	var resp any
	err = sess.Do(func(sf *surface.Surface) error {
		var err error
		resp, err = fn(sf)
		return err
	})
	if err != nil {
		h.writeEditorError(w, err)
		return
	}
	if resp == nil {
		w.WriteHeader(status)
		return
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSONStrict(r, dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return false
	}
	return true
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Create(r.Context())
	if err != nil {
		// The session exists but starts empty; the client can retry with /refresh.
		h.log.Warn().Err(err).Str("session_id", sess.ID).Msg("initial map load failed")
	}
	var resp sessionResponse
	_ = sess.Do(func(sf *surface.Surface) error {
		resp = sessionResponse{ID: sess.ID, State: sf.State()}
		return nil
	})
	h.writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(sf *surface.Surface) (any, error) {
		return sessionResponse{ID: chi.URLParam(r, "id"), State: sf.State()}, nil
	})
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		h.writeEditorError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(sf *surface.Surface) (any, error) {
		if err := sf.Refresh(r.Context()); err != nil {
			return nil, err
		}
		return sf.State(), nil
	})
}

func (h *Handler) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	var req topology.NodeFilter
	if !h.decodeBody(w, r, &req) {
		return
	}
	if b := req.Bounds; b != nil {
		for _, p := range []geo.Point{b.SouthWest, b.NorthEast} {
			if err := geo.Validate(p); err != nil {
				h.writeEditorError(w, err)
				return
			}
		}
	}
	h.withSession(w, r, http.StatusOK, func(sf *surface.Surface) (any, error) {
		if err := sf.SetFilter(r.Context(), req); err != nil {
			return nil, err
		}
		return sf.State(), nil
	})
}

func (h *Handler) handleListNodes(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(sf *surface.Surface) (any, error) {
		return sf.Nodes(), nil
	})
}

func (h *Handler) handleListCables(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(sf *surface.Surface) (any, error) {
		return sf.Cables(), nil
	})
}

func (h *Handler) handleGeometry(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(sf *surface.Surface) (any, error) {
		return sf.Geometry(), nil
	})
}

func (h *Handler) handleNotifications(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeEditorError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sess.Inbox().Peek())
}

func (h *Handler) handleDrainNotifications(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeEditorError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sess.Inbox().Drain())
}

func (h *Handler) handleEnterMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Mode == nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "mode is required", nil)
		return
	}
	h.withSession(w, r, http.StatusOK, func(sf *surface.Surface) (any, error) {
		sf.EnterMode(*req.Mode)
		return sf.State(), nil
	})
}

func (h *Handler) handleExitMode(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(sf *surface.Surface) (any, error) {
		sf.ExitMode()
		return sf.State(), nil
	})
}

func (h *Handler) handleMapClick(w http.ResponseWriter, r *http.Request) {
	var req pointRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Point == nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "point is required", nil)
		return
	}
	h.withSession(w, r, http.StatusOK, func(sf *surface.Surface) (any, error) {
		out, err := sf.MapClick(*req.Point)
		if err != nil {
			return nil, err
		}
		return eventResponse{Outcome: out, State: sf.State()}, nil
	})
}

func (h *Handler) handleMarkerClick(w http.ResponseWriter, r *http.Request) {
	var req markerRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.NodeID == "" {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "node_id is required", nil)
		return
	}
	h.withSession(w, r, http.StatusOK, func(sf *surface.Surface) (any, error) {
		out, err := sf.MarkerClick(req.NodeID)
		if err != nil {
			return nil, err
		}
		return eventResponse{Outcome: out, State: sf.State()}, nil
	})
}

func (h *Handler) handleFinishPolygon(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(sf *surface.Surface) (any, error) {
		set, err := sf.FinishPolygon()
		if err != nil {
			return nil, err
		}
		return selectionResponse{NodeIDs: set.IDs(), State: sf.State()}, nil
	})
}

func (h *Handler) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(sf *surface.Surface) (any, error) {
		sf.ClearSelection()
		return sf.State(), nil
	})
}

func (h *Handler) handleBulkStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	h.withSession(w, r, http.StatusAccepted, func(sf *surface.Surface) (any, error) {
		ids, err := sf.BulkUpdateStatus(req.Status)
		if err != nil {
			return nil, err
		}
		return selectionResponse{NodeIDs: ids, State: sf.State()}, nil
	})
}

func (h *Handler) handleConfirmNode(w http.ResponseWriter, r *http.Request) {
	var req surface.NodeAttributes
	if !h.decodeBody(w, r, &req) {
		return
	}
	h.withSession(w, r, http.StatusAccepted, func(sf *surface.Surface) (any, error) {
		if _, err := sf.ConfirmNode(req); err != nil {
			return nil, err
		}
		return sf.State(), nil
	})
}

func (h *Handler) handleDiscardNode(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(sf *surface.Surface) (any, error) {
		sf.DiscardNodeDraft()
		return sf.State(), nil
	})
}

func (h *Handler) handleConfirmCable(w http.ResponseWriter, r *http.Request) {
	var req surface.CableAttributes
	if !h.decodeBody(w, r, &req) {
		return
	}
	h.withSession(w, r, http.StatusAccepted, func(sf *surface.Surface) (any, error) {
		if _, err := sf.ConfirmCable(req); err != nil {
			return nil, err
		}
		return sf.State(), nil
	})
}

func (h *Handler) handleDiscardCable(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(sf *surface.Surface) (any, error) {
		sf.DiscardCableDraft()
		return sf.State(), nil
	})
}

func (h *Handler) handleBeginCableEdit(w http.ResponseWriter, r *http.Request) {
	var req cableEditRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	h.withSession(w, r, http.StatusOK, func(sf *surface.Surface) (any, error) {
		if err := sf.BeginCableEdit(req.CableID); err != nil {
			return nil, err
		}
		return sf.State(), nil
	})
}

func (h *Handler) handleCancelCableEdit(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(sf *surface.Surface) (any, error) {
		original, err := sf.CancelCableEdit()
		if err != nil {
			return nil, err
		}
		return pathResponse{Waypoints: original, State: sf.State()}, nil
	})
}

func (h *Handler) handleSaveCableEdit(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(sf *surface.Surface) (any, error) {
		delta, err := sf.SaveCableEdit()
		if err != nil {
			return nil, err
		}
		return deltaResponse{Delta: delta, State: sf.State()}, nil
	})
}

func (h *Handler) handleInsertWaypoint(w http.ResponseWriter, r *http.Request) {
	var req insertWaypointRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Point == nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "point is required", nil)
		return
	}
	h.withSession(w, r, http.StatusOK, func(sf *surface.Surface) (any, error) {
		idx, err := sf.InsertWaypoint(*req.Point, req.Nearest)
		if err != nil {
			return nil, err
		}
		return waypointResponse{Index: idx, State: sf.State()}, nil
	})
}

func (h *Handler) handleMoveWaypoint(w http.ResponseWriter, r *http.Request) {
	idx, ok := h.waypointIndex(w, r)
	if !ok {
		return
	}
	var req pointRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Point == nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "point is required", nil)
		return
	}
	h.withSession(w, r, http.StatusOK, func(sf *surface.Surface) (any, error) {
		if err := sf.MoveWaypoint(idx, *req.Point); err != nil {
			return nil, err
		}
		return waypointResponse{Index: idx, State: sf.State()}, nil
	})
}

func (h *Handler) handleRemoveWaypoint(w http.ResponseWriter, r *http.Request) {
	idx, ok := h.waypointIndex(w, r)
	if !ok {
		return
	}
	h.withSession(w, r, http.StatusOK, func(sf *surface.Surface) (any, error) {
		if err := sf.RemoveWaypoint(idx); err != nil {
			return nil, err
		}
		return sf.State(), nil
	})
}

func (h *Handler) waypointIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "waypoint index must be an integer", nil)
		return 0, false
	}
	return idx, true
}

