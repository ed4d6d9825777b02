package httpapi

import (
	"errors"
	"net/http"

	"github.com/inqbatorchris/aimee-sub007/internal/geo"
	"github.com/inqbatorchris/aimee-sub007/internal/mode"
	"github.com/inqbatorchris/aimee-sub007/internal/pathedit"
	"github.com/inqbatorchris/aimee-sub007/internal/selection"
	"github.com/inqbatorchris/aimee-sub007/internal/session"
	"github.com/inqbatorchris/aimee-sub007/internal/surface"
	"github.com/inqbatorchris/aimee-sub007/internal/topology"
)

// userErrors maps editor rejections to stable error codes. All of them leave the
// session unchanged and are reported as 422.
var userErrors = []struct {
	err  error
	code string
}{
	{selection.ErrTooFewVertices, "too_few_vertices"},
	{selection.ErrWrongStrategy, "wrong_mode"},
	{selection.ErrNotDrawing, "not_drawing"},
	{pathedit.ErrNoPathGeometry, "no_path_geometry"},
	{pathedit.ErrEndpointImmutable, "endpoint_immutable"},
	{pathedit.ErrNotEditing, "not_editing"},
	{pathedit.ErrAlreadyEditing, "already_editing"},
	{pathedit.ErrIndexOutOfRange, "index_out_of_range"},
	{geo.ErrInvalidPoint, "invalid_point"},
	{mode.ErrNoPendingNode, "no_pending_node"},
	{mode.ErrNoPendingCable, "no_pending_cable"},
	{mode.ErrUnknownMode, "unknown_mode"},
	{surface.ErrMissingField, "missing_field"},
	{surface.ErrInvalidField, "invalid_field"},
	{surface.ErrUnknownCable, "unknown_cable"},
	{surface.ErrMissingCableID, "missing_cable_id"},
	{surface.ErrEmptySelection, "empty_selection"},
}

func (h *Handler) writeEditorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "session_not_found", "session not found", nil)
		return
	case errors.Is(err, topology.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", err.Error(), nil)
		return
	}
	for _, ue := range userErrors {
		if errors.Is(err, ue.err) {
			h.writeError(w, http.StatusUnprocessableEntity, ue.code, err.Error(), nil)
			return
		}
	}
	h.log.Error().Err(err).Msg("editor request failed")
	h.writeError(w, http.StatusInternalServerError, "store_error", "failed to load map data", nil)
}
