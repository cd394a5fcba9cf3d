package api

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openregistry/lotreg/internal/lotid"
	"github.com/openregistry/lotreg/internal/lottype"
	"github.com/openregistry/lotreg/internal/metrics"
	"github.com/openregistry/lotreg/internal/model"
	"github.com/openregistry/lotreg/internal/policy"
	"github.com/openregistry/lotreg/internal/store"
)

// LotsHandler handles the lot resource endpoints.
type LotsHandler struct {
	DB    *sql.DB
	Types *lottype.Registry
	IDGen *lotid.Generator
}

// accessTokenHeader carries the owner credential on guarded writes.
const accessTokenHeader = "X-Access-Token"

// Create handles POST /api/lots.
func (h *LotsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	data, err := decodeData(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "body", "data", "invalid request body")
		return
	}

	lotType, _ := data["lotType"].(string)
	def, ok := h.Types.Get(lotType)
	if !ok {
		jsonError(w, http.StatusUnsupportedMediaType, "body", "lotType", "Not implemented")
		return
	}

	lot, err := model.FromMap(data)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "body", "data", "invalid request body")
		return
	}
	// Server-assigned fields cannot be seeded by the client.
	lot.ID = ""
	lot.LotID = ""
	lot.Owner = ""
	lot.OwnerToken = ""
	lot.TransferToken = ""
	lot.TransferUsed = false
	lot.Revisions = nil
	lot.Documents = nil

	if perr := policy.ValidateCreate(def, actorFromClaims(claims), lot); perr != nil {
		policyError(w, perr)
		return
	}

	now := time.Now().UTC()
	lot.ID = model.NewHexID()
	lot.LotType = def.Name
	lot.Status = def.DefaultStatus
	lot.Owner = claims.Username
	lot.OwnerToken = model.NewHexID()
	lot.TransferToken = model.NewHexID()
	lot.Date = now
	lot.DateModified = now
	lot.ApplyTestTitles()

	lotID, err := h.IDGen.Generate(r.Context(), now)
	if err != nil {
		log.Error().Err(err).Msg("generating lot identifier")
		jsonError(w, http.StatusInternalServerError, "body", "data", "failed to generate lot identifier")
		return
	}
	lot.LotID = lotID

	if err := store.InsertLot(r.Context(), h.DB, lot); err != nil {
		var verr *store.ValidationError
		if errors.As(err, &verr) {
			jsonError(w, http.StatusUnprocessableEntity, "body", verr.Field, verr.Message)
			return
		}
		log.Error().Err(err).Str("lot_id", lot.ID).Msg("persisting lot")
		jsonError(w, http.StatusInternalServerError, "body", "data", "failed to store lot")
		return
	}

	log.Info().Str("lot_id", lot.ID).Str("lotID", lot.LotID).Str("owner", lot.Owner).Msg("created lot")

	view, err := policy.ViewSerialize(lot)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "body", "data", "failed to serialize lot")
		return
	}
	w.Header().Set("Location", "/api/lots/"+lot.ID)
	jsonResponse(w, http.StatusCreated, map[string]any{
		"data":   view,
		"access": map[string]string{"token": lot.OwnerToken},
	})
}

// Get handles GET /api/lots/{lot_id}.
func (h *LotsHandler) Get(w http.ResponseWriter, r *http.Request) {
	lot, ok := h.fetchLot(w, r)
	if !ok {
		return
	}
	view, err := policy.ViewSerialize(lot)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "body", "data", "failed to serialize lot")
		return
	}
	jsonData(w, http.StatusOK, view)
}

// Patch handles PATCH /api/lots/{lot_id}.
func (h *LotsHandler) Patch(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	lot, ok := h.fetchLot(w, r)
	if !ok {
		return
	}

	// Brokers act through the ownership credential; the administrator and
	// the automated accounts authenticate by role alone.
	if claims.Role == model.RoleBroker {
		if claims.Username != lot.Owner || r.Header.Get(accessTokenHeader) != lot.OwnerToken {
			jsonError(w, http.StatusForbidden, "url", "permission", "Forbidden")
			return
		}
	}

	patch, err := decodeData(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "body", "data", "invalid request body")
		return
	}

	def, _ := h.Types.Get(lot.LotType)
	filtered, perr := policy.ValidatePatch(lot, def.DefaultStatus, patch, actorFromClaims(claims))
	if perr != nil {
		policyError(w, perr)
		return
	}

	doc, err := lot.AsMap()
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "body", "data", "failed to serialize lot")
		return
	}
	after, err := model.FromMap(policy.ApplyPatch(doc, filtered))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "body", "data", "invalid request body")
		return
	}
	after.Rev = lot.Rev
	after.LocalSeq = lot.LocalSeq

	oldStatus := lot.Status
	saved, err := store.SaveLot(r.Context(), h.DB, lot, after, claims.Username)
	if err != nil {
		h.saveError(w, err, lot.ID)
		return
	}

	if saved.Status != oldStatus {
		metrics.StatusTransitions.WithLabelValues(oldStatus, saved.Status).Inc()
		log.Info().Str("lot_id", saved.ID).Str("from", oldStatus).Str("to", saved.Status).Msg("lot status changed")
	}
	log.Info().Str("lot_id", saved.ID).Time("dateModified", saved.DateModified).Msg("updated lot")

	view, err := policy.ViewSerialize(saved)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "body", "data", "failed to serialize lot")
		return
	}
	jsonData(w, http.StatusOK, view)
}

// fetchLot loads the lot named in the path, writing a 404 when it is absent.
func (h *LotsHandler) fetchLot(w http.ResponseWriter, r *http.Request) (*model.Lot, bool) {
	id := r.PathValue("lot_id")
	lot, err := store.GetLot(r.Context(), h.DB, id)
	if err != nil {
		log.Error().Err(err).Str("lot_id", id).Msg("loading lot")
		jsonError(w, http.StatusInternalServerError, "body", "data", "failed to load lot")
		return nil, false
	}
	if lot == nil {
		jsonError(w, http.StatusNotFound, "url", "lot_id", "Not Found")
		return nil, false
	}
	return lot, true
}

// saveError maps a persist failure to the error taxonomy: 409 for write
// conflicts, 422 for storage validation, a logged generic body error for
// anything unexpected.
func (h *LotsHandler) saveError(w http.ResponseWriter, err error, lotID string) {
	var verr *store.ValidationError
	switch {
	case errors.Is(err, store.ErrConflict):
		jsonError(w, http.StatusConflict, "body", "data", err.Error())
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, "url", "lot_id", "Not Found")
	case errors.As(err, &verr):
		jsonError(w, http.StatusUnprocessableEntity, "body", verr.Field, verr.Message)
	default:
		log.Error().Err(err).Str("lot_id", lotID).Msg("persisting lot")
		jsonError(w, http.StatusInternalServerError, "body", "data", err.Error())
	}
}
