package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/openregistry/lotreg/internal/model"
	"github.com/openregistry/lotreg/internal/policy"
	"github.com/openregistry/lotreg/internal/store"
)

// TransferOwnership handles POST /api/lots/{lot_id}/ownership: a broker
// presenting the one-time transfer credential becomes the lot's owner and
// receives a fresh access token. The credential is consumed on success; the
// rev-guarded save makes concurrent consumption attempts lose with a 409.
func (h *LotsHandler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	lot, ok := h.fetchLot(w, r)
	if !ok {
		return
	}

	if claims.Role != model.RoleBroker {
		jsonError(w, http.StatusForbidden, "url", "role", "Only brokers can receive lot ownership")
		return
	}

	def, _ := h.Types.Get(lot.LotType)
	if !model.HasAccreditation(claims.Levels, def.TransferLevels) {
		jsonError(w, http.StatusForbidden, "body", "accreditation",
			"Broker Accreditation level does not permit ownership change")
		return
	}

	data, err := decodeData(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "body", "data", "invalid request body")
		return
	}
	token, _ := data["transfer_token"].(string)
	if token == "" || token != lot.TransferToken {
		jsonError(w, http.StatusForbidden, "body", "transfer_token", "Invalid transfer credential")
		return
	}
	if lot.TransferUsed {
		jsonError(w, http.StatusForbidden, "body", "transfer_token", "Transfer credential already consumed")
		return
	}

	after, err := lot.Clone()
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "body", "data", "failed to serialize lot")
		return
	}
	previousOwner := lot.Owner
	after.Owner = claims.Username
	after.OwnerToken = model.NewHexID()
	after.TransferUsed = true

	saved, err := store.SaveLot(r.Context(), h.DB, lot, after, claims.Username)
	if err != nil {
		h.saveError(w, err, lot.ID)
		return
	}

	log.Info().Str("lot_id", saved.ID).Str("from", previousOwner).Str("to", saved.Owner).Msg("lot ownership transferred")

	view, err := policy.ViewSerialize(saved)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "body", "data", "failed to serialize lot")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"data":   view,
		"access": map[string]string{"token": saved.OwnerToken},
	})
}

// ExtractCredentials handles GET /api/lots/{lot_id}/extract_credentials,
// restricted to the automated accounts by the router.
func (h *LotsHandler) ExtractCredentials(w http.ResponseWriter, r *http.Request) {
	lot, ok := h.fetchLot(w, r)
	if !ok {
		return
	}

	log.Info().Str("lot_id", lot.ID).Msg("extract credentials")
	jsonData(w, http.StatusOK, policy.ExtractCredentials(lot))
}
