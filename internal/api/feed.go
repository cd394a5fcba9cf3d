package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openregistry/lotreg/internal/store"
)

const (
	feedDateModified = "dateModified"
	feedChanges      = "changes"

	defaultFeedLimit = 100
	maxFeedLimit     = 1000
)

// List handles GET /api/lots: the change-feed listing surface. Consumers
// poll with the offset from the previous response's next_page; the cursor is
// a modification timestamp or a storage sequence number depending on the
// feed parameter.
func (h *LotsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	partition := q.Get("mode")
	switch partition {
	case store.FeedReal, store.FeedTest, store.FeedAll:
	default:
		jsonError(w, http.StatusUnprocessableEntity, "querystring", "mode", "Mode must be one of '', 'test', '_all_'")
		return
	}

	limit := defaultFeedLimit
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			jsonError(w, http.StatusUnprocessableEntity, "querystring", "limit", "Limit must be a positive integer")
			return
		}
		limit = min(parsed, maxFeedLimit)
	}

	feed := q.Get("feed")
	if feed == "" {
		feed = feedDateModified
	}

	var entries []store.FeedEntry
	var nextOffset string
	var err error

	switch feed {
	case feedChanges:
		var offset int64
		if raw := q.Get("offset"); raw != "" {
			offset, err = strconv.ParseInt(raw, 10, 64)
			if err != nil {
				jsonError(w, http.StatusNotFound, "querystring", "offset", "Offset expired/invalid")
				return
			}
		}
		entries, err = store.FeedByLocalSeq(r.Context(), h.DB, partition, offset, limit)
		if len(entries) > 0 {
			nextOffset = strconv.FormatInt(entries[len(entries)-1].LocalSeq, 10)
		} else {
			nextOffset = strconv.FormatInt(offset, 10)
		}
	case feedDateModified:
		var offset time.Time
		if raw := q.Get("offset"); raw != "" {
			offset, err = time.Parse(time.RFC3339Nano, raw)
			if err != nil {
				jsonError(w, http.StatusNotFound, "querystring", "offset", "Offset expired/invalid")
				return
			}
		}
		entries, err = store.FeedByDateModified(r.Context(), h.DB, partition, offset, limit)
		if len(entries) > 0 {
			nextOffset = entries[len(entries)-1].DateModified.Format(time.RFC3339Nano)
		} else {
			nextOffset = offset.Format(time.RFC3339Nano)
		}
	default:
		jsonError(w, http.StatusUnprocessableEntity, "querystring", "feed", "Feed must be one of 'dateModified', 'changes'")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("feed", feed).Msg("listing lots")
		jsonError(w, http.StatusInternalServerError, "body", "data", "failed to list lots")
		return
	}

	if entries == nil {
		entries = []store.FeedEntry{}
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"data":      entries,
		"next_page": map[string]string{"offset": nextOffset},
	})
}
