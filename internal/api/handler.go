// Package api implements HTTP routing, input validation, and response
// assembly around the scoring engine.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ramonehamilton/asi-engine/internal/api/response"
	"github.com/ramonehamilton/asi-engine/internal/asi/deck"
	"github.com/ramonehamilton/asi-engine/internal/asi/format"
	"github.com/ramonehamilton/asi-engine/internal/asi/scoring"
	"github.com/ramonehamilton/asi-engine/internal/asierr"
	"github.com/ramonehamilton/asi-engine/internal/store"
)

// Meta carries query diagnostics alongside the scored archetypes.
type Meta struct {
	Database  string  `json:"database"`
	Backend   string  `json:"backend"`
	ExecMS    float64 `json:"exec-ms"`
	ReadCount int     `json:"read_count"`
}

// ScoreResponse is the full success document returned by the scoring endpoint.
type ScoreResponse struct {
	Meta Meta            `json:"meta"`
	Data orderedScoreMap `json:"data"`
}

// orderedScoreMap preserves descending-score key order on encode, since
// archetypes are emitted ranked best match first.
type orderedScoreMap []scoring.Result

// MarshalJSON writes the results as a JSON object in slice order.
func (m orderedScoreMap) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, r := range m {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(r.Archetype)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.Score)
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// Handler validates the request, invokes the bigram extractor and store,
// runs the scoring engine, and assembles the response document.
type Handler struct {
	store    store.BigramStore
	engine   *scoring.Engine
	registry *format.Registry
}

// NewHandler builds a Handler over the given store, scoring engine, and
// format registry.
func NewHandler(st store.BigramStore, engine *scoring.Engine, registry *format.Registry) *Handler {
	return &Handler{store: st, engine: engine, registry: registry}
}

// ServeHTTP implements the POST /asi?format=<format> endpoint.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f, verr := h.validateFormat(r)
	if verr != nil {
		writeValidationError(w, verr)
		return
	}

	cards, verr := h.validateBody(r)
	if verr != nil {
		writeValidationError(w, verr)
		return
	}

	pairs, err := deck.Bigrams(cards)
	if err != nil {
		writeValidationError(w, asierr.Validation(asierr.TagInvalidJSON,
			"The request body must contain at least two cards."))
		return
	}

	result, err := h.store.Lookup(r.Context(), f, pairs)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	scores := h.engine.Score(result.Rows)

	resp := ScoreResponse{
		Meta: Meta{
			Database:  h.store.Database(),
			Backend:   h.store.Backend(),
			ExecMS:    result.QueryMillis,
			ReadCount: result.RowsScanned,
		},
		Data: orderedScoreMap(scores),
	}

	response.JSON(w, http.StatusOK, resp)
}

func (h *Handler) validateFormat(r *http.Request) (format.Format, *asierr.Error) {
	raw := r.URL.Query().Get("format")
	if raw == "" {
		return "", asierr.Validation(asierr.TagMissingParameter, "The 'format' parameter is required.")
	}
	f := format.Format(raw)
	if !h.registry.IsKnown(f) {
		return "", asierr.Validation(asierr.TagInvalidParameter,
			"The 'format' parameter '"+raw+"' is not supported.")
	}
	return f, nil
}

func (h *Handler) validateBody(r *http.Request) ([]string, *asierr.Error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, asierr.Validation(asierr.TagInvalidJSON, "The request body must be a valid JSON array.")
	}

	var cards []string
	if err := json.Unmarshal(raw, &cards); err != nil {
		return nil, asierr.Validation(asierr.TagInvalidJSON, "The request body must be a valid JSON array.")
	}

	return cards, nil
}

func writeValidationError(w http.ResponseWriter, err *asierr.Error) {
	response.Error(w, http.StatusBadRequest, string(err.Tag), err.Message)
}

// writeStoreError maps a store.Lookup failure to a 500 response. A store
// implementation may return a typed *asierr.Error directly (e.g. a schema
// mismatch caught mid-scan); anything else is treated as a plain
// store-unavailable failure.
func writeStoreError(w http.ResponseWriter, err error) {
	aerr, ok := asierr.As(err)
	if !ok {
		aerr = asierr.StoreUnavailable(err)
	}
	response.Error(w, http.StatusInternalServerError, string(aerr.Tag), aerr.Message)
}
