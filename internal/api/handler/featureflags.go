package handler

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/rs/zerolog"

	"github.com/tenkimap/tenkimap/internal/api/models"
	"github.com/tenkimap/tenkimap/internal/api/response"
	"github.com/tenkimap/tenkimap/internal/featureflags"
)

const maxFlagUpdateBody = 64 << 10

// FeatureFlagsHandler serves the admin flag endpoints.
type FeatureFlagsHandler struct {
	service *featureflags.Service
	logger  zerolog.Logger
}

// NewFeatureFlagsHandler creates a FeatureFlagsHandler.
func NewFeatureFlagsHandler(service *featureflags.Service, logger zerolog.Logger) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service, logger: logger}
}

// ListFeatureFlags handles GET /v1/admin/feature-flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.list(r))
}

// UpsertFeatureFlags handles PUT /v1/admin/feature-flags. Every update must
// name a known flag with a valid value, or nothing is written.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var req featureflags.FlagUpdateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFlagUpdateBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		response.BadRequest(w, r, "request body must be a JSON flag update", nil)
		return
	}

	if len(req.Updates) == 0 {
		response.BadRequest(w, r, "no updates given", []models.FieldError{
			{Field: "updates", Message: "must not be empty", Code: models.CodeRequired},
		})
		return
	}

	var fieldErrs []models.FieldError
	flags := make([]*featureflags.Flag, 0, len(req.Updates))
	for _, u := range req.Updates {
		field := "updates." + u.Key
		if !h.service.Known(u.Key) {
			fieldErrs = append(fieldErrs, models.FieldError{Field: field, Message: "unknown flag", Code: models.CodeUnknown})
			continue
		}
		if err := featureflags.Validate(u.Key, u.Value); err != nil {
			fieldErrs = append(fieldErrs, models.FieldError{Field: field, Message: err.Error(), Code: models.CodeInvalid})
			continue
		}
		flags = append(flags, &featureflags.Flag{Key: u.Key, Value: u.Value})
	}
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid flag updates", fieldErrs)
		return
	}

	if err := h.service.SetFlags(r.Context(), flags); err != nil {
		h.logger.Error().Err(err).Msg("failed to store feature flags")
		response.ServiceUnavailable(w, r, "feature flags could not be stored")
		return
	}

	keys := make([]string, len(flags))
	for i, f := range flags {
		keys[i] = f.Key
	}
	h.logger.Info().
		Str("admin", adminSubject(r.Context())).
		Strs("flags", keys).
		Str("reason", req.Reason).
		Msg("feature flags updated")

	response.JSON(w, r, http.StatusOK, h.list(r))
}

// InvalidateCache handles POST /v1/admin/feature-flags/invalidate.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache()
	h.logger.Info().Str("admin", adminSubject(r.Context())).Msg("feature flag cache invalidated")
	response.NoContent(w, r)
}

func (h *FeatureFlagsHandler) list(r *http.Request) featureflags.FlagList {
	all := h.service.GetAllFlags(r.Context())

	items := make([]featureflags.Flag, 0, len(all))
	for _, f := range all {
		items = append(items, *f)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })

	return featureflags.FlagList{Items: items}
}
