package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/baechuer/property-recs/internal/application/sweep"
	"github.com/baechuer/property-recs/internal/application/tracking"
	"github.com/baechuer/property-recs/internal/domain"
	"github.com/baechuer/property-recs/internal/transport/rest/response"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type ViewTracker interface {
	Track(ctx context.Context, listingID int64, userID *int64, sourceAddress, userAgent string) (tracking.Result, error)
}

type SimilarFinder interface {
	Find(ctx context.Context, listingID int64) ([]domain.NearbyListing, error)
}

type SweepStatus interface {
	State() sweep.State
	LastReport() sweep.Report
}

type Handler struct {
	views    ViewTracker
	similar  SimilarFinder
	sweep    SweepStatus
	validate *validator.Validate
	lg       zerolog.Logger
}

func NewHandler(views ViewTracker, similar SimilarFinder, sw SweepStatus, lg zerolog.Logger) *Handler {
	return &Handler{
		views:    views,
		similar:  similar,
		sweep:    sw,
		validate: validator.New(),
		lg:       lg,
	}
}

type trackViewRequest struct {
	ListingID int64 `json:"listing_id" validate:"required,gt=0"`
}

type trackViewResponse struct {
	Message  string `json:"message"`
	Recorded bool   `json:"recorded"`
	Units    int    `json:"units"`
}

func (h *Handler) TrackView(w http.ResponseWriter, r *http.Request) {
	var req trackViewRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid listing_id", map[string]string{
			"listing_id": "must be a positive integer",
		})
		return
	}

	res, err := h.views.Track(r.Context(), req.ListingID, UserIDFrom(r.Context()), clientIP(r), r.UserAgent())
	if err != nil {
		h.handleErr(w, r, err)
		return
	}

	msg := "view already counted"
	if res.Recorded {
		msg = "view recorded"
	}
	response.Data(w, http.StatusOK, trackViewResponse{Message: msg, Recorded: res.Recorded, Units: res.Units})
}

type listingDTO struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	Address    string   `json:"address"`
	Price      *string  `json:"price,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Promoted   bool     `json:"promoted"`
	DistanceKm float64  `json:"distance_km"`
}

func toListingDTO(n domain.NearbyListing) listingDTO {
	dto := listingDTO{
		ID:         n.Listing.ID,
		Title:      n.Listing.Title,
		Address:    n.Listing.Address,
		Promoted:   n.Listing.Promoted,
		DistanceKm: n.DistanceKm,
	}
	if n.Listing.Price != nil {
		p := n.Listing.Price.StringFixed(2)
		dto.Price = &p
	}
	if n.Listing.Location != nil {
		lat, lon := n.Listing.Location.Lat, n.Listing.Location.Lon
		dto.Latitude, dto.Longitude = &lat, &lon
	}
	return dto
}

func (h *Handler) Similar(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid id", map[string]string{
			"id": "must be a positive integer",
		})
		return
	}

	found, err := h.similar.Find(r.Context(), id)
	if err != nil {
		h.handleErr(w, r, err)
		return
	}

	out := make([]listingDTO, 0, len(found))
	for _, n := range found {
		out = append(out, toListingDTO(n))
	}
	response.Data(w, http.StatusOK, out)
}

type sweepDTO struct {
	State     string     `json:"state"`
	RunID     string     `json:"run_id,omitempty"`
	Users     int        `json:"users"`
	Delivered int        `json:"delivered"`
	Failed    int        `json:"failed"`
	Duration  string     `json:"duration,omitempty"`
	CheckedAt *time.Time `json:"checked_at,omitempty"`
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if h.sweep != nil {
		rep := h.sweep.LastReport()
		now := time.Now().UTC()
		s := sweepDTO{
			State:     h.sweep.State().String(),
			RunID:     rep.RunID,
			Users:     rep.Users,
			Delivered: rep.Delivered,
			Failed:    rep.Failed,
			CheckedAt: &now,
		}
		if rep.Duration > 0 {
			s.Duration = rep.Duration.String()
		}
		body["sweep"] = s
	}
	response.JSON(w, http.StatusOK, body)
}

func (h *Handler) handleErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrListingNotFound):
		fail(w, r, http.StatusNotFound, "listing.not_found", "listing not found", nil)
	case errors.Is(err, domain.ErrListingIneligible):
		fail(w, r, http.StatusNotFound, "listing.not_found", "listing not found", nil)
	case errors.Is(err, domain.ErrMissingCoordinate):
		fail(w, r, http.StatusNotFound, "listing.no_location", "listing has no location", nil)
	default:
		h.lg.Error().Err(err).Str("request_id", RequestIDFrom(r.Context())).Str("path", r.URL.Path).Msg("request failed")
		fail(w, r, http.StatusInternalServerError, "internal", "internal error", nil)
	}
}

func fail(w http.ResponseWriter, r *http.Request, status int, code, message string, meta map[string]string) {
	reqID := RequestIDFrom(r.Context())
	if reqID == "" {
		reqID = "no-request-id"
	}
	response.Fail(w, status, code, message, meta, reqID)
}
