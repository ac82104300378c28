package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"ambulance_app/internal/app"
	"ambulance_app/internal/domain"
	"ambulance_app/internal/geo"
)

type Handlers struct {
	Facilities *app.FacilityService
	Favorites  *app.FavoritesService
	// Requests is optional; without it the request routes are not mounted.
	Requests *app.RequestService
	// AverageSpeedKmh drives the eta_minutes field; zero uses the default.
	AverageSpeedKmh float64
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type facilityDTO struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	Address         string  `json:"address"`
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`
	Distance        string  `json:"distance"`
	ETAMinutes      int     `json:"eta_minutes"`
	PositionUnknown bool    `json:"position_unknown,omitempty"`
	Score           int     `json:"score"`
	Rank            int     `json:"rank"`
	Favorite        bool    `json:"favorite"`
}

type searchResponse struct {
	Term       string            `json:"term"`
	Origin     domain.Coordinate `json:"origin"`
	Count      int               `json:"count"`
	Facilities []facilityDTO     `json:"facilities"`
}

type favoritesResponse struct {
	Items []domain.Favorite `json:"items"`
}

type addFavoriteRequest struct {
	FacilityID string `json:"facility_id"`
	Name       string `json:"name"`
}

type submitRequestBody struct {
	FacilityID    string   `json:"facility_id"`
	FacilityName  string   `json:"facility_name"`
	FacilityLat   *float64 `json:"facility_lat"`
	FacilityLon   *float64 `json:"facility_lon"`
	Lat           *float64 `json:"lat"`
	Lon           *float64 `json:"lon"`
	PaymentMethod string   `json:"payment_method"`
	EmergencyType string   `json:"emergency_type"`
}

type updateStatusBody struct {
	Status string `json:"status"`
}

type requestsResponse struct {
	Items []domain.AmbulanceRequest `json:"items"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/facilities/search", h.searchFacilities)
	s.mux.Route("/v1/users/{userID}/favorites", func(r chi.Router) {
		r.Get("/", h.listFavorites)
		r.Post("/", h.addFavorite)
		r.Delete("/{facilityID}", h.removeFavorite)
	})
	if h.Requests != nil {
		s.mux.Route("/v1/users/{userID}/requests", func(r chi.Router) {
			r.Get("/", h.listRequests)
			r.Post("/", h.submitRequest)
			r.Get("/{requestID}", h.getRequest)
			r.Patch("/{requestID}", h.updateRequestStatus)
		})
	}
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps application errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeProblem(w, http.StatusBadRequest, "Invalid Input", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "resource not found")
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, domain.ErrTimeout):
		writeProblem(w, http.StatusGatewayTimeout, "Provider Timeout", domain.UserMessage(err))
	case errors.Is(err, domain.ErrFacilityFetchFailed):
		writeProblem(w, http.StatusBadGateway, "Provider Unavailable", domain.UserMessage(err))
	default:
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any, withETag bool) {
	etag, body := calcETagAndBody(v)
	if withETag && etag != "" {
		if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
			w.Header().Set("ETag", etag)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write response body")
	}
}

func parseOrigin(r *http.Request) (domain.Coordinate, error) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(strings.TrimSpace(q.Get("lat")), 64)
	if err != nil {
		return domain.Coordinate{}, domain.ErrInvalidInput
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(q.Get("lon")), 64)
	if err != nil {
		return domain.Coordinate{}, domain.ErrInvalidInput
	}
	return domain.Coordinate{Lat: lat, Lon: lon}, nil
}

func (h *Handlers) searchFacilities(w http.ResponseWriter, r *http.Request) {
	origin, err := parseOrigin(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Location", "lat and lon must be decimal degrees")
		return
	}
	term := r.URL.Query().Get("q")

	res := h.Facilities.SearchForUser(r.Context(), r.URL.Query().Get("user"), origin, term)
	if res.Err != nil {
		writeError(w, r, res.Err)
		return
	}

	out := searchResponse{Term: res.Term, Origin: origin, Count: len(res.Facilities), Facilities: make([]facilityDTO, 0, len(res.Facilities))}
	for _, f := range res.Facilities {
		out.Facilities = append(out.Facilities, facilityDTO{
			ID:              f.ID,
			Name:            f.Name,
			Type:            f.Type,
			Address:         f.Address,
			Lat:             f.Coordinate.Lat,
			Lon:             f.Coordinate.Lon,
			Distance:        f.Distance,
			ETAMinutes:      geo.ETAFromDistance(f.Distance, h.AverageSpeedKmh),
			PositionUnknown: f.PositionUnknown,
			Score:           f.Score,
			Rank:            f.Rank,
			Favorite:        f.Favorite,
		})
	}
	writeJSON(w, r, http.StatusOK, out, true)
}

func (h *Handlers) listFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := h.Favorites.List(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, favoritesResponse{Items: favs}, true)
}

func (h *Handlers) addFavorite(w http.ResponseWriter, r *http.Request) {
	var req addFavoriteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "expected {\"facility_id\": string, \"name\": string}")
		return
	}

	fav, err := h.Favorites.Add(r.Context(), chi.URLParam(r, "userID"), req.FacilityID, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, fav, false)
}

func (h *Handlers) removeFavorite(w http.ResponseWriter, r *http.Request) {
	err := h.Favorites.Remove(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "facilityID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (h *Handlers) submitRequest(w http.ResponseWriter, r *http.Request) {
	var body submitRequestBody
	if err := decodeBody(w, r, &body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "expected a JSON ambulance request")
		return
	}
	if body.Lat == nil || body.Lon == nil || body.FacilityLat == nil || body.FacilityLon == nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Location", "lat, lon, facility_lat and facility_lon are required")
		return
	}

	userID := chi.URLParam(r, "userID")
	req, err := h.Requests.Submit(r.Context(), userID, app.NewRequest{
		FacilityID:    body.FacilityID,
		FacilityName:  body.FacilityName,
		Destination:   domain.Coordinate{Lat: *body.FacilityLat, Lon: *body.FacilityLon},
		Pickup:        domain.Coordinate{Lat: *body.Lat, Lon: *body.Lon},
		PaymentMethod: body.PaymentMethod,
		EmergencyType: body.EmergencyType,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/users/"+userID+"/requests/"+req.ID)
	writeJSON(w, r, http.StatusCreated, req, false)
}

func (h *Handlers) listRequests(w http.ResponseWriter, r *http.Request) {
	items, err := h.Requests.List(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, requestsResponse{Items: items}, true)
}

func (h *Handlers) getRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Requests.Get(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, req, true)
}

func (h *Handlers) updateRequestStatus(w http.ResponseWriter, r *http.Request) {
	var body updateStatusBody
	if err := decodeBody(w, r, &body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "expected {\"status\": string}")
		return
	}
	req, err := h.Requests.UpdateStatus(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "requestID"), body.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, req, false)
}
