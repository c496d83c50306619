package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cinebook/seat-reservation/internal/catalog"
	"github.com/cinebook/seat-reservation/internal/domain"
)

type ReservationService interface {
	Create(ctx context.Context, seatID, userID uuid.UUID) (*domain.Reservation, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Reservation, error)
}

type SettlementService interface {
	Confirm(ctx context.Context, reservationID uuid.UUID) (*domain.Sale, error)
}

type CatalogService interface {
	CreateSession(ctx context.Context, movie, room string, startsAt time.Time, ticketPrice float64, totalSeats int) (*domain.Session, error)
	FindAll(ctx context.Context) ([]domain.Session, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	ListSeats(ctx context.Context, sessionID uuid.UUID) ([]catalog.SeatView, error)
}

type SaleService interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]domain.SaleDetail, error)
}

type Handlers struct {
	reservations ReservationService
	settlement   SettlementService
	catalog      CatalogService
	sales        SaleService
	ready        func(ctx context.Context) error
}

func NewHandlers(reservations ReservationService, settlement SettlementService, catalog CatalogService, sales SaleService, ready func(ctx context.Context) error) *Handlers {
	return &Handlers{
		reservations: reservations,
		settlement:   settlement,
		catalog:      catalog,
		sales:        sales,
		ready:        ready,
	}
}

type reservationResponse struct {
	ID        uuid.UUID `json:"id"`
	SeatID    uuid.UUID `json:"seatId"`
	UserID    uuid.UUID `json:"userId"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

func toReservationResponse(r domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:        r.ID,
		SeatID:    r.SeatID,
		UserID:    r.UserID,
		Status:    string(r.Status),
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt,
	}
}

type saleResponse struct {
	ID            uuid.UUID `json:"id"`
	ReservationID uuid.UUID `json:"reservationId"`
	SeatID        uuid.UUID `json:"seatId"`
	UserID        uuid.UUID `json:"userId"`
	PaidAt        time.Time `json:"paidAt"`
}

type seatResponse struct {
	ID         uuid.UUID `json:"id"`
	SeatNumber string    `json:"seatNumber"`
	Status     string    `json:"status"`
	IsLocked   bool      `json:"isLocked"`
}

type sessionResponse struct {
	ID          uuid.UUID      `json:"id"`
	Movie       string         `json:"movie"`
	Room        string         `json:"room"`
	StartsAt    time.Time      `json:"startsAt"`
	TicketPrice float64        `json:"ticketPrice"`
	CreatedAt   time.Time      `json:"createdAt"`
	Seats       []seatResponse `json:"seats,omitempty"`
}

func toSessionResponse(s domain.Session) sessionResponse {
	resp := sessionResponse{
		ID:          s.ID,
		Movie:       s.Movie,
		Room:        s.Room,
		StartsAt:    s.StartsAt,
		TicketPrice: s.TicketPrice,
		CreatedAt:   s.CreatedAt,
	}
	for _, seat := range s.Seats {
		resp.Seats = append(resp.Seats, seatResponse{
			ID:         seat.ID,
			SeatNumber: seat.SeatNumber,
			Status:     string(seat.Status),
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrSerializationFailure):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrGone):
		status = http.StatusGone
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handlers) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SeatID uuid.UUID `json:"seatId"`
		UserID uuid.UUID `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(domain.ErrInvalidInput, "invalid request body"))
		return
	}
	if req.SeatID == uuid.Nil || req.UserID == uuid.Nil {
		writeError(w, errors.Wrap(domain.ErrInvalidInput, "seatId and userId are required"))
		return
	}

	res, err := h.reservations.Create(r.Context(), req.SeatID, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReservationResponse(*res))
}

func (h *Handlers) GetReservation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid reservation id"})
		return
	}
	res, err := h.reservations.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(*res))
}

func (h *Handlers) ListUserReservations(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return
	}
	reservations, err := h.reservations.FindByUserID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]reservationResponse, 0, len(reservations))
	for _, res := range reservations {
		resp = append(resp, toReservationResponse(res))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "reservationId"))
	if err != nil {
		writeError(w, errors.Wrap(domain.ErrInvalidInput, "invalid reservation id"))
		return
	}
	sale, err := h.settlement.Confirm(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saleResponse{
		ID:            sale.ID,
		ReservationID: sale.ReservationID,
		SeatID:        sale.SeatID,
		UserID:        sale.UserID,
		PaidAt:        sale.PaidAt,
	})
}

func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Movie       string    `json:"movie"`
		Room        string    `json:"room"`
		StartsAt    time.Time `json:"startsAt"`
		TicketPrice float64   `json:"ticketPrice"`
		TotalSeats  int       `json:"totalSeats"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(domain.ErrInvalidInput, "invalid request body"))
		return
	}
	session, err := h.catalog.CreateSession(r.Context(), req.Movie, req.Room, req.StartsAt, req.TicketPrice, req.TotalSeats)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(*session))
}

func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.catalog.FindAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, toSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}
	session, err := h.catalog.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(*session))
}

func (h *Handlers) ListSessionSeats(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}
	seats, err := h.catalog.ListSeats(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]seatResponse, 0, len(seats))
	for _, seat := range seats {
		resp = append(resp, seatResponse{
			ID:         seat.ID,
			SeatNumber: seat.SeatNumber,
			Status:     string(seat.Status),
			IsLocked:   seat.IsLocked,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) ListUserSales(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return
	}
	sales, err := h.sales.FindByUserID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	type saleDetailResponse struct {
		saleResponse
		SeatNumber  string    `json:"seatNumber"`
		Movie       string    `json:"movie"`
		Room        string    `json:"room"`
		StartsAt    time.Time `json:"startsAt"`
		TicketPrice float64   `json:"ticketPrice"`
	}
	resp := make([]saleDetailResponse, 0, len(sales))
	for _, s := range sales {
		resp = append(resp, saleDetailResponse{
			saleResponse: saleResponse{
				ID:            s.ID,
				ReservationID: s.ReservationID,
				SeatID:        s.SeatID,
				UserID:        s.UserID,
				PaidAt:        s.PaidAt,
			},
			SeatNumber:  s.SeatNumber,
			Movie:       s.Movie,
			Room:        s.Room,
			StartsAt:    s.StartsAt,
			TicketPrice: s.TicketPrice,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
