package inventory

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sacsol/sacsol-api/internal/platform/httpx"
	"github.com/sacsol/sacsol-api/internal/shared"
)

// Handler manages inventory endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/entries", func(r chi.Router) {
		r.Get("/", h.listEntries)
		r.Post("/", h.createEntry)
		r.Get("/{id}", h.getEntry)
		r.Put("/{id}", h.updateEntry)
		r.Delete("/{id}", h.deleteEntry)
	})
}

type entryRequest struct {
	EntryDate          string          `json:"entry_date" validate:"omitempty,datetime=2006-01-02"`
	CustomerName       string          `json:"customer_name"`
	MineralOrEquipment string          `json:"mineral_or_equipment"`
	Description        string          `json:"description"`
	SupplierAgent      string          `json:"supplier_agent"`
	TruckRegistration  string          `json:"truck_registration" validate:"required"`
	Status             string          `json:"status" validate:"omitempty,oneof=pending in_transit delivered rejected"`
	DriverName         string          `json:"driver_name"`
	DriverPhone        string          `json:"driver_phone"`
	Quantity           decimal.Decimal `json:"quantity"`
	Unit               string          `json:"unit"`
	Origin             string          `json:"origin"`
	Destination        string          `json:"destination"`
	GrossWeight        decimal.Decimal `json:"gross_weight"`
	TareWeight         decimal.Decimal `json:"tare_weight"`
}

func (req entryRequest) toInput() (EntryInput, error) {
	input := EntryInput{
		CustomerName:       req.CustomerName,
		MineralOrEquipment: req.MineralOrEquipment,
		Description:        req.Description,
		SupplierAgent:      req.SupplierAgent,
		TruckRegistration:  req.TruckRegistration,
		Status:             Status(req.Status),
		DriverName:         req.DriverName,
		DriverPhone:        req.DriverPhone,
		Quantity:           req.Quantity,
		Unit:               req.Unit,
		Origin:             req.Origin,
		Destination:        req.Destination,
		GrossWeight:        req.GrossWeight,
		TareWeight:         req.TareWeight,
	}
	if req.EntryDate != "" {
		date, err := time.Parse("2006-01-02", req.EntryDate)
		if err != nil {
			return EntryInput{}, err
		}
		input.EntryDate = date
	}
	return input, nil
}

type entryResponse struct {
	ID                 string          `json:"id"`
	EntryDate          string          `json:"entry_date"`
	CustomerName       string          `json:"customer_name,omitempty"`
	MineralOrEquipment string          `json:"mineral_or_equipment,omitempty"`
	Description        string          `json:"description,omitempty"`
	SupplierAgent      string          `json:"supplier_agent,omitempty"`
	TruckRegistration  string          `json:"truck_registration"`
	Status             Status          `json:"status"`
	DriverName         string          `json:"driver_name,omitempty"`
	DriverPhone        string          `json:"driver_phone,omitempty"`
	Quantity           decimal.Decimal `json:"quantity"`
	Unit               string          `json:"unit"`
	Origin             string          `json:"origin,omitempty"`
	Destination        string          `json:"destination,omitempty"`
	GrossWeight        decimal.Decimal `json:"gross_weight"`
	TareWeight         decimal.Decimal `json:"tare_weight"`
	NetWeight          decimal.Decimal `json:"net_weight"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func toEntryResponse(e Entry) entryResponse {
	return entryResponse{
		ID:                 e.ID.String(),
		EntryDate:          e.EntryDate.Format("2006-01-02"),
		CustomerName:       e.CustomerName,
		MineralOrEquipment: e.MineralOrEquipment,
		Description:        e.Description,
		SupplierAgent:      e.SupplierAgent,
		TruckRegistration:  e.TruckRegistration,
		Status:             e.Status,
		DriverName:         e.DriverName,
		DriverPhone:        e.DriverPhone,
		Quantity:           e.Quantity,
		Unit:               e.Unit,
		Origin:             e.Origin,
		Destination:        e.Destination,
		GrossWeight:        e.GrossWeight,
		TareWeight:         e.TareWeight,
		NetWeight:          e.NetWeight,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
}

func entryID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	filters := ListFilters{
		Status: Status(r.URL.Query().Get("status")),
		Truck:  r.URL.Query().Get("truck"),
		Search: r.URL.Query().Get("search"),
	}
	entries, total, err := h.service.ListEntries(r.Context(), limit, offset, filters)
	if err != nil {
		h.logger.Error("list inventory entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]entryResponse, len(entries))
	for i, e := range entries {
		out[i] = toEntryResponse(e)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": out, "total": total})
}

func (h *Handler) getEntry(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	entry, err := h.service.GetEntry(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) createEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input, err := req.toInput()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var actorID int64
	if identity := shared.IdentityFromContext(r.Context()); identity != nil {
		actorID = identity.UserID
	}
	entry, err := h.service.CreateEntry(r.Context(), actorID, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (h *Handler) updateEntry(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	var req entryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input, err := req.toInput()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entry, err := h.service.UpdateEntry(r.Context(), id, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	if err := h.service.DeleteEntry(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
