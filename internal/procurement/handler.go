package procurement

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

// Handler manages procurement endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	renderer  PDFRenderer
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, renderer PDFRenderer) *Handler {
	return &Handler{logger: logger, service: service, renderer: renderer, validator: validator.New()}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/suppliers", func(r chi.Router) {
		r.Get("/", h.listSuppliers)
		r.Post("/", h.createSupplier)
		r.Get("/{id}", h.getSupplier)
		r.Put("/{id}", h.updateSupplier)
		r.Delete("/{id}", h.deactivateSupplier)
	})
	r.Route("/lpos", func(r chi.Router) {
		r.Get("/", h.listLPOs)
		r.Post("/", h.createLPO)
		r.Get("/{id}", h.getLPO)
		r.Put("/{id}", h.updateLPO)
		r.Delete("/{id}", h.deleteLPO)
		r.Post("/{id}/submit", h.submitLPO)
		r.Post("/{id}/approve", h.approveLPO)
		r.Post("/{id}/cancel", h.cancelLPO)
		r.Post("/{id}/receive", h.receive)
		r.Get("/{id}/grns", h.listGRNs)
		r.Get("/{id}/pdf", h.renderPDF)
	})
	r.Get("/grns/{id}", h.getGRN)
}

type lpoItemRequest struct {
	InventoryItemID string          `json:"inventory_item_id"`
	Description     string          `json:"description"`
	Qty             decimal.Decimal `json:"qty"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
}

type lpoRequest struct {
	SupplierID           int64            `json:"supplier_id" validate:"required"`
	Currency             string           `json:"currency" validate:"omitempty,len=3"`
	DeliveryAddress      string           `json:"delivery_address"`
	ExpectedDeliveryDate string           `json:"expected_delivery_date" validate:"omitempty,datetime=2006-01-02"`
	PaymentTerms         string           `json:"payment_terms"`
	TaxAmount            *decimal.Decimal `json:"tax_amount"`
	TaxRate              *decimal.Decimal `json:"tax_rate"`
	DiscountAmount       decimal.Decimal  `json:"discount_amount"`
	Items                []lpoItemRequest `json:"items" validate:"required,min=1"`
}

func (req lpoRequest) toInput() (CreateLPOInput, error) {
	input := CreateLPOInput{
		SupplierID:      req.SupplierID,
		Currency:        req.Currency,
		DeliveryAddress: req.DeliveryAddress,
		PaymentTerms:    req.PaymentTerms,
		TaxAmount:       req.TaxAmount,
		TaxRate:         req.TaxRate,
		DiscountAmount:  req.DiscountAmount,
	}
	if req.ExpectedDeliveryDate != "" {
		date, err := time.Parse("2006-01-02", req.ExpectedDeliveryDate)
		if err != nil {
			return CreateLPOInput{}, err
		}
		input.ExpectedDeliveryDate = date
	}
	for _, item := range req.Items {
		in := LPOItemInput{Description: item.Description, Qty: item.Qty, UnitPrice: item.UnitPrice}
		if item.InventoryItemID != "" {
			id, err := uuid.Parse(item.InventoryItemID)
			if err != nil {
				return CreateLPOInput{}, err
			}
			in.InventoryItemID = id
		}
		input.Items = append(input.Items, in)
	}
	return input, nil
}

type lpoItemResponse struct {
	ID              int64           `json:"id"`
	InventoryItemID string          `json:"inventory_item_id,omitempty"`
	Description     string          `json:"description"`
	Qty             decimal.Decimal `json:"qty"`
	QtyReceived     decimal.Decimal `json:"qty_received"`
	Remaining       decimal.Decimal `json:"remaining"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

type lpoResponse struct {
	ID                   int64             `json:"id"`
	Number               string            `json:"lpo_number"`
	SupplierID           int64             `json:"supplier_id"`
	Status               Status            `json:"status"`
	Currency             string            `json:"currency"`
	DeliveryAddress      string            `json:"delivery_address,omitempty"`
	ExpectedDeliveryDate string            `json:"expected_delivery_date,omitempty"`
	PaymentTerms         string            `json:"payment_terms,omitempty"`
	Subtotal             decimal.Decimal   `json:"subtotal"`
	TaxAmount            decimal.Decimal   `json:"tax_amount"`
	DiscountAmount       decimal.Decimal   `json:"discount_amount"`
	GrandTotal           decimal.Decimal   `json:"grand_total"`
	CreatedBy            int64             `json:"created_by"`
	SubmittedBy          int64             `json:"submitted_by,omitempty"`
	ApprovedBy           int64             `json:"approved_by,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
	SubmittedAt          *time.Time        `json:"submitted_at,omitempty"`
	ApprovedAt           *time.Time        `json:"approved_at,omitempty"`
	Items                []lpoItemResponse `json:"items,omitempty"`
}

func toLPOResponse(o LPO, items []LPOItem) lpoResponse {
	resp := lpoResponse{
		ID:              o.ID,
		Number:          o.Number,
		SupplierID:      o.SupplierID,
		Status:          o.Status,
		Currency:        o.Currency,
		DeliveryAddress: o.DeliveryAddress,
		PaymentTerms:    o.PaymentTerms,
		Subtotal:        o.Subtotal,
		TaxAmount:       o.TaxAmount,
		DiscountAmount:  o.DiscountAmount,
		GrandTotal:      o.GrandTotal,
		CreatedBy:       o.CreatedBy,
		SubmittedBy:     o.SubmittedBy,
		ApprovedBy:      o.ApprovedBy,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if !o.ExpectedDeliveryDate.IsZero() {
		resp.ExpectedDeliveryDate = o.ExpectedDeliveryDate.Format("2006-01-02")
	}
	if !o.SubmittedAt.IsZero() {
		at := o.SubmittedAt
		resp.SubmittedAt = &at
	}
	if !o.ApprovedAt.IsZero() {
		at := o.ApprovedAt
		resp.ApprovedAt = &at
	}
	for _, item := range items {
		ir := lpoItemResponse{
			ID:          item.ID,
			Description: item.Description,
			Qty:         item.Qty,
			QtyReceived: item.QtyReceived,
			Remaining:   item.Remaining(),
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		}
		if item.InventoryItemID != uuid.Nil {
			ir.InventoryItemID = item.InventoryItemID.String()
		}
		resp.Items = append(resp.Items, ir)
	}
	return resp
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) listLPOs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	supplierID, _ := strconv.ParseInt(r.URL.Query().Get("supplier_id"), 10, 64)
	filters := ListFilters{
		Status:     r.URL.Query().Get("status"),
		SupplierID: supplierID,
		Search:     r.URL.Query().Get("search"),
	}
	orders, total, err := h.service.ListLPOs(r.Context(), limit, offset, filters)
	if err != nil {
		h.logger.Error("list lpos", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]lpoResponse, len(orders))
	for i, o := range orders {
		out[i] = toLPOResponse(o, nil)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"lpos": out, "total": total})
}

func (h *Handler) getLPO(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	order, items, err := h.service.GetLPO(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toLPOResponse(order, items))
}

func (h *Handler) createLPO(w http.ResponseWriter, r *http.Request) {
	var req lpoRequest
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
	order, items, err := h.service.CreateLPO(r.Context(), shared.IdentityFromContext(r.Context()), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toLPOResponse(order, items))
}

func (h *Handler) updateLPO(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	var req lpoRequest
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
	order, items, err := h.service.UpdateLPO(r.Context(), shared.IdentityFromContext(r.Context()), id, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toLPOResponse(order, items))
}

func (h *Handler) deleteLPO(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	if err := h.service.DeleteLPO(r.Context(), shared.IdentityFromContext(r.Context()), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(*http.Request, int64) (LPO, error)) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	order, err := fn(r, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toLPOResponse(order, nil))
}

func (h *Handler) submitLPO(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(r *http.Request, id int64) (LPO, error) {
		return h.service.SubmitLPO(r.Context(), shared.IdentityFromContext(r.Context()), id)
	})
}

func (h *Handler) approveLPO(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(r *http.Request, id int64) (LPO, error) {
		return h.service.ApproveLPO(r.Context(), shared.IdentityFromContext(r.Context()), id)
	})
}

func (h *Handler) cancelLPO(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(r *http.Request, id int64) (LPO, error) {
		return h.service.CancelLPO(r.Context(), shared.IdentityFromContext(r.Context()), id)
	})
}

type receiveLineRequest struct {
	LPOItemID int64           `json:"lpo_item_id" validate:"required"`
	Qty       decimal.Decimal `json:"qty"`
}

type receiveRequest struct {
	Reference string               `json:"reference"`
	Note      string               `json:"note"`
	Lines     []receiveLineRequest `json:"lines" validate:"required,min=1"`
}

type grnResponse struct {
	ID         int64     `json:"id"`
	LPOID      int64     `json:"lpo_id"`
	ReceivedBy int64     `json:"received_by"`
	ReceivedAt time.Time `json:"received_at"`
	Reference  string    `json:"reference,omitempty"`
	Note       string    `json:"note,omitempty"`
}

type grnItemResponse struct {
	ID          int64           `json:"id"`
	LPOItemID   int64           `json:"lpo_item_id"`
	QtyReceived decimal.Decimal `json:"qty_received"`
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	var req receiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := ReceiveInput{Reference: req.Reference, Note: req.Note}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, ReceiveLineInput{LPOItemID: line.LPOItemID, Qty: line.Qty})
	}
	grn, err := h.service.Receive(r.Context(), shared.IdentityFromContext(r.Context()), id, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, grnResponse{
		ID: grn.ID, LPOID: grn.LPOID, ReceivedBy: grn.ReceivedBy,
		ReceivedAt: grn.ReceivedAt, Reference: grn.Reference, Note: grn.Note,
	})
}

func (h *Handler) listGRNs(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	grns, err := h.service.ListGRNs(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]grnResponse, len(grns))
	for i, grn := range grns {
		out[i] = grnResponse{ID: grn.ID, LPOID: grn.LPOID, ReceivedBy: grn.ReceivedBy, ReceivedAt: grn.ReceivedAt, Reference: grn.Reference, Note: grn.Note}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"grns": out})
}

func (h *Handler) getGRN(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	grn, items, err := h.service.GetGRN(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	itemOut := make([]grnItemResponse, len(items))
	for i, item := range items {
		itemOut[i] = grnItemResponse{ID: item.ID, LPOItemID: item.LPOItemID, QtyReceived: item.QtyReceived}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"grn":   grnResponse{ID: grn.ID, LPOID: grn.LPOID, ReceivedBy: grn.ReceivedBy, ReceivedAt: grn.ReceivedAt, Reference: grn.Reference, Note: grn.Note},
		"items": itemOut,
	})
}

func (h *Handler) renderPDF(w http.ResponseWriter, r *http.Request) {
	if h.renderer == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "document rendering is not configured")
		return
	}
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	order, items, err := h.service.GetLPO(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	supplier, err := h.service.GetSupplier(r.Context(), order.SupplierID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	pdf, err := h.renderer.RenderLPO(r.Context(), order, items, supplier)
	if err != nil {
		h.logger.Error("render lpo pdf", slog.Any("error", err), slog.Int64("lpo_id", id))
		httpx.Problem(w, http.StatusBadGateway, "Render Failed", "could not render document")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+order.Number+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

type supplierRequest struct {
	Name          string `json:"name" validate:"required,min=2"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	RCNumber      string `json:"rc_number"`
	TaxID         string `json:"tax_id"`
	ContactPerson string `json:"contact_person"`
}

type supplierResponse struct {
	ID            int64     `json:"id"`
	Code          string    `json:"supplier_code"`
	Name          string    `json:"name"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Address       string    `json:"address,omitempty"`
	RCNumber      string    `json:"rc_number,omitempty"`
	TaxID         string    `json:"tax_id,omitempty"`
	ContactPerson string    `json:"contact_person,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toSupplierResponse(s Supplier) supplierResponse {
	return supplierResponse{
		ID: s.ID, Code: s.Code, Name: s.Name, Email: s.Email, Phone: s.Phone,
		Address: s.Address, RCNumber: s.RCNumber, TaxID: s.TaxID,
		ContactPerson: s.ContactPerson, IsActive: s.IsActive,
		CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt,
	}
}

func (req supplierRequest) toInput() SupplierInput {
	return SupplierInput{
		Name: req.Name, Email: req.Email, Phone: req.Phone, Address: req.Address,
		RCNumber: req.RCNumber, TaxID: req.TaxID, ContactPerson: req.ContactPerson,
	}
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	suppliers, total, err := h.service.ListSuppliers(r.Context(), limit, offset, r.URL.Query().Get("search"))
	if err != nil {
		h.logger.Error("list suppliers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]supplierResponse, len(suppliers))
	for i, s := range suppliers {
		out[i] = toSupplierResponse(s)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"suppliers": out, "total": total})
}

func (h *Handler) getSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	supplier, err := h.service.GetSupplier(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSupplierResponse(supplier))
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	supplier, err := h.service.CreateSupplier(r.Context(), req.toInput())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toSupplierResponse(supplier))
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	var req supplierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	supplier, err := h.service.UpdateSupplier(r.Context(), id, req.toInput())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSupplierResponse(supplier))
}

func (h *Handler) deactivateSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	if err := h.service.DeactivateSupplier(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
