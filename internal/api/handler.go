package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"medistore/m/internal/domain"
	"medistore/m/internal/repository"
	"medistore/m/internal/service"
	"medistore/m/internal/upload"
)

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	users         repository.UserRepository
	medicines     repository.MedicineRepository
	orders        repository.OrderRepository
	testimonials  repository.TestimonialRepository
	orderSvc      *service.OrderService
	reports       *service.ReportService
	prescriptions *upload.PrescriptionStore
	secret        string
	production    bool
	log           *zap.Logger
}

// Deps are the collaborators a Handler needs.
type Deps struct {
	Users         repository.UserRepository
	Medicines     repository.MedicineRepository
	Orders        repository.OrderRepository
	Testimonials  repository.TestimonialRepository
	OrderService  *service.OrderService
	ReportService *service.ReportService
	Prescriptions *upload.PrescriptionStore
	Secret        string
	Production    bool
	Log           *zap.Logger
}

// New constructs a Handler.
func New(d Deps) *Handler {
	return &Handler{
		users:         d.Users,
		medicines:     d.Medicines,
		orders:        d.Orders,
		testimonials:  d.Testimonials,
		orderSvc:      d.OrderService,
		reports:       d.ReportService,
		prescriptions: d.Prescriptions,
		secret:        d.Secret,
		production:    d.Production,
		log:           d.Log,
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/login", h.login)
			r.Post("/logout", h.logout)
			r.Group(func(protected chi.Router) {
				protected.Use(h.requireSession)
				protected.Get("/profile", h.profile)
				protected.Put("/medical", h.updateMedical)
				protected.Post("/reset-password", h.resetPassword)
			})
		})

		r.Route("/medicines", func(r chi.Router) {
			r.Get("/", h.listMedicines)
			r.Get("/{id}", h.getMedicine)
			r.Group(func(admin chi.Router) {
				admin.Use(h.requireAdminSession)
				admin.Post("/", h.createMedicine)
				admin.Put("/{id}", h.updateMedicine)
				admin.Delete("/{id}", h.deleteMedicine)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Group(func(user chi.Router) {
				user.Use(h.requireSession)
				user.Post("/", h.createOrder)
				user.Get("/", h.listOrders)
				user.Get("/{id}", h.getOrder)
				user.Post("/{id}/checkout", h.checkout)
				user.Post("/{id}/cancel", h.cancelOrder)
			})
			r.Group(func(shared chi.Router) {
				shared.Use(h.requireAnySession)
				shared.Put("/{id}/status", h.updateOrderStatus)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", h.adminLogin)
			r.Post("/logout", h.adminLogout)
			r.Group(func(admin chi.Router) {
				admin.Use(h.requireAdminSession)
				admin.Get("/orders", h.adminListOrders)
				admin.Get("/orders/reports", h.adminReports)
				admin.Get("/orders/{id}", h.adminGetOrder)
				admin.Post("/orders/{id}/approve", h.approveOrder)
				admin.Post("/orders/{id}/decline", h.declineOrder)
			})
		})

		r.Route("/testimonials", func(r chi.Router) {
			r.Get("/public", h.publicTestimonials)
			r.Group(func(user chi.Router) {
				user.Use(h.requireSession)
				user.Post("/", h.createTestimonial)
			})
			r.Route("/admin", func(admin chi.Router) {
				admin.Use(h.requireAdminSession)
				admin.Get("/", h.adminTestimonials)
				admin.Post("/{id}/approve", h.approveTestimonial)
				admin.Post("/{id}/reject", h.rejectTestimonial)
				admin.Delete("/{id}", h.deleteTestimonial)
			})
		})
	})

	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Auth handlers

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}
	user := &domain.User{Name: req.Name, Email: strings.ToLower(req.Email), Password: string(hashed)}
	if err := h.users.Create(r.Context(), user); err != nil {
		respondError(w, http.StatusConflict, "email already exists")
		return
	}
	if err := h.setSession(w, sessionCookie, Identity{UserID: user.ID}); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to start session")
		return
	}
	user.Password = ""
	respondJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	if err := h.setSession(w, sessionCookie, Identity{UserID: user.ID}); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to start session")
		return
	}
	user.Password = ""
	respondJSON(w, http.StatusOK, user)
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return nil, false
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return nil, false
	}
	return user, true
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	clearSession(w, sessionCookie)
	respondJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	user, err := h.users.GetByID(r.Context(), id.UserID)
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	profile, err := h.users.GetProfile(r.Context(), id.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.respondFailure(w, err)
		return
	}
	user.Password = ""
	respondJSON(w, http.StatusOK, map[string]any{"user": user, "medical_profile": profile})
}

type medicalRequest struct {
	DateOfBirth string   `json:"date_of_birth"`
	Allergies   []string `json:"allergies"`
	Conditions  []string `json:"conditions"`
	Medications []string `json:"medications"`
}

func (h *Handler) updateMedical(w http.ResponseWriter, r *http.Request) {
	var req medicalRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.DateOfBirth != "" {
		if _, err := time.Parse("2006-01-02", req.DateOfBirth); err != nil {
			respondError(w, http.StatusBadRequest, "date_of_birth must be in YYYY-MM-DD format")
			return
		}
	}
	profile := &domain.MedicalProfile{
		UserID:      identityFrom(r).UserID,
		DateOfBirth: req.DateOfBirth,
		Allergies:   req.Allergies,
		Conditions:  req.Conditions,
		Medications: req.Medications,
	}
	if err := h.users.SaveProfile(r.Context(), profile); err != nil {
		h.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.NewPassword == "" {
		respondError(w, http.StatusBadRequest, "new_password is required")
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}
	if err := h.users.UpdatePassword(r.Context(), identityFrom(r).UserID, string(hashed)); err != nil {
		h.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

// Catalog handlers

func (h *Handler) listMedicines(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	medicines, err := h.medicines.List(r.Context(), query)
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, medicines)
}

func (h *Handler) getMedicine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	med, err := h.medicines.GetByID(r.Context(), id)
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, med)
}

type medicineRequest struct {
	Name         string  `json:"name"`
	Brand        string  `json:"brand"`
	Dosage       string  `json:"dosage"`
	Category     string  `json:"category"`
	Price        float64 `json:"price"`
	Stock        int64   `json:"stock"`
	Prescription bool    `json:"prescription"`
}

func (req *medicineRequest) validate() string {
	if req.Name == "" {
		return "name is required"
	}
	if req.Price < 0 {
		return "price must not be negative"
	}
	if req.Stock < 0 {
		return "stock must not be negative"
	}
	return ""
}

func (h *Handler) createMedicine(w http.ResponseWriter, r *http.Request) {
	var req medicineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	med := &domain.Medicine{
		Name:         req.Name,
		Brand:        req.Brand,
		Dosage:       req.Dosage,
		Category:     req.Category,
		Price:        req.Price,
		Stock:        req.Stock,
		Prescription: req.Prescription,
	}
	if err := h.medicines.Create(r.Context(), med); err != nil {
		h.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, med)
}

func (h *Handler) updateMedicine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req medicineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	med := &domain.Medicine{
		ID:           id,
		Name:         req.Name,
		Brand:        req.Brand,
		Dosage:       req.Dosage,
		Category:     req.Category,
		Price:        req.Price,
		Stock:        req.Stock,
		Prescription: req.Prescription,
	}
	if err := h.medicines.Update(r.Context(), med); err != nil {
		h.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, med)
}

func (h *Handler) deleteMedicine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.medicines.Delete(r.Context(), id); err != nil {
		h.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Order handlers

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(upload.MaxPrescriptionSize + 1<<20); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	var items []service.ItemRequest
	if err := json.Unmarshal([]byte(r.FormValue("items")), &items); err != nil {
		respondError(w, http.StatusBadRequest, "items must be a JSON array of {medicine_id, quantity}")
		return
	}

	var prescriptionPath *string
	file, header, err := r.FormFile("prescription")
	if err == nil {
		defer file.Close()
		path, err := h.prescriptions.Save(file, header)
		if err != nil {
			if errors.Is(err, upload.ErrTooLarge) || errors.Is(err, upload.ErrUnsupportedType) {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			h.respondFailure(w, err)
			return
		}
		prescriptionPath = &path
	} else if !errors.Is(err, http.ErrMissingFile) {
		respondError(w, http.StatusBadRequest, "invalid prescription upload")
		return
	}

	order, err := h.orderSvc.Create(r.Context(), identityFrom(r).UserID, items, prescriptionPath)
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByUser(r.Context(), identityFrom(r).UserID)
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	order, err := h.orders.GetForUser(r.Context(), id, identityFrom(r).UserID)
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

type checkoutRequest struct {
	PaymentMethod  string `json:"payment_method"`
	DeliveryMethod string `json:"delivery_method"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.PaymentMethod == "" {
		respondError(w, http.StatusBadRequest, "payment_method is required")
		return
	}
	result, err := h.orderSvc.Checkout(r.Context(), identityFrom(r).UserID, id, req.PaymentMethod, req.DeliveryMethod)
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	result, err := h.orderSvc.Cancel(r.Context(), identityFrom(r).UserID, id, req.Reason)
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type statusRequest struct {
	Status   string `json:"status"`
	Tracking string `json:"tracking"`
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	caller := identityFrom(r)
	order, err := h.orderSvc.UpdateStatus(r.Context(), caller.UserID, caller.Admin, id, domain.OrderStatus(req.Status), req.Tracking)
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// Admin handlers

func (h *Handler) adminLogin(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	if !user.Admin {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := h.setSession(w, adminCookie, Identity{UserID: user.ID, Admin: true}); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to start session")
		return
	}
	user.Password = ""
	respondJSON(w, http.StatusOK, user)
}

func (h *Handler) adminLogout(w http.ResponseWriter, r *http.Request) {
	clearSession(w, adminCookie)
	respondJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *Handler) adminListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handler) adminGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	order, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *Handler) approveOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	order, err := h.orderSvc.Approve(r.Context(), id)
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *Handler) declineOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	order, err := h.orderSvc.Decline(r.Context(), id, req.Reason)
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *Handler) adminReports(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reports.Summary(r.Context())
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// Testimonial handlers

func (h *Handler) publicTestimonials(w http.ResponseWriter, r *http.Request) {
	testimonials, err := h.testimonials.ListPublic(r.Context())
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, testimonials)
}

type testimonialRequest struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

func (h *Handler) createTestimonial(w http.ResponseWriter, r *http.Request) {
	var req testimonialRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Content == "" {
		respondError(w, http.StatusBadRequest, "content is required")
		return
	}
	t := &domain.Testimonial{
		UserID:  identityFrom(r).UserID,
		Author:  req.Author,
		Content: req.Content,
	}
	if err := h.testimonials.Create(r.Context(), t); err != nil {
		h.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

func (h *Handler) adminTestimonials(w http.ResponseWriter, r *http.Request) {
	testimonials, err := h.testimonials.ListAll(r.Context())
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, testimonials)
}

func (h *Handler) approveTestimonial(w http.ResponseWriter, r *http.Request) {
	h.moderateTestimonial(w, r, domain.TestimonialApproved)
}

func (h *Handler) rejectTestimonial(w http.ResponseWriter, r *http.Request) {
	h.moderateTestimonial(w, r, domain.TestimonialRejected)
}

func (h *Handler) moderateTestimonial(w http.ResponseWriter, r *http.Request, status domain.TestimonialStatus) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.testimonials.SetStatus(r.Context(), id, status); err != nil {
		h.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

func (h *Handler) deleteTestimonial(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.testimonials.Delete(r.Context(), id); err != nil {
		h.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Helpers

// respondFailure maps domain and storage failures onto the error taxonomy:
// validation and state conflicts are 400, unknown or foreign entities are
// 404, everything unexpected is 500 with detail withheld in production.
func (h *Handler) respondFailure(w http.ResponseWriter, err error) {
	var stockErr *repository.InsufficientStockError
	var stateErr *service.StateConflictError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.As(err, &stockErr):
		respondError(w, http.StatusBadRequest, stockErr.Error())
	case errors.As(err, &stateErr):
		respondError(w, http.StatusBadRequest, stateErr.Error())
	case errors.Is(err, service.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrPrescriptionRequired):
		respondError(w, http.StatusBadRequest, "a prescription file is required for one or more items")
	case errors.Is(err, service.ErrPaymentFailed):
		respondError(w, http.StatusBadRequest, "payment failed, order unchanged")
	default:
		h.log.Error("request failed", zap.Error(err))
		if h.production {
			respondError(w, http.StatusInternalServerError, "internal error")
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
