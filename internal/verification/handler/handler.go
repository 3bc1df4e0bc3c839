package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"jojo/internal/verification/models"
	"jojo/internal/verification/service"
	id "jojo/pkg/domain"
	"jojo/pkg/platform/httputil"
	"jojo/pkg/platform/middleware/request"
	"jojo/pkg/requestcontext"
)

// Service is the verification workflow as seen by the transport.
type Service interface {
	Initialize(ctx context.Context, instructorID id.UserID, email string, req *models.InitializeRequest) (*models.InitializeResponse, error)
	SendEmailCode(ctx context.Context, instructorID id.UserID) (*models.SendCodeResponse, error)
	VerifyEmailCode(ctx context.Context, instructorID id.UserID, req *models.VerifyCodeRequest) (*models.StepResponse, error)
	SendPhoneCode(ctx context.Context, instructorID id.UserID) (*models.SendCodeResponse, error)
	VerifyPhoneCode(ctx context.Context, instructorID id.UserID, req *models.VerifyCodeRequest) (*models.StepResponse, error)
	SubmitPersonalInfo(ctx context.Context, instructorID id.UserID, req *models.PersonalInfoRequest) (*models.StepResponse, error)
	UploadIDDocument(ctx context.Context, instructorID id.UserID, req *models.IDDocumentRequest, front service.File, back *service.File) (*models.StepResponse, error)
	UploadSelfie(ctx context.Context, instructorID id.UserID, image service.File) (*models.StepResponse, error)
	UploadCertificate(ctx context.Context, instructorID id.UserID, req *models.CertificateRequest, document service.File) (*models.StepResponse, error)
	Submit(ctx context.Context, instructorID id.UserID) (*models.StepResponse, error)
	Status(ctx context.Context, instructorID id.UserID) (*models.StatusResponse, error)
}

// AdminService is the review workflow as seen by the transport.
type AdminService interface {
	List(ctx context.Context, filter models.ListFilter) (*models.ListResponse, error)
	Get(ctx context.Context, recordID id.VerificationID) (*models.DetailResponse, error)
	History(ctx context.Context, recordID id.VerificationID) (*models.HistoryResponse, error)
	ReviewCertificate(ctx context.Context, reviewer id.UserID, recordID id.VerificationID, certID id.CertificateID, req *models.CertificateReviewRequest) (*models.CertificateReviewResponse, error)
	Approve(ctx context.Context, reviewer id.UserID, recordID id.VerificationID, req *models.ApproveRequest) (*models.DecisionResponse, error)
	Reject(ctx context.Context, reviewer id.UserID, recordID id.VerificationID, req *models.RejectRequest) (*models.DecisionResponse, error)
	RequestInfo(ctx context.Context, reviewer id.UserID, recordID id.VerificationID, req *models.RequestInfoRequest) (*models.DecisionResponse, error)
	Suspend(ctx context.Context, reviewer id.UserID, recordID id.VerificationID, req *models.SuspendRequest) (*models.DecisionResponse, error)
	ResetLimits(ctx context.Context, recordID id.VerificationID) (*models.MessageResponse, error)
}

const (
	defaultJSONLimit   = 1 << 20
	defaultUploadLimit = 10 << 20
)

type Handler struct {
	service     Service
	admin       AdminService
	logger      *slog.Logger
	jsonLimit   int64
	uploadLimit int64
}

type Option func(*Handler)

// WithJSONLimit caps JSON request bodies.
func WithJSONLimit(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.jsonLimit = n
		}
	}
}

// WithUploadLimit caps each uploaded file.
func WithUploadLimit(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.uploadLimit = n
		}
	}
}

func New(svc Service, admin AdminService, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service:     svc,
		admin:       admin,
		logger:      logger,
		jsonLimit:   defaultJSONLimit,
		uploadLimit: defaultUploadLimit,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterInstructor mounts the instructor wizard routes. Callers are
// expected to have authenticated the request and checked the instructor role.
func (h *Handler) RegisterInstructor(r chi.Router) {
	r.Route("/teacher/verification", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(request.BodyLimit(h.jsonLimit))
			r.Post("/initialize", h.HandleInitialize)
			r.Post("/email/send-code", h.HandleSendEmailCode)
			r.Post("/email/verify", h.HandleVerifyEmailCode)
			r.Post("/phone/send-code", h.HandleSendPhoneCode)
			r.Post("/phone/verify", h.HandleVerifyPhoneCode)
			r.Post("/personal-info", h.HandlePersonalInfo)
			r.Post("/submit", h.HandleSubmit)
			r.Get("/status", h.HandleStatus)
		})
		r.Group(func(r chi.Router) {
			// front + back plus form fields
			r.Use(request.BodyLimit(2*h.uploadLimit + h.jsonLimit))
			r.Post("/id-documents", h.HandleUploadIDDocument)
			r.Post("/selfie", h.HandleUploadSelfie)
			r.Post("/education-certificate", h.HandleUploadCertificate)
		})
	})
}

// HandleInitialize implements POST /teacher/verification/initialize.
// Returns 201 for a new record and 200 when one already exists.
func (h *Handler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	principal, err := httputil.RequirePrincipal(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.InitializeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.Initialize(ctx, principal.UserID, principal.Email, req)
	if err != nil {
		h.fail(ctx, w, "failed to initialize verification", err)
		return
	}
	status := http.StatusCreated
	if res.AlreadyInitialized {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, res)
}

func (h *Handler) HandleSendEmailCode(w http.ResponseWriter, r *http.Request) {
	h.sendCode(w, r, h.service.SendEmailCode)
}

func (h *Handler) HandleSendPhoneCode(w http.ResponseWriter, r *http.Request) {
	h.sendCode(w, r, h.service.SendPhoneCode)
}

func (h *Handler) HandleVerifyEmailCode(w http.ResponseWriter, r *http.Request) {
	h.verifyCode(w, r, h.service.VerifyEmailCode)
}

func (h *Handler) HandleVerifyPhoneCode(w http.ResponseWriter, r *http.Request) {
	h.verifyCode(w, r, h.service.VerifyPhoneCode)
}

func (h *Handler) sendCode(w http.ResponseWriter, r *http.Request,
	send func(context.Context, id.UserID) (*models.SendCodeResponse, error)) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	principal, err := httputil.RequirePrincipal(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := send(ctx, principal.UserID)
	if err != nil {
		h.fail(ctx, w, "failed to send verification code", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) verifyCode(w http.ResponseWriter, r *http.Request,
	verify func(context.Context, id.UserID, *models.VerifyCodeRequest) (*models.StepResponse, error)) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	principal, err := httputil.RequirePrincipal(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.VerifyCodeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, err := verify(ctx, principal.UserID, req)
	if err != nil {
		h.fail(ctx, w, "failed to verify code", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandlePersonalInfo implements POST /teacher/verification/personal-info.
func (h *Handler) HandlePersonalInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	principal, err := httputil.RequirePrincipal(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.PersonalInfoRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, err := h.service.SubmitPersonalInfo(ctx, principal.UserID, req)
	if err != nil {
		h.fail(ctx, w, "failed to save personal info", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleUploadIDDocument implements POST /teacher/verification/id-documents.
// Multipart fields: documentType, frontImage, backImage (optional).
func (h *Handler) HandleUploadIDDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	principal, err := httputil.RequirePrincipal(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.parseMultipart(r); err != nil {
		h.reject(ctx, w, err)
		return
	}
	defer cleanupMultipart(r)

	req := &models.IDDocumentRequest{DocumentType: r.FormValue("documentType")}
	if err := httputil.PrepareRequest(req); err != nil {
		h.reject(ctx, w, err)
		return
	}
	front, err := h.readFile(r, "frontImage", imageTypes, true)
	if err != nil {
		h.reject(ctx, w, err)
		return
	}
	back, err := h.readFile(r, "backImage", imageTypes, false)
	if err != nil {
		h.reject(ctx, w, err)
		return
	}

	res, err := h.service.UploadIDDocument(ctx, principal.UserID, req, *front, back)
	if err != nil {
		h.fail(ctx, w, "failed to upload ID document", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleUploadSelfie implements POST /teacher/verification/selfie.
func (h *Handler) HandleUploadSelfie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	principal, err := httputil.RequirePrincipal(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.parseMultipart(r); err != nil {
		h.reject(ctx, w, err)
		return
	}
	defer cleanupMultipart(r)

	image, err := h.readFile(r, "selfie", imageTypes, true)
	if err != nil {
		h.reject(ctx, w, err)
		return
	}
	res, err := h.service.UploadSelfie(ctx, principal.UserID, *image)
	if err != nil {
		h.fail(ctx, w, "failed to upload selfie", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleUploadCertificate implements POST /teacher/verification/education-certificate.
// Multipart fields: certificateType, institution, fieldOfStudy, graduationYear,
// gpa (optional), certificateDocument.
func (h *Handler) HandleUploadCertificate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	principal, err := httputil.RequirePrincipal(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.parseMultipart(r); err != nil {
		h.reject(ctx, w, err)
		return
	}
	defer cleanupMultipart(r)

	req := &models.CertificateRequest{
		CertificateType: r.FormValue("certificateType"),
		Institution:     r.FormValue("institution"),
		FieldOfStudy:    r.FormValue("fieldOfStudy"),
		GraduationYear:  r.FormValue("graduationYear"),
		GPA:             r.FormValue("gpa"),
	}
	if err := httputil.PrepareRequest(req); err != nil {
		h.reject(ctx, w, err)
		return
	}
	doc, err := h.readFile(r, "certificateDocument", documentTypes, true)
	if err != nil {
		h.reject(ctx, w, err)
		return
	}

	res, err := h.service.UploadCertificate(ctx, principal.UserID, req, *doc)
	if err != nil {
		h.fail(ctx, w, "failed to upload certificate", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleSubmit implements POST /teacher/verification/submit.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	principal, err := httputil.RequirePrincipal(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.Submit(ctx, principal.UserID)
	if err != nil {
		h.fail(ctx, w, "failed to submit verification", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleStatus implements GET /teacher/verification/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	principal, err := httputil.RequirePrincipal(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.Status(ctx, principal.UserID)
	if err != nil {
		h.fail(ctx, w, "failed to load verification status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// fail logs a service error at a level matching its code and writes it.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	status := httputil.DomainCodeToHTTPStatus(codeOf(err))
	attrs := []any{"error", err, "status", status, "request_id", requestcontext.RequestID(ctx)}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}

// reject logs and writes an input error found before the service was called.
func (h *Handler) reject(ctx context.Context, w http.ResponseWriter, err error) {
	h.logger.WarnContext(ctx, "invalid request",
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteError(w, err)
}
