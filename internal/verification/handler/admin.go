package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"jojo/internal/verification/models"
	id "jojo/pkg/domain"
	"jojo/pkg/platform/httputil"
	"jojo/pkg/platform/middleware/request"
	"jojo/pkg/requestcontext"
)

// RegisterAdmin mounts the review routes. Callers are expected to have
// checked the admin role.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Route("/admin/instructor-verifications", func(r chi.Router) {
		r.Use(request.BodyLimit(h.jsonLimit))
		r.Get("/", h.HandleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Get("/history", h.HandleHistory)
			r.Put("/approve", h.HandleApprove)
			r.Put("/reject", h.HandleReject)
			r.Put("/request-info", h.HandleRequestInfo)
			r.Put("/suspend", h.HandleSuspend)
			r.Post("/reset-limits", h.HandleResetLimits)
			r.Put("/certificates/{certId}/verify", h.HandleReviewCertificate)
		})
	})
}

// HandleList implements GET /admin/instructor-verifications.
// Query: status, educationStatus, page, limit, sort, order.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter, err := models.ParseListFilter(q.Get("status"), q.Get("educationStatus"),
		q.Get("page"), q.Get("limit"), q.Get("sort"), q.Get("order"))
	if err != nil {
		h.reject(ctx, w, err)
		return
	}
	res, err := h.admin.List(ctx, filter)
	if err != nil {
		h.fail(ctx, w, "failed to list verifications", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID, err := id.ParseVerificationID(chi.URLParam(r, "id"))
	if err != nil {
		h.reject(ctx, w, err)
		return
	}
	res, err := h.admin.Get(ctx, recordID)
	if err != nil {
		h.fail(ctx, w, "failed to load verification", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID, err := id.ParseVerificationID(chi.URLParam(r, "id"))
	if err != nil {
		h.reject(ctx, w, err)
		return
	}
	res, err := h.admin.History(ctx, recordID)
	if err != nil {
		h.fail(ctx, w, "failed to load verification history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleReviewCertificate implements
// PUT /admin/instructor-verifications/{id}/certificates/{certId}/verify.
func (h *Handler) HandleReviewCertificate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	reviewer, recordID, ok := h.decisionTarget(w, r)
	if !ok {
		return
	}
	certID, err := id.ParseCertificateID(chi.URLParam(r, "certId"))
	if err != nil {
		h.reject(ctx, w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.CertificateReviewRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, err := h.admin.ReviewCertificate(ctx, reviewer, recordID, certID, req)
	if err != nil {
		h.fail(ctx, w, "failed to review certificate", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	decide(h, w, r, "approve", h.admin.Approve)
}

func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	decide(h, w, r, "reject", h.admin.Reject)
}

func (h *Handler) HandleRequestInfo(w http.ResponseWriter, r *http.Request) {
	decide(h, w, r, "request info", h.admin.RequestInfo)
}

func (h *Handler) HandleSuspend(w http.ResponseWriter, r *http.Request) {
	decide(h, w, r, "suspend", h.admin.Suspend)
}

// HandleResetLimits implements POST /admin/instructor-verifications/{id}/reset-limits.
func (h *Handler) HandleResetLimits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID, err := id.ParseVerificationID(chi.URLParam(r, "id"))
	if err != nil {
		h.reject(ctx, w, err)
		return
	}
	res, err := h.admin.ResetLimits(ctx, recordID)
	if err != nil {
		h.fail(ctx, w, "failed to reset code limits", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// decide runs one admin decision with a JSON body of type T.
func decide[T any](h *Handler, w http.ResponseWriter, r *http.Request, action string,
	apply func(context.Context, id.UserID, id.VerificationID, *T) (*models.DecisionResponse, error)) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	reviewer, recordID, ok := h.decisionTarget(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[T](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, err := apply(ctx, reviewer, recordID, req)
	if err != nil {
		h.fail(ctx, w, "failed to "+action+" verification", err)
		return
	}
	h.logger.InfoContext(ctx, "verification decision recorded",
		"action", action,
		"verification_id", recordID.String(),
		"reviewer_id", reviewer.String(),
		"notified", res.Notified,
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusOK, res)
}

// decisionTarget resolves the acting admin and the record from the path.
func (h *Handler) decisionTarget(w http.ResponseWriter, r *http.Request) (id.UserID, id.VerificationID, bool) {
	ctx := r.Context()
	principal, err := httputil.RequirePrincipal(ctx, h.logger, requestcontext.RequestID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return id.UserID{}, id.VerificationID{}, false
	}
	recordID, err := id.ParseVerificationID(chi.URLParam(r, "id"))
	if err != nil {
		h.reject(ctx, w, err)
		return id.UserID{}, id.VerificationID{}, false
	}
	return principal.UserID, recordID, true
}
