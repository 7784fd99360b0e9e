package queue

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/medisync/clinic-queue/internal/model"
	"github.com/medisync/clinic-queue/internal/scheduler"
	apperrors "github.com/medisync/clinic-queue/pkg/errors"
	"github.com/medisync/clinic-queue/pkg/httputil"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("contact", model.ValidContact)
	}
}

type Handler struct {
	scheduler *scheduler.Scheduler
}

func NewHandler(s *scheduler.Scheduler) *Handler {
	return &Handler{scheduler: s}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	queue := r.Group("/queue")
	{
		queue.POST("/book", h.Book)
		queue.GET("", h.Snapshot)
		queue.GET("/stats", h.Stats)
		queue.POST("/optimize", h.Optimize)
	}

	patients := r.Group("/patients")
	{
		patients.GET("/:token", h.GetPatient)
		patients.GET("/:token/position", h.GetPosition)
		patients.GET("/:token/eta", h.GetETA)
		patients.PUT("/:token/location", h.UpdateLocation)
		patients.POST("/:token/start", h.StartConsultation)
		patients.POST("/:token/complete", h.Complete)
		patients.POST("/:token/cancel", h.Cancel)
		patients.POST("/:token/no-show", h.MarkNoShow)
	}
}

func (h *Handler) Book(c *gin.Context) {
	var intake model.PatientIntake
	if err := c.ShouldBindJSON(&intake); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	result, _, err := h.scheduler.Book(c.Request.Context(), &intake)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, result)
}

func (h *Handler) Snapshot(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.scheduler.Snapshot())
}

func (h *Handler) Stats(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.scheduler.Stats())
}

func (h *Handler) Optimize(c *gin.Context) {
	changes := h.scheduler.Optimize(c.Request.Context(), "manual")
	httputil.RespondWithSuccess(c, gin.H{"rank_changes": changes})
}

func (h *Handler) GetPatient(c *gin.Context) {
	token, ok := h.token(c)
	if !ok {
		return
	}
	p, err := h.scheduler.Patient(c.Request.Context(), token)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) GetPosition(c *gin.Context) {
	token, ok := h.token(c)
	if !ok {
		return
	}
	pos, err := h.scheduler.Position(c.Request.Context(), token)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, pos)
}

func (h *Handler) GetETA(c *gin.Context) {
	token, ok := h.token(c)
	if !ok {
		return
	}
	summary, err := h.scheduler.ETA(c.Request.Context(), token)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, summary)
}

func (h *Handler) UpdateLocation(c *gin.Context) {
	token, ok := h.token(c)
	if !ok {
		return
	}
	var req model.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	summary, _, err := h.scheduler.UpdateLocation(c.Request.Context(), token, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, summary)
}

func (h *Handler) StartConsultation(c *gin.Context) {
	token, ok := h.token(c)
	if !ok {
		return
	}
	p, _, err := h.scheduler.StartConsultation(c.Request.Context(), token)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) Complete(c *gin.Context) {
	token, ok := h.token(c)
	if !ok {
		return
	}
	p, _, err := h.scheduler.Complete(c.Request.Context(), token)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) Cancel(c *gin.Context) {
	token, ok := h.token(c)
	if !ok {
		return
	}
	var req model.CancelRequest
	// Reason is optional; an empty body is fine.
	_ = c.ShouldBindJSON(&req)

	p, _, err := h.scheduler.Cancel(c.Request.Context(), token, req.Reason)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) MarkNoShow(c *gin.Context) {
	token, ok := h.token(c)
	if !ok {
		return
	}
	p, _, err := h.scheduler.MarkNoShow(c.Request.Context(), token)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) token(c *gin.Context) (int, bool) {
	token, err := strconv.Atoi(c.Param("token"))
	if err != nil || token < 1 {
		httputil.RespondWithError(c, apperrors.Validation("invalid token", err))
		return 0, false
	}
	return token, true
}
