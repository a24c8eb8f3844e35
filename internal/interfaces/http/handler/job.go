package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CarsonReik/Compr-sub000/internal/application/crosslist"
	"github.com/CarsonReik/Compr-sub000/internal/domain/job"
	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
	"github.com/CarsonReik/Compr-sub000/internal/interfaces/http/dto"
	"github.com/CarsonReik/Compr-sub000/internal/interfaces/http/middleware"
)

// JobHandler handles job submission, status and resume endpoints
type JobHandler struct {
	BaseHandler
	service *crosslist.Service
	logger  *zap.Logger
}

// NewJobHandler creates a new JobHandler
func NewJobHandler(service *crosslist.Service, logger *zap.Logger) *JobHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobHandler{
		service: service,
		logger:  logger.Named("http.jobs"),
	}
}

// Enqueue godoc
// @ID           enqueueJob
// @Summary      Enqueue a crosslisting job
// @Description  Submit a create or delete job for a listing on one platform
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string true "Caller user ID" format(uuid)
// @Param        request body dto.EnqueueJobRequest true "Job payload"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /jobs [post]
func (h *JobHandler) Enqueue(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Missing or invalid user identity")
		return
	}

	var req dto.EnqueueJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	jobID, reqUserID, listingID, item, err := req.ToDomain()
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if reqUserID != userID {
		h.Unauthorized(c, "Payload user does not match caller identity")
		return
	}

	j, err := h.service.Enqueue(c.Request.Context(), crosslist.EnqueueRequest{
		JobID:                jobID,
		UserID:               userID,
		ListingID:            listingID,
		Platform:             platform.Code(req.Platform),
		Operation:            job.Operation(req.Operation),
		Listing:              item,
		EncryptedCredentials: req.EncryptedCredentials,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, dto.JobResponseFromDomain(j))
}

// Get godoc
// @ID           getJob
// @Summary      Get job by ID
// @Description  Retrieve a job in its current state
// @Tags         jobs
// @Produce      json
// @Param        id path string true "Job ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /jobs/{id} [get]
func (h *JobHandler) Get(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	j, err := h.service.Get(c.Request.Context(), jobID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.JobResponseFromDomain(j))
}

// Result godoc
// @ID           getJobResult
// @Summary      Get job result
// @Description  Retrieve the outcome view of a job for callers polling completion
// @Tags         jobs
// @Produce      json
// @Param        id path string true "Job ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /jobs/{id}/result [get]
func (h *JobHandler) Result(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	result, err := h.service.Result(c.Request.Context(), jobID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.ResultResponseFromDomain(result))
}

// Resume godoc
// @ID           resumeJob
// @Summary      Resume a parked job
// @Description  Requeue a job parked for verification after the seller
// @Description  completed the platform's challenge
// @Tags         jobs
// @Produce      json
// @Param        id path string true "Job ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /jobs/{id}/resume [post]
func (h *JobHandler) Resume(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	j, err := h.service.Resume(c.Request.Context(), jobID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("job resumed via api", zap.String("job_id", jobID.String()))
	h.Success(c, dto.JobResponseFromDomain(j))
}

// Stats godoc
// @ID           getQueueStats
// @Summary      Queue statistics
// @Description  Job counts grouped by status
// @Tags         jobs
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /jobs/stats [get]
func (h *JobHandler) Stats(c *gin.Context) {
	counts, err := h.service.QueueStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.QueueStatsResponseFromDomain(counts))
}

// Platforms godoc
// @ID           listPlatforms
// @Summary      List supported platforms
// @Tags         jobs
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /platforms [get]
func (h *JobHandler) Platforms(c *gin.Context) {
	codes := h.service.Platforms()
	out := make([]string, len(codes))
	for i, code := range codes {
		out[i] = code.String()
	}
	h.Success(c, gin.H{"platforms": out})
}

// jobID parses the :id path parameter, replying 400 on malformed input
func (h *JobHandler) jobID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid job ID")
		return uuid.Nil, false
	}
	return id, true
}

// bindError renders binding failures; validator errors get per-field messages
func (h *BaseHandler) bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		messages := make([]string, len(verrs))
		for i, e := range verrs {
			messages[i] = middleware.ValidationMessage(e)
		}
		requestID := middleware.GetRequestID(c)
		c.JSON(dto.GetHTTPStatus(dto.ErrCodeValidation), dto.NewErrorResponse(
			dto.ErrCodeValidation,
			"Request validation failed: "+strings.Join(messages, "; "),
			requestID,
		))
		return
	}
	h.BadRequest(c, err.Error())
}
