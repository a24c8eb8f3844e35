package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/CarsonReik/Compr-sub000/internal/application/crosslist"
	"github.com/CarsonReik/Compr-sub000/internal/domain/job"
	"github.com/CarsonReik/Compr-sub000/internal/interfaces/http/dto"
)

// ListingHandler answers per-listing queries: where a listing lives across
// platforms, and its job history
type ListingHandler struct {
	BaseHandler
	service *crosslist.Service
}

// NewListingHandler creates a new ListingHandler
func NewListingHandler(service *crosslist.Service) *ListingHandler {
	return &ListingHandler{service: service}
}

// Platforms godoc
// @ID           getListingPlatforms
// @Summary      Get a listing's platform presence
// @Description  Where the listing currently lives across marketplaces
// @Tags         listings
// @Produce      json
// @Param        listingID path string true "Listing ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /listings/{listingID}/platforms [get]
func (h *ListingHandler) Platforms(c *gin.Context) {
	listingID, ok := h.listingID(c)
	if !ok {
		return
	}

	records, err := h.service.PlatformListings(c.Request.Context(), listingID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]dto.PlatformListingResponse, len(records))
	for i, record := range records {
		out[i] = dto.PlatformListingResponseFromDomain(record)
	}
	h.Success(c, out)
}

// Jobs godoc
// @ID           getListingJobs
// @Summary      Get a listing's job history
// @Description  All jobs recorded for the listing, newest first
// @Tags         listings
// @Produce      json
// @Param        listingID path string true "Listing ID" format(uuid)
// @Param        sort query string false "Sort field" default(created_at)
// @Param        order query string false "Sort direction" Enums(asc, desc) default(desc)
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /listings/{listingID}/jobs [get]
func (h *ListingHandler) Jobs(c *gin.Context) {
	listingID, ok := h.listingID(c)
	if !ok {
		return
	}

	filter := job.ListFilter{
		OrderBy:  c.Query("sort"),
		OrderDir: c.Query("order"),
	}
	jobs, err := h.service.JobsForListing(c.Request.Context(), listingID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]dto.JobResponse, len(jobs))
	for i, j := range jobs {
		out[i] = dto.JobResponseFromDomain(j)
	}
	h.Success(c, out)
}

func (h *ListingHandler) listingID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("listingID"))
	if err != nil {
		h.BadRequest(c, "Invalid listing ID")
		return uuid.Nil, false
	}
	return id, true
}
