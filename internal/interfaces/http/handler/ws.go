package handler

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CarsonReik/Compr-sub000/internal/domain/job"
	"github.com/CarsonReik/Compr-sub000/internal/domain/shared"
	"github.com/CarsonReik/Compr-sub000/internal/interfaces/http/dto"
)

// jobEventTypes are the event types streamed to websocket subscribers
var jobEventTypes = []string{
	job.EventTypeJobQueued,
	job.EventTypeJobStatusChanged,
	job.EventTypeJobCompleted,
	job.EventTypeJobFailed,
	job.EventTypeJobParked,
	job.EventTypeJobResumed,
}

// EventStreamHandler streams job lifecycle events over websocket so the host
// dashboard can show live progress instead of polling the result endpoint
type EventStreamHandler struct {
	BaseHandler
	bus    shared.EventBus
	logger *zap.Logger
}

// NewEventStreamHandler creates a new EventStreamHandler
func NewEventStreamHandler(bus shared.EventBus, logger *zap.Logger) *EventStreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventStreamHandler{
		bus:    bus,
		logger: logger.Named("http.events"),
	}
}

// Stream godoc
// @ID           streamJobEvents
// @Summary      Stream job events
// @Description  Upgrade to websocket and receive lifecycle events for one job
// @Tags         jobs
// @Param        id path string true "Job ID" format(uuid)
// @Router       /jobs/{id}/events [get]
func (h *EventStreamHandler) Stream(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid job ID")
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	sub := &jobEventSubscriber{
		jobID:  jobID,
		events: make(chan shared.DomainEvent, 16),
	}
	h.bus.Subscribe(sub, jobEventTypes...)
	defer h.bus.Unsubscribe(sub)

	// CloseRead discards inbound frames and cancels the context when the
	// client goes away
	ctx := conn.CloseRead(c.Request.Context())

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case event := <-sub.events:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, eventMessage(event))
			cancel()
			if err != nil {
				h.logger.Debug("websocket write failed",
					zap.String("job_id", jobID.String()),
					zap.Error(err),
				)
				return
			}
		}
	}
}

// jobEventSubscriber forwards one job's events onto a channel; events for
// other jobs and overflow beyond the buffer are dropped
type jobEventSubscriber struct {
	jobID  uuid.UUID
	events chan shared.DomainEvent
}

func (s *jobEventSubscriber) Handle(_ context.Context, event shared.DomainEvent) error {
	if event.AggregateID() != s.jobID {
		return nil
	}
	select {
	case s.events <- event:
	default:
	}
	return nil
}

func (s *jobEventSubscriber) EventTypes() []string {
	return jobEventTypes
}

// eventMessage converts a domain event into its wire frame
func eventMessage(event shared.DomainEvent) dto.JobEventMessage {
	msg := dto.JobEventMessage{
		EventType: event.EventType(),
		JobID:     event.AggregateID().String(),
		Timestamp: event.OccurredAt(),
	}
	switch e := event.(type) {
	case *job.JobStatusChangedEvent:
		msg.Status = e.NewStatus.String()
		msg.OldStatus = e.OldStatus.String()
		msg.Attempt = e.Attempt
	case *job.JobCompletedEvent:
		msg.Status = job.StatusCompleted.String()
	case *job.JobFailedEvent:
		msg.Status = job.StatusFailed.String()
		msg.Attempt = e.Attempt
	case *job.JobParkedEvent:
		msg.Status = job.StatusPendingVerification.String()
	case *job.JobResumedEvent:
		msg.Status = job.StatusQueued.String()
	case *job.JobQueuedEvent:
		msg.Status = job.StatusQueued.String()
	}
	return msg
}
