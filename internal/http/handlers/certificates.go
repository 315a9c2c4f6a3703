package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/smarteventhub/internal/certificates"
	"github.com/geocoder89/smarteventhub/internal/domain/event"
	"github.com/geocoder89/smarteventhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// CertificateDispatcher runs one render-and-email batch for an event.
type CertificateDispatcher interface {
	Run(ctx context.Context, eventID string, sel certificates.Selection) (certificates.BatchResult, error)
}

type CertificatesHandler struct {
	dispatcher CertificateDispatcher
	events     EventsStore
}

func NewCertificatesHandler(dispatcher CertificateDispatcher, events EventsStore) *CertificatesHandler {
	return &CertificatesHandler{
		dispatcher: dispatcher,
		events:     events,
	}
}

type sendSelectedRequest struct {
	ParticipantIDs []string `json:"participantIds" binding:"required,min=1,dive,required"`
}

// SendAll dispatches certificates to every registered participant of
// the event.
func (h *CertificatesHandler) SendAll(ctx *gin.Context) {
	e, ok := h.ownedEvent(ctx)

	if !ok {
		return
	}

	h.run(ctx, e.ID, certificates.AllForEvent())
}

// SendSelected dispatches certificates to an explicit subset of
// participants. The subset never flips the event's certificatesSent
// flag.
func (h *CertificatesHandler) SendSelected(ctx *gin.Context) {
	e, ok := h.ownedEvent(ctx)

	if !ok {
		return
	}

	var req sendSelectedRequest

	if !BindJSON(ctx, &req) {
		return
	}

	h.run(ctx, e.ID, certificates.ByIDs(req.ParticipantIDs))
}

func (h *CertificatesHandler) run(ctx *gin.Context, eventID string, sel certificates.Selection) {
	res, err := h.dispatcher.Run(ctx.Request.Context(), eventID, sel)

	if err != nil {
		switch {
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "Event not found")
		case errors.Is(err, certificates.ErrEmptySelection):
			RespondBadRequest(ctx, "participantIds must not be empty", nil)
		default:
			RespondInternal(ctx, "Could not send certificates")
		}

		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"sent":     res.Sent,
		"total":    res.Total,
		"outcomes": res.Outcomes,
	})
}

func (h *CertificatesHandler) ownedEvent(ctx *gin.Context) (event.Event, bool) {
	orgID, ok := middlewares.OrganizationIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Missing identity context")
		return event.Event{}, false
	}

	e, err := h.events.GetForOrganization(ctx.Request.Context(), ctx.Param("id"), orgID)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return event.Event{}, false
		}
		RespondInternal(ctx, "Could not fetch event")
		return event.Event{}, false
	}

	return e, true
}
