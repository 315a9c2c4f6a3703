package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/smarteventhub/internal/cache"
	"github.com/geocoder89/smarteventhub/internal/domain/event"
	"github.com/geocoder89/smarteventhub/internal/domain/participant"
	"github.com/geocoder89/smarteventhub/internal/http/middlewares"
	"github.com/geocoder89/smarteventhub/internal/jobs"
	"github.com/geocoder89/smarteventhub/internal/utils"
	"github.com/gin-gonic/gin"
)

type ParticipantsStore interface {
	Create(ctx context.Context, p participant.Participant) (participant.Participant, error)
	ListByEvent(ctx context.Context, eventID string) ([]participant.Participant, error)
}

type JobsEnqueuer interface {
	Create(ctx context.Context, req jobs.CreateRequest) (jobs.Job, error)
}

type ParticipantsHandler struct {
	participants ParticipantsStore
	events       EventsStore
	queue        JobsEnqueuer
	cache        *cache.EventCache
	log          *slog.Logger
}

func NewParticipantsHandler(participants ParticipantsStore, events EventsStore, queue JobsEnqueuer, eventCache *cache.EventCache, log *slog.Logger) *ParticipantsHandler {
	return &ParticipantsHandler{
		participants: participants,
		events:       events,
		queue:        queue,
		cache:        eventCache,
		log:          log,
	}
}

// PublicRegister handles the unauthenticated registration form posted
// against an event's share link.
func (h *ParticipantsHandler) PublicRegister(ctx *gin.Context) {
	shareID := ctx.Param("shareId")

	e, hit := h.cache.GetByShareID(ctx.Request.Context(), shareID)

	if !hit {
		var err error
		e, err = h.events.GetByShareID(ctx.Request.Context(), shareID)

		if err != nil {
			if errors.Is(err, event.ErrNotFound) {
				RespondNotFound(ctx, "Event not found")
				return
			}
			RespondInternal(ctx, "Could not fetch event")
			return
		}

		h.cache.SetByShareID(ctx.Request.Context(), e)
	}

	var req participant.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	req.EventID = e.ID

	if missing := missingRequiredAnswers(e, req.Answers); len(missing) > 0 {
		fields := make([]FieldError, 0, len(missing))

		for _, label := range missing {
			fields = append(fields, FieldError{
				Field:   label,
				Rule:    "required",
				Message: "is required",
			})
		}

		RespondBadRequest(ctx, "Missing required registration fields", gin.H{"fields": fields})
		return
	}

	created, err := h.participants.Create(ctx.Request.Context(), participant.NewFromRegisterRequest(req))

	if err != nil {
		if errors.Is(err, participant.ErrAlreadyRegistered) {
			RespondConflict(ctx, "already_registered", "This email is already registered for the event")
			return
		}

		RespondInternal(ctx, "Could not register")
		return
	}

	h.enqueueConfirmation(ctx.Request.Context(), e, created)

	ctx.JSON(http.StatusCreated, created)
}

// The confirmation email is best effort: a queue hiccup must not fail
// the registration itself.
func (h *ParticipantsHandler) enqueueConfirmation(ctx context.Context, e event.Event, p participant.Participant) {
	payload, err := jobs.RegistrationConfirmationPayload{
		ParticipantID: p.ID,
		EventID:       e.ID,
		Email:         p.Email,
		Name:          p.Name,
		RequestedAt:   time.Now().UTC(),
	}.JSON()

	if err == nil {
		_, err = h.queue.Create(ctx, jobs.CreateRequest{
			Type:    jobs.TypeRegistrationConfirmation,
			Payload: payload,
		})
	}

	if err != nil {
		h.log.Warn("failed to enqueue confirmation email",
			"eventId", e.ID,
			"participantId", p.ID,
			"error", err,
		)
	}
}

func missingRequiredAnswers(e event.Event, answers map[string]string) []string {
	var missing []string

	for _, f := range e.CustomFields {
		if !f.Required {
			continue
		}
		if strings.TrimSpace(answers[f.Label]) == "" {
			missing = append(missing, f.Label)
		}
	}

	return missing
}

func (h *ParticipantsHandler) ListParticipants(ctx *gin.Context) {
	e, ok := h.ownedEvent(ctx)

	if !ok {
		return
	}

	participants, err := h.participants.ListByEvent(ctx.Request.Context(), e.ID)

	if err != nil {
		RespondInternal(ctx, "Could not list participants")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": participants,
		"count": len(participants),
	})
}

func (h *ParticipantsHandler) ExportParticipantsCSV(ctx *gin.Context) {
	e, ok := h.ownedEvent(ctx)

	if !ok {
		return
	}

	participants, err := h.participants.ListByEvent(ctx.Request.Context(), e.ID)

	if err != nil {
		RespondInternal(ctx, "Could not export participants")
		return
	}

	out, err := utils.ParticipantsCSV(e, participants)

	if err != nil {
		RespondInternal(ctx, "Could not export participants")
		return
	}

	filename := fmt.Sprintf("participants-%s.csv", e.ShareID)

	ctx.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	ctx.Data(http.StatusOK, "text/csv; charset=utf-8", out)
}

// resolves the :id route param to an event owned by the caller's
// organization, writing the error response itself on failure
func (h *ParticipantsHandler) ownedEvent(ctx *gin.Context) (event.Event, bool) {
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
