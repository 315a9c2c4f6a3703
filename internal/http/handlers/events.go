package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/smarteventhub/internal/cache"
	"github.com/geocoder89/smarteventhub/internal/domain/event"
	"github.com/geocoder89/smarteventhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type EventsStore interface {
	Create(ctx context.Context, e event.Event) (event.Event, error)
	List(ctx context.Context, organizationID string, filter event.ListEventsFilter) ([]event.Event, error)
	GetForOrganization(ctx context.Context, id, organizationID string) (event.Event, error)
	GetByShareID(ctx context.Context, shareID string) (event.Event, error)
	Update(ctx context.Context, id, organizationID string, req event.UpdateEventRequest) (event.Event, error)
	Delete(ctx context.Context, id, organizationID string) error
}

type ParticipantsCounter interface {
	CountForEvent(ctx context.Context, eventID string) (int, error)
}

type EventsHandler struct {
	repo        EventsStore
	counter     ParticipantsCounter
	cache       *cache.EventCache
	frontendURL string
}

func NewEventsHandler(repo EventsStore, counter ParticipantsCounter, eventCache *cache.EventCache, frontendURL string) *EventsHandler {
	return &EventsHandler{
		repo:        repo,
		counter:     counter,
		cache:       eventCache,
		frontendURL: frontendURL,
	}
}

func (h *EventsHandler) CreateEvent(ctx *gin.Context) {
	orgID, ok := middlewares.OrganizationIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Missing identity context")
		return
	}

	var req event.CreateEventRequest

	if !BindJSON(ctx, &req) {
		return
	}

	created, err := h.repo.Create(ctx.Request.Context(), event.NewFromCreateRequest(req, orgID, h.frontendURL))

	if err != nil {
		RespondInternal(ctx, "Could not create event")
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

func (h *EventsHandler) ListEvents(ctx *gin.Context) {
	orgID, ok := middlewares.OrganizationIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Missing identity context")
		return
	}

	var filter event.ListEventsFilter

	if v := strings.TrimSpace(ctx.Query("category")); v != "" {
		filter.Category = &v
	}
	if v := strings.TrimSpace(ctx.Query("mode")); v != "" {
		filter.Mode = &v
	}
	if v := strings.TrimSpace(ctx.Query("q")); v != "" {
		filter.Query = &v
	}

	events, err := h.repo.List(ctx.Request.Context(), orgID, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list events")

		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": events,
		"count": len(events),
	})
}

func (h *EventsHandler) GetEventById(ctx *gin.Context) {
	orgID, ok := middlewares.OrganizationIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Missing identity context")
		return
	}

	e, err := h.repo.GetForOrganization(ctx.Request.Context(), ctx.Param("id"), orgID)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not fetch event")
		return
	}

	count, err := h.counter.CountForEvent(ctx.Request.Context(), e.ID)

	if err != nil {
		RespondInternal(ctx, "Could not fetch event")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"event":            e,
		"participantCount": count,
	})
}

func (h *EventsHandler) UpdateEvent(ctx *gin.Context) {
	orgID, ok := middlewares.OrganizationIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Missing identity context")
		return
	}

	var req event.UpdateEventRequest

	if !BindJSON(ctx, &req) {
		return
	}

	updated, err := h.repo.Update(ctx.Request.Context(), ctx.Param("id"), orgID, req)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not update event")
		return
	}

	// the public registration page reads through the cache
	h.cache.Invalidate(ctx.Request.Context(), updated.ShareID)

	ctx.JSON(http.StatusOK, updated)
}

func (h *EventsHandler) DeleteEvent(ctx *gin.Context) {
	orgID, ok := middlewares.OrganizationIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Missing identity context")
		return
	}

	// fetch first so the share-id cache entry can be dropped too
	e, err := h.repo.GetForOrganization(ctx.Request.Context(), ctx.Param("id"), orgID)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not delete event")
		return
	}

	if err := h.repo.Delete(ctx.Request.Context(), e.ID, orgID); err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not delete event")
		return
	}

	h.cache.Invalidate(ctx.Request.Context(), e.ShareID)

	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *EventsHandler) ShareLink(ctx *gin.Context) {
	orgID, ok := middlewares.OrganizationIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Missing identity context")
		return
	}

	e, err := h.repo.GetForOrganization(ctx.Request.Context(), ctx.Param("id"), orgID)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not fetch event")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"link": event.RegistrationLink(h.frontendURL, e.ShareID),
	})
}

// what the public registration page gets to see
type PublicEventView struct {
	Title        string              `json:"title"`
	Description  string              `json:"description,omitempty"`
	Category     string              `json:"category,omitempty"`
	Mode         string              `json:"mode"`
	StartAt      time.Time           `json:"startAt"`
	EndAt        time.Time           `json:"endAt"`
	Location     string              `json:"location,omitempty"`
	PosterURL    string              `json:"posterUrl,omitempty"`
	CustomFields []event.CustomField `json:"customFields,omitempty"`
	ShareID      string              `json:"shareId"`
}

func (h *EventsHandler) PublicGetByShareID(ctx *gin.Context) {
	shareID := ctx.Param("shareId")

	e, hit := h.cache.GetByShareID(ctx.Request.Context(), shareID)

	if !hit {
		var err error
		e, err = h.repo.GetByShareID(ctx.Request.Context(), shareID)

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

	ctx.JSON(http.StatusOK, PublicEventView{
		Title:        e.Title,
		Description:  e.Description,
		Category:     e.Category,
		Mode:         e.Mode,
		StartAt:      e.StartAt,
		EndAt:        e.EndAt,
		Location:     e.Location,
		PosterURL:    e.PosterURL,
		CustomFields: e.CustomFields,
		ShareID:      e.ShareID,
	})
}
