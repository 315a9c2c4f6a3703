package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/smarteventhub/internal/auth"
	"github.com/geocoder89/smarteventhub/internal/domain/account"
	"github.com/geocoder89/smarteventhub/internal/http/middlewares"
	"github.com/geocoder89/smarteventhub/internal/security"
	"github.com/gin-gonic/gin"
)

type AccountsStore interface {
	Create(ctx context.Context, a account.Account) (account.Account, error)
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	ListEventManagers(ctx context.Context, organizationID string) ([]account.Account, error)
	Delete(ctx context.Context, id, organizationID string) error
}

type AuthHandler struct {
	accounts AccountsStore
	jwt      *auth.Manager
}

func NewAuthHandler(accounts AccountsStore, jwt *auth.Manager) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		jwt:      jwt,
	}
}

// SignUp registers a new organization account.
func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req account.SignupRequest

	if !BindJSON(ctx, &req) {
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create account")
		return
	}

	acc, err := h.accounts.Create(ctx.Request.Context(), account.NewOrganization(req, hash))

	if err != nil {
		if errors.Is(err, account.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "An account with this email already exists")
			return
		}

		RespondInternal(ctx, "Could not create account")
		return
	}

	ctx.JSON(http.StatusCreated, acc)
}

// Login is unified over organizations and event managers; the role in
// the issued token decides the capability set downstream.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req account.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	acc, err := h.accounts.GetByEmail(ctx.Request.Context(), req.Email)

	if err != nil {
		// do not leak whether the email exists
		RespondUnauthorized(ctx, "Invalid email or password")
		return
	}

	if err := security.CheckPassword(acc.PasswordHash, req.Password); err != nil {
		RespondUnauthorized(ctx, "Invalid email or password")
		return
	}

	token, err := h.jwt.GenerateAccessToken(acc.ID, acc.Email, acc.Role, acc.OrganizationID)

	if err != nil {
		RespondInternal(ctx, "Could not issue token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": token,
		"account":     acc,
	})
}

// CreateEventManager lets an organization add a manager account.
func (h *AuthHandler) CreateEventManager(ctx *gin.Context) {
	orgID, ok := middlewares.OrganizationIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Missing identity context")
		return
	}

	var req account.SignupRequest

	if !BindJSON(ctx, &req) {
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create event manager")
		return
	}

	acc, err := h.accounts.Create(ctx.Request.Context(), account.NewEventManager(req, hash, orgID))

	if err != nil {
		if errors.Is(err, account.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "An account with this email already exists")
			return
		}

		RespondInternal(ctx, "Could not create event manager")
		return
	}

	ctx.JSON(http.StatusCreated, acc)
}

func (h *AuthHandler) ListEventManagers(ctx *gin.Context) {
	orgID, ok := middlewares.OrganizationIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Missing identity context")
		return
	}

	managers, err := h.accounts.ListEventManagers(ctx.Request.Context(), orgID)

	if err != nil {
		RespondInternal(ctx, "Could not list event managers")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": managers,
		"count": len(managers),
	})
}

func (h *AuthHandler) DeleteEventManager(ctx *gin.Context) {
	orgID, ok := middlewares.OrganizationIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Missing identity context")
		return
	}

	err := h.accounts.Delete(ctx.Request.Context(), ctx.Param("id"), orgID)

	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			RespondNotFound(ctx, "Event manager not found")
			return
		}

		RespondInternal(ctx, "Could not delete event manager")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}
