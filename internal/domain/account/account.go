package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	RoleOrganization = "organization"
	RoleEventManager = "event_manager"
)

// Account covers both organizations and the event managers they create.
// Managers carry the id of the organization that owns them; for an
// organization account OrganizationID equals the account's own id.
type Account struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Role           string    `json:"role"`
	OrganizationID string    `json:"organizationId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

var ErrNotFound = errors.New("account not found")
var ErrEmailTaken = errors.New("email already in use")

type SignupRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=120"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func NewOrganization(req SignupRequest, passwordHash string) Account {
	now := time.Now().UTC()
	id := uuid.NewString()

	return Account{
		ID:             id,
		Name:           req.Name,
		Email:          req.Email,
		PasswordHash:   passwordHash,
		Role:           RoleOrganization,
		OrganizationID: id,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func NewEventManager(req SignupRequest, passwordHash, organizationID string) Account {
	now := time.Now().UTC()

	return Account{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Email:          req.Email,
		PasswordHash:   passwordHash,
		Role:           RoleEventManager,
		OrganizationID: organizationID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
