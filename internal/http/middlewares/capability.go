package middlewares

import (
	"net/http"

	"github.com/geocoder89/smarteventhub/internal/domain/account"
	"github.com/gin-gonic/gin"
)

// Capability names one thing a caller is allowed to do. The set is
// evaluated once per request at the API boundary; the core packages
// never see roles or capabilities.
type Capability string

const (
	CapManageEvents         Capability = "events.manage"
	CapManageManagers       Capability = "managers.manage"
	CapExportParticipants   Capability = "participants.export"
	CapDispatchCertificates Capability = "certificates.dispatch"
)

func CapabilitiesForRole(role string) map[Capability]struct{} {
	switch role {
	case account.RoleOrganization:
		// the organization can do everything
		return map[Capability]struct{}{
			CapManageEvents:         {},
			CapManageManagers:       {},
			CapExportParticipants:   {},
			CapDispatchCertificates: {},
		}

	case account.RoleEventManager:
		return map[Capability]struct{}{
			CapManageEvents:         {},
			CapExportParticipants:   {},
			CapDispatchCertificates: {},
		}

	default:
		return map[Capability]struct{}{}
	}
}

func (m *AuthMiddleware) RequireCapability(cap Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(ctxCapabilitiesKey)

		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Missing identity context",
				},
			})
			return
		}

		caps, ok := v.(map[Capability]struct{})

		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Missing identity context",
				},
			})
			return
		}

		if _, allowed := caps[cap]; !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "Not allowed for this account",
				},
			})
			return
		}

		c.Next()
	}
}
