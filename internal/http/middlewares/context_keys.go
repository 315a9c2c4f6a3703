package middlewares

const (
	CtxRequestID = "request_id"

	ctxAccountIDKey    = "auth.accountID"
	ctxEmailKey        = "auth.email"
	ctxRoleKey         = "auth.role"
	ctxOrganizationKey = "auth.organizationID"
	ctxCapabilitiesKey = "auth.capabilities"
)
