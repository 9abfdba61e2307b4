package middlewares

// gin context keys
const (
	CtxRequestID = "request_id"
	CtxAccount   = "auth.account"
)
