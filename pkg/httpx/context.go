package httpx

type ctxKey string

const (
	// CtxKeyUser carries the merged user record injected by the route gate.
	CtxKeyUser ctxKey = "user"

	// CtxKeyRequestID carries the request id when one was assigned upstream.
	CtxKeyRequestID ctxKey = "request_id"
)
