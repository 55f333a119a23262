// Package httputil provides the small set of HTTP helpers used by the
// operational endpoints: JSON responses, request IDs and panic recovery.
//
// Middleware composes with Chain:
//
//	handler := httputil.Chain(
//		httputil.RecoveryMiddleware(onPanic),
//		httputil.RequestIDMiddleware,
//	)(router)
package httputil
