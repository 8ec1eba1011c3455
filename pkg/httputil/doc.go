// Package httputil holds the response helpers and middleware shared by the
// webhook receiver's handlers.
//
// Errors are always JSON of the form {"error": "...", "request_id": "..."}:
//
//	httputil.WriteError(w, http.StatusNotFound, "delivery not found")
//	httputil.WriteRetryLater(w, time.Second, "delivery queue is full")
//
// Middleware are gorilla/mux MiddlewareFuncs, applied outermost first:
//
//	router.Use(
//		httputil.RequestID(logger),
//		httputil.Recover(logger),
//		httputil.AccessLog(logger),
//	)
//
// AccessLog labels entries with the matched route template, so
// /deliveries/abc is logged under route /deliveries/{id}.
package httputil
