package httputil

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// PathParam returns the mux variable key. A missing value is answered with
// 400 and ok is false.
func PathParam(w http.ResponseWriter, r *http.Request, key string) (value string, ok bool) {
	value = mux.Vars(r)[key]
	if value == "" {
		WriteError(w, http.StatusBadRequest, "missing path parameter: "+key)
		return "", false
	}
	return value, true
}

// QueryLimit reads a positive integer query parameter, returning def when it
// is absent and capping it at max when max > 0.
func QueryLimit(r *http.Request, key string, def, max int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	if max > 0 && n > max {
		n = max
	}
	return n, nil
}
