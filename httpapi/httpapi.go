// Package httpapi is the REST adapter. It owns request/response shapes and
// status-code mapping only; validation, namespacing and storage live in the
// core. Endpoints:
//
//	GET    /healthz              readiness/liveness probe, no auth
//	GET    /v1/keys/{key}        read a value
//	PUT    /v1/keys/{key}        write a value (POST accepted too)
//	DELETE /v1/keys/{key}        delete a value
//	GET    /v1/keys?prefix=p     list keys, streamed as NDJSON
//
// All endpoints except /healthz authenticate with "Authorization: Bearer
// <token>".
package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/unkn0wn-root/kvgate"
)

type setRequest struct {
	Value      string `json:"value"`
	TTLSeconds int64  `json:"ttl_seconds,omitempty"`
}

type getResponse struct {
	Value string `json:"value"`
}

type okResponse struct {
	Message string `json:"message"`
}

type keyLine struct {
	Key string `json:"key"`
}

type errResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

type api struct {
	store kvgate.Store
	log   kvgate.Logger
}

// NewHandler builds the REST adapter around a Store. log may be nil.
func NewHandler(store kvgate.Store, log kvgate.Logger) http.Handler {
	if log == nil {
		log = kvgate.NopLogger{}
	}
	a := &api{store: store, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", a.health)
	mux.HandleFunc("GET /v1/keys", a.list)
	mux.HandleFunc("GET /v1/keys/{key...}", a.get)
	mux.HandleFunc("PUT /v1/keys/{key...}", a.set)
	mux.HandleFunc("POST /v1/keys/{key...}", a.set)
	mux.HandleFunc("DELETE /v1/keys/{key...}", a.del)
	return mux
}

// bearerToken extracts the credential. An absent or non-Bearer header maps
// to the empty token, which the core rejects as unauthorized; the adapter
// never distinguishes the cases.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	tok, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return ""
	}
	return tok
}

func statusOf(err error) int {
	switch kvgate.KindOf(err) {
	case kvgate.KindUnauthorized:
		return http.StatusUnauthorized
	case kvgate.KindNotFound:
		return http.StatusNotFound
	case kvgate.KindInvalidArgument:
		return http.StatusBadRequest
	case kvgate.KindBackendUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// public messages per status; internals never leak to clients.
func publicMessage(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "key not found"
	case http.StatusBadRequest:
		return "invalid request"
	case http.StatusServiceUnavailable:
		return "backend unavailable"
	default:
		return "internal error"
	}
}

func (a *api) writeErr(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		a.log.Error("request failed", kvgate.Fields{"err": err.Error()})
	}
	writeJSON(w, status, errResponse{Error: publicMessage(status), Status: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	if !a.store.Health(r.Context()) {
		writeJSON(w, http.StatusServiceUnavailable, errResponse{
			Error:  "unhealthy",
			Status: http.StatusServiceUnavailable,
		})
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Message: "OK"})
}

func (a *api) get(w http.ResponseWriter, r *http.Request) {
	v, err := a.store.Get(r.Context(), bearerToken(r), r.PathValue("key"))
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, getResponse{Value: string(v)})
}

func (a *api) set(w http.ResponseWriter, r *http.Request) {
	token, key := bearerToken(r), r.PathValue("key")

	var req setRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Credential checks come before body shape, so an unusable body
		// with a bad token still answers 401, not 400.
		if _, gerr := a.store.Get(r.Context(), token, key); kvgate.KindOf(gerr) == kvgate.KindUnauthorized {
			a.writeErr(w, gerr)
			return
		}
		writeJSON(w, http.StatusBadRequest, errResponse{
			Error:  "invalid request body",
			Status: http.StatusBadRequest,
		})
		return
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	if err := a.store.Set(r.Context(), token, key, []byte(req.Value), ttl); err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Message: "OK"})
}

func (a *api) del(w http.ResponseWriter, r *http.Request) {
	err := a.store.Delete(r.Context(), bearerToken(r), r.PathValue("key"))
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Message: "OK"})
}

// list streams one JSON object per key so large namespaces never buffer
// server-side. A fault before the first key maps to a status code; after
// that the stream just ends early (the client sees a truncated body).
func (a *api) list(w http.ResponseWriter, r *http.Request) {
	keys, err := a.store.List(r.Context(), bearerToken(r), r.URL.Query().Get("prefix"))
	if err != nil {
		a.writeErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)
	for keys.Next(r.Context()) {
		if err := enc.Encode(keyLine{Key: keys.Key()}); err != nil {
			return // client went away
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	if err := keys.Err(); err != nil {
		a.log.Error("list stream aborted", kvgate.Fields{"err": err.Error()})
	}
}
