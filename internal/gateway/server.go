// SPDX-License-Identifier: MIT
package gateway

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"eeg/internal/errors"
	"eeg/internal/log"
	"eeg/internal/store"
)

const (
	// FileField is the multipart field carrying the artifact.
	FileField = "eeg_file"
	// NameField is the optional multipart field carrying a display name.
	NameField = "name"

	maxNameBytes    = 1024
	shutdownTimeout = 5 * time.Second
)

// NewServer wires the gateway routes. ws, when non-nil, is mounted at /ws.
func NewServer(g *Gateway, addr string, ws http.Handler) *http.Server {
	h := &handlers{gw: g}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", h.handleUpload)
	mux.HandleFunc("GET /sessions", h.handleList)
	mux.HandleFunc("GET /sessions/{id}", h.handleGet)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if ws != nil {
		mux.Handle("GET /ws", ws)
	}

	return &http.Server{
		Addr:              addr,
		Handler:           securityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r)
	})
}

// Run serves srv until ctx is cancelled, then shuts it down gracefully.
func Run(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Infof("Gateway: Listening on %s", srv.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Infof("Gateway: Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type handlers struct {
	gw *Gateway
}

// handleUpload accepts either a multipart form with an eeg_file part or a
// raw CSV body with the display name in ?name=.
func (h *handlers) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.gw.maxBytes+maxNameBytes+64<<10)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil && r.Header.Get("Content-Type") != "" {
		writeError(w, errors.NewInvalidRequest("malformed Content-Type"))
		return
	}

	var rec *store.Record
	if mediaType == "multipart/form-data" {
		rec, err = h.uploadMultipart(r)
	} else {
		rec, err = h.gw.Ingest(r.Context(), r.Body, r.URL.Query().Get(NameField))
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// uploadMultipart streams the parts without spooling them to disk. The name
// field may appear before or after the file.
func (h *handlers) uploadMultipart(r *http.Request) (*store.Record, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, errors.NewInvalidRequest("malformed multipart body")
	}

	var (
		data     []byte
		found    bool
		name     = r.URL.Query().Get(NameField)
		fileName string
	)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			clear(data)
			var maxErr *http.MaxBytesError
			if stderrors.As(err, &maxErr) {
				return nil, errors.NewPayloadTooLarge(h.gw.maxBytes)
			}
			return nil, errors.NewInvalidRequest("malformed multipart body")
		}

		switch part.FormName() {
		case FileField:
			if found {
				part.Close()
				clear(data)
				return nil, errors.NewInvalidRequest("only one eeg_file per request")
			}
			data, err = h.gw.readArtifact(part)
			if err != nil {
				part.Close()
				return nil, err
			}
			found = true
			fileName = part.FileName()
		case NameField:
			b, err := io.ReadAll(io.LimitReader(part, maxNameBytes))
			if err != nil {
				part.Close()
				clear(data)
				return nil, errors.NewInvalidRequest("failed to read name field")
			}
			name = string(b)
		}
		part.Close()
	}

	if !found {
		return nil, errors.NewInvalidRequest("missing eeg_file")
	}
	if strings.TrimSpace(name) == "" {
		name = fileName
	}
	return h.gw.ingest(r.Context(), data, name)
}

func (h *handlers) handleList(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 50)
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	records, err := h.gw.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": records})
}

func (h *handlers) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.gw.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func intParam(r *http.Request, key string, fallback int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, errors.NewInvalidRequest(key + " must be a non-negative integer")
	}
	return v, nil
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Details map[string]any   `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	ge := errors.As(err)
	if ge == nil {
		ge = errors.NewInternal(err)
	}
	if ge.Status >= 500 {
		log.Errorf("Gateway: %v (%v)", ge, ge.Err)
	} else {
		log.Debugf("Gateway: Rejected request: %v", ge)
	}
	writeJSON(w, ge.Status, errorBody{Error: errorDetail{Code: ge.Code, Message: ge.Message, Details: ge.Details}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("Gateway: Failed to encode response: %v", err)
	}
}
