// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
)

const (
	headerRequestID = "X-Request-ID"
	// Set by the authenticating proxy in front of the service
	headerUserID = "X-User-Id"
)

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, requestID)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func userMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseUint(r.Header.Get(headerUserID), 10, 0)
		if err != nil || userID == 0 {
			writeJSON(w, http.StatusUnauthorized, errorResponse{
				Error: "missing or invalid " + headerUserID + " header",
			})
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, uint(userID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userID(ctx context.Context) uint {
	id, _ := ctx.Value(userIDKey).(uint)
	return id
}

// statusRecorder captures the response code for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack hands the connection to the websocket stream
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func (a *API) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unknown"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = r.Method + " " + tmpl
			}
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.metrics.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		a.logger.Debug(
			"request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"request_id", requestID(r.Context()),
		)
	})
}

func pathUint(r *http.Request, name string) (uint, bool) {
	val, err := strconv.ParseUint(mux.Vars(r)[name], 10, 0)
	if err != nil {
		return 0, false
	}
	return uint(val), true
}
