// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

// compressionThreshold is the smallest body worth compressing.
const compressionThreshold = 1024

// gzipWriterPool pools gzip writers to reduce allocations
var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		return gzip.NewWriter(io.Discard)
	},
}

// bufferedResponseWriter holds the response until the handler returns so
// small bodies can be sent uncompressed.
type bufferedResponseWriter struct {
	http.ResponseWriter
	buf        bytes.Buffer
	statusCode int
}

func (w *bufferedResponseWriter) WriteHeader(status int) {
	if w.statusCode == 0 {
		w.statusCode = status
	}
}

func (w *bufferedResponseWriter) Write(b []byte) (int, error) {
	return w.buf.Write(b)
}

// Compression gzips responses larger than 1KB for clients that accept it.
// It is meant for bounded JSON bodies, not streaming or upgraded connections.
func Compression(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") ||
			strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			next.ServeHTTP(w, r)
			return
		}

		bw := &bufferedResponseWriter{ResponseWriter: w}
		next.ServeHTTP(bw, r)

		status := bw.statusCode
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Add("Vary", "Accept-Encoding")

		if bw.buf.Len() < compressionThreshold || w.Header().Get("Content-Encoding") != "" {
			w.WriteHeader(status)
			_, _ = w.Write(bw.buf.Bytes())
			return
		}

		gz := gzipWriterPool.Get().(*gzip.Writer)
		defer gzipWriterPool.Put(gz)
		gz.Reset(w)

		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Del("Content-Length")
		w.WriteHeader(status)
		_, _ = gz.Write(bw.buf.Bytes())
		_ = gz.Close() // best-effort, response already started
	})
}
