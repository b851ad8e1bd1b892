package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gorilla/handlers"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/aivodrive/internal/response"
)

// panicLogger adapts a logrus entry to handlers.RecoveryHandlerLogger. It is
// called from the recovery defer, so debug.Stack still shows the panic site.
type panicLogger struct {
	entry *log.Entry
}

func (l panicLogger) Println(v ...interface{}) {
	l.entry.WithFields(log.Fields{
		"panic": fmt.Sprint(v...),
		"stack": string(debug.Stack()),
	}).Error("Recovered from panic")
}

// panicWriter holds back a bare 500 so that it can be sent as an envelope
// when no body follows.
type panicWriter struct {
	http.ResponseWriter
	started bool
	pending bool
}

func (p *panicWriter) WriteHeader(code int) {
	if code == http.StatusInternalServerError && !p.started {
		p.pending = true
		return
	}
	p.started = true
	p.ResponseWriter.WriteHeader(code)
}

func (p *panicWriter) Write(b []byte) (int, error) {
	if p.pending {
		p.pending = false
		p.ResponseWriter.WriteHeader(http.StatusInternalServerError)
	}
	p.started = true
	return p.ResponseWriter.Write(b)
}

// Recover turns a panic into a 500 envelope, using gorilla's recovery
// handler with a logger that carries the request id.
func Recover(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entry := logger.WithField("request_id", GetRequestID(r.Context()))
			recovery := handlers.RecoveryHandler(
				handlers.RecoveryLogger(panicLogger{entry: entry}),
				handlers.PrintRecoveryStack(false),
			)

			pw := &panicWriter{ResponseWriter: w}
			recovery(next).ServeHTTP(pw, r)
			if pw.pending {
				response.Error(w, http.StatusInternalServerError, "Internal server error", "")
			}
		})
	}
}
