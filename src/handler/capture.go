package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradejournal/src/auth"
	"tradejournal/src/model"
)

const serviceName = "tradejournal"

type exceptionRecorder interface {
	Create(ctx context.Context, exc *model.Exception) error
}

// capture logs a server-side failure and persists it in the exceptions table.
func capture(
	r *http.Request,
	repo exceptionRecorder,
	module string,
	method string,
	err error,
	contextData map[string]interface{},
) {

	if err == nil {
		return
	}

	var ctxJSON string
	if contextData != nil {
		if b, e := json.Marshal(contextData); e == nil {
			ctxJSON = string(b)
		}
	}

	exc := &model.Exception{
		Service:     serviceName,
		Module:      module,
		Method:      method,
		RequestPath: r.URL.Path,
		Message:     err.Error(),
		Stack:       string(debug.Stack()),
		Level:       "error",
		Context:     ctxJSON,
		CreatedAt:   time.Now(),
	}
	if user, ok := auth.GetUserFromContext(r.Context()); ok && user != nil {
		exc.UserID = user.ID
	}

	logger.WithFields(map[string]interface{}{
		"service": serviceName,
		"module":  module,
		"method":  method,
		"path":    r.URL.Path,
		"user_id": exc.UserID,
	}).WithError(err).Error("System exception captured")

	if repo != nil {
		// the request context may already be cancelled
		if e := repo.Create(context.WithoutCancel(r.Context()), exc); e != nil {
			logger.WithError(e).Error("Failed to persist exception")
		}
	}
}
