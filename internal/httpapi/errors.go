package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"SteamPM/internal/apperr"
	"SteamPM/pkg/kit"
)

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		s.logger().Error("unhandled error", zap.String("path", r.URL.Path), zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	switch ae.Kind {
	case apperr.KindNotFound:
		kit.WriteError(w, r, http.StatusNotFound, ae.Message, details(ae.Metadata))
	case apperr.KindInvalidArgument:
		kit.WriteError(w, r, http.StatusBadRequest, ae.Message, details(ae.Metadata))
	case apperr.KindRateLimited:
		kit.WriteError(w, r, http.StatusTooManyRequests, ae.Message, details(ae.Metadata))
	case apperr.KindUnavailable:
		kit.WriteError(w, r, http.StatusServiceUnavailable, ae.Message, details(ae.Metadata))
	default:
		s.logger().Error("internal error", zap.String("path", r.URL.Path), zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func details(md map[string]any) any {
	if len(md) == 0 {
		return nil
	}
	return md
}
