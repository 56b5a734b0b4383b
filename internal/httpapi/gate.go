package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"SteamPM/internal/catalog"
	"SteamPM/pkg/kit"
)

// RequireReady lets requests through only while the catalog is Ready.
func (s *Server) RequireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st, err := s.State.Snapshot()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if st.Status != catalog.StatusReady {
			s.logger().Warn("engine not ready", zap.Stringer("status", st.Status), zap.String("path", r.URL.Path))
			kit.WriteError(w, r, http.StatusServiceUnavailable, notReadyMessage(st), map[string]any{
				"status": st.Status.String(),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func notReadyMessage(st catalog.State) string {
	switch st.Status {
	case catalog.StatusLoading:
		return "game data is still loading"
	case catalog.StatusUpdating:
		return "game data is being updated"
	case catalog.StatusError:
		if st.ErrorMessage != "" {
			return st.ErrorMessage
		}
		return "game data is not available"
	default:
		return "game data is not ready"
	}
}
