package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/nexuslabs/nexus/internal/chat"
	"github.com/nexuslabs/nexus/internal/log"
)

// writeJSON writes a JSON response with the given status code.
// Note: if encoding fails after WriteHeader, the status is already on the
// wire; the error is logged and the response left as-is.
func writeJSON(w http.ResponseWriter, logger log.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

// writeChatError writes a failed chat.Response. The wire contract keeps
// the message field present and empty on failure.
func writeChatError(w http.ResponseWriter, logger log.Logger, status int, errMsg string) {
	writeJSON(w, logger, status, chat.Response{
		Success: false,
		Message: "",
		Error:   errMsg,
	})
}
