package response

import (
	"encoding/json"
	"net/http"

	"github.com/silicity/silicity-server/internal/domain"
	"github.com/silicity/silicity-server/pkg/logger"
)

// Envelope is the uniform shape of every synchronous response.
type Envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func write(w http.ResponseWriter, statusCode int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func Success(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	write(w, statusCode, Envelope{Status: "success", Message: message, Data: data})
}

// Error converts a domain failure into its status code and safe message.
// Internal details never reach the wire.
func Error(w http.ResponseWriter, err error) {
	statusCode := domain.StatusCode(err)
	if statusCode == http.StatusInternalServerError {
		logger.Error("internal error", "error", err)
	}
	write(w, statusCode, Envelope{Status: "error", Message: domain.SafeMessage(err)})
}

// Fail writes an explicit error without going through the domain taxonomy.
func Fail(w http.ResponseWriter, statusCode int, message string) {
	write(w, statusCode, Envelope{Status: "error", Message: message})
}
