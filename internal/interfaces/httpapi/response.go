package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"fundarb/internal/application/service"
	"fundarb/internal/domain/model"

	"github.com/rs/zerolog/log"
)

// Response 统一响应体
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("write response failed")
	}
}

func success(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Status: "success", Data: data})
}

func created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, Response{Status: "success", Data: data})
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Status: "error", Message: message})
}

// failErr 按错误类型映射状态码
func failErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	fail(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidOrder),
		errors.Is(err, model.ErrInconsistentLeg),
		errors.Is(err, service.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrPositionNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrPositionClosed),
		errors.Is(err, service.ErrTradeInPosition),
		errors.Is(err, service.ErrPriceUnavailable):
		return http.StatusConflict
	case errors.Is(err, model.ErrRiskLimit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrNoQuoter):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
