package webapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	giga "github.com/dogecoinfoundation/gigaspend/pkg"
	"go.uber.org/zap"
)

var httpCodeForError = map[giga.ErrorCode]int{
	giga.BadRequest:        400,
	giga.NotAvailable:      503,
	giga.NotFound:          404,
	giga.UnknownError:      500,
	giga.InvalidTxn:        400,
	giga.InvalidChange:     400,
	giga.MissingKey:        422,
	giga.MissingSource:     422,
	giga.InsufficientFunds: 422,
	giga.InstrumentBusy:    409,
	giga.SubmitFailed:      502,
}

func HttpStatusForError(code giga.ErrorCode) int {
	status, found := httpCodeForError[code]
	if !found {
		status = http.StatusInternalServerError
	}
	return status
}

func sendResponse(w http.ResponseWriter, log *zap.SugaredLogger, payload any) {
	// note: w.Header after this, so we can call sendError
	b, err := json.Marshal(payload)
	if err != nil {
		sendErrorResponse(w, log, http.StatusInternalServerError, giga.UnknownError, fmt.Sprintf("in json.Marshal: %s", err.Error()))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(b)
}

func sendBadRequest(w http.ResponseWriter, log *zap.SugaredLogger, message string) {
	sendErrorResponse(w, log, http.StatusBadRequest, giga.BadRequest, message)
}

func sendError(w http.ResponseWriter, log *zap.SugaredLogger, where string, err error) {
	var info *giga.ErrorInfo
	if errors.As(err, &info) {
		message := fmt.Sprintf("%s: %s", where, info.Message)
		sendErrorResponse(w, log, HttpStatusForError(info.Code), info.Code, message)
	} else {
		message := fmt.Sprintf("%s: %s", where, err.Error())
		sendErrorResponse(w, log, http.StatusInternalServerError, giga.UnknownError, message)
	}
}

func sendErrorResponse(w http.ResponseWriter, log *zap.SugaredLogger, statusCode int, code giga.ErrorCode, message string) {
	log.Warnw("request failed", "code", code, "status", statusCode, "message", message)
	// would prefer to use json.Marshal, but this avoids the need
	// to handle encoding errors arising from json.Marshal itself!
	payload := fmt.Sprintf("{\"error\":{\"code\":%q,\"message\":%q}}", code, message)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	w.Write([]byte(payload))
}
