package api

import (
	"encoding/json"
	"log"
	"net/http"

	"hermannm.dev/wrap"
)

func sendClientError(res http.ResponseWriter, err error, message string) {
	sendError(res, http.StatusBadRequest, err, message)
}

func sendServerError(res http.ResponseWriter, err error, message string) {
	sendError(res, http.StatusInternalServerError, err, message)
}

func sendError(res http.ResponseWriter, statusCode int, err error, message string) {
	if err != nil {
		if message == "" {
			message = err.Error()
		} else {
			message = wrap.Error(err, message).Error()
		}
	}

	log.Println(message)
	http.Error(res, message, statusCode)
}

func sendJSON(res http.ResponseWriter, value any) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(res).Encode(value); err != nil {
		log.Println(wrap.Error(err, "failed to serialize response"))
	}
}
