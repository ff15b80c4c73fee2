package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"

	"ticket-booking/internal/handler"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var (
	InvalidJSON = `{"invalid": json}`
)

func init() {
	gin.SetMode(gin.TestMode)
}

// create JSON request body
func createJSONRequest(data interface{}) *bytes.Buffer {
	if s, ok := data.(string); ok {
		return bytes.NewBufferString(s)
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return bytes.NewBuffer([]byte(""))
	}
	return bytes.NewBuffer(jsonData)
}

// create HTTP request with JSON body and caller identity
func createJSONHTTPRequest(method, url string, actorID uuid.UUID, data interface{}) *http.Request {
	req, err := http.NewRequest(method, url, createJSONRequest(data))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	if actorID != uuid.Nil {
		req.Header.Set(handler.UserIDHeader, actorID.String())
	}
	return req
}
