package response

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope every store endpoint writes.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Envelope is the decoding side of Response. Data stays raw so the caller
// can decode it into the declared payload shape.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
}

func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{
		Success: statusCode < 400,
		Data:    data,
	})
}

func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

func Error(w http.ResponseWriter, statusCode int, err string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{
		Success: false,
		Error:   err,
	})
}

func BadRequest(w http.ResponseWriter, err string) {
	Error(w, http.StatusBadRequest, err)
}

func ServiceUnavailable(w http.ResponseWriter, err string) {
	Error(w, http.StatusServiceUnavailable, err)
}

func InternalError(w http.ResponseWriter, err string) {
	Error(w, http.StatusInternalServerError, err)
}

// Decode reads an envelope and unmarshals its data into v.
func Decode(data []byte, v interface{}) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	if !env.Success {
		return &DecodeError{Reason: env.Error}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return &DecodeError{Reason: "missing data"}
	}
	return json.Unmarshal(env.Data, v)
}

type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Reason == "" {
		return "unsuccessful response envelope"
	}
	return "unsuccessful response envelope: " + e.Reason
}
