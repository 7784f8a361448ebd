package types

import "time"

// SuccessResponse is the envelope returned by every successful API call.
type SuccessResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorBody describes one failed API call.
type ErrorBody struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

func Success(data interface{}) SuccessResponse {
	return SuccessResponse{Success: true, Data: data, Timestamp: time.Now().UTC()}
}

func Failure(kind, message string) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error: ErrorBody{
			Error:     kind,
			Message:   message,
			Timestamp: time.Now().UTC(),
		},
	}
}
