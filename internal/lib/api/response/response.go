package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Response is the uniform envelope returned by every endpoint.
type Response struct {
	StatusCode   int    `json:"statusCode"`
	Success      bool   `json:"success,omitempty"`
	Message      string `json:"message"`
	Data         any    `json:"data,omitempty"`
	Token        string `json:"token,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

func OK(statusCode int, msg string) Response {
	return Response{
		StatusCode: statusCode,
		Success:    true,
		Message:    msg,
	}
}

func Error(statusCode int, msg string) Response {
	return Response{
		StatusCode: statusCode,
		Message:    msg,
	}
}

func ValidationError(errs validator.ValidationErrors) Response {
	var errMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is not a valid email", err.Field()))
		case "min":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is too short", err.Field()))
		default:
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}

	return Error(http.StatusBadRequest, strings.Join(errMsgs, ", "))
}
