package utils

import "github.com/labstack/echo/v4"

// Response is the envelope returned by every endpoint. Data is omitted
// when nil so plain success/failure answers stay small.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// OK writes a success envelope with the given status code.
func OK(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Response{Success: true, Message: message, Data: data})
}

// Fail writes a failure envelope with the given status code.
func Fail(c echo.Context, status int, message string) error {
	return c.JSON(status, Response{Success: false, Message: message})
}

// FailWith writes a failure envelope carrying extra data, e.g. a
// tagged login status.
func FailWith(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Response{Success: false, Message: message, Data: data})
}
