package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

func BoolPointer(b bool) *bool {
	return &b
}

func StrPointer(b string) *string {
	return &b
}

func UIntToStr(value uint) string {
	return strconv.FormatUint(uint64(value), 10)
}

func UIntPointer(u uint) *uint {
	return &u
}

func pathID(c echo.Context) (uint, error) {
	var id uint
	err := echo.PathParamsBinder(c).Uint("id", &id).BindError()
	return id, err
}

func errorJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}

// apiError carries a status and a user-facing message out of helpers that
// cannot write the response themselves.
type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string {
	return e.message
}

func newAPIError(status int, message string) error {
	return &apiError{status: status, message: message}
}

func writeAPIError(c echo.Context, err error) error {
	var ae *apiError
	if errors.As(err, &ae) {
		return errorJSON(c, ae.status, ae.message)
	}
	return errorJSON(c, http.StatusInternalServerError, "Something went wrong, please try again")
}
