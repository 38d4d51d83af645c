package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"meeting-tracker/internal/model"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{model.ErrUnauthenticated, http.StatusUnauthorized},
		{model.ErrBadCredentials, http.StatusUnauthorized},
		{model.ErrForbidden, http.StatusForbidden},
		{model.ErrMeetingNotFound, http.StatusNotFound},
		{model.Invalidf("bad date"), http.StatusBadRequest},
		{model.ErrCustomerExists, http.StatusConflict},
		{fmt.Errorf("wrapped: %w", model.ErrEmailExists), http.StatusConflict},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestWriteErrorHidesInternals(t *testing.T) {
	h := &Handler{log: zap.NewNop().Sugar()}
	app := fiber.New()
	app.Get("/boom", func(c *fiber.Ctx) error {
		return h.writeError(c, errors.New("pq: connection refused"))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body := make([]byte, 64)
	n, _ := resp.Body.Read(body)
	assert.JSONEq(t, `{"error":"internal error"}`, string(body[:n]))
}
