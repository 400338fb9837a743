package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"invalid token", ErrInvalidToken, http.StatusUnauthorized},
		{"wrapped credentials", fmt.Errorf("%w: alice", ErrInvalidCredentials), http.StatusBadRequest},
		{"duplicate user", ErrUserAlreadyExists, http.StatusBadRequest},
		{"unknown user", fmt.Errorf("lookup 42: %w", ErrUserNotFound), http.StatusNotFound},
		{"store down", fmt.Errorf("%w: disk full", ErrPersistence), http.StatusServiceUnavailable},
		{"anything else", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
