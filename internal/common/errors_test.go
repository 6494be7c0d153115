package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFatalErrors(t *testing.T) {
	cause := errors.New("no such file")
	inErr := InputError("pdf not found", cause)

	assert.True(t, errors.Is(inErr, ErrInput))
	assert.True(t, errors.Is(inErr, cause))
	assert.True(t, IsFatal(fmt.Errorf("preflight: %w", inErr)))
	assert.Equal(t, CodeInput, inErr.Code)

	cfgErr := ConfigurationError("missing key", nil)
	assert.True(t, errors.Is(cfgErr, ErrConfiguration))
	assert.True(t, IsFatal(cfgErr))

	assert.False(t, IsFatal(errors.New("timeout")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", NotFoundError("job"), http.StatusNotFound},
		{"input", InputError("bad pdf", nil), http.StatusBadRequest},
		{"validation", NewValidator().Field("f", "", Required).Error(), http.StatusBadRequest},
		{"configuration", ConfigurationError("missing", nil), http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "x"))
	err := WrapError(ErrNotFound, "load job")
	assert.EqualError(t, err, "load job: resource not found")
	assert.True(t, errors.Is(err, ErrNotFound))
}
