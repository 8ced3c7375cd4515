package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrMalformedPayload(t *testing.T) {
	cause := fmt.Errorf("unexpected end of JSON input")
	err := ErrMalformedPayload{Payload: `{"x": `, Cause: cause}

	assert.Contains(t, err.Error(), "malformed payload")
	assert.Contains(t, err.Error(), `{"x": `)
	assert.True(t, errors.Is(err, cause))
}

func TestErrUnsupportedQuery(t *testing.T) {
	err := ErrUnsupportedQuery{Filter: "startAt"}
	assert.Equal(t, "unsupported query filter: startAt", err.Error())
}

func TestErrTransportClosed(t *testing.T) {
	err := ErrTransportClosed{Name: "redis"}
	assert.Equal(t, "transport closed: redis", err.Error())
}

func TestErrEngineClosed(t *testing.T) {
	assert.Equal(t, "engine closed", ErrEngineClosed{}.Error())
}
