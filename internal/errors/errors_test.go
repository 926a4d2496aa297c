package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGatewayError_Error(t *testing.T) {
	err := &GatewayError{Persona: "spark", StatusCode: 401, Kind: GatewayAuth, Message: "invalid x-api-key"}
	assert.Contains(t, err.Error(), "spark")
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid x-api-key")
	assert.ErrorIs(t, err, ErrGateway)
}

func TestGatewayError_WithWrapped(t *testing.T) {
	inner := errors.New("connection refused")
	err := NewGatewayError(GatewayNetwork, "", inner)
	assert.ErrorIs(t, err, inner)
	assert.ErrorIs(t, err, ErrGateway)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAsGatewayError(t *testing.T) {
	ge := AsGatewayError("proto", fmt.Errorf("call: %w", context.DeadlineExceeded))
	assert.Equal(t, GatewayTimeout, ge.Kind)
	assert.Equal(t, "proto", ge.Persona)
	assert.ErrorIs(t, ge, context.DeadlineExceeded)

	orig := NewGatewayError(GatewayMalformed, "empty content", nil)
	ge = AsGatewayError("spark", fmt.Errorf("wrapped: %w", orig))
	assert.Equal(t, GatewayMalformed, ge.Kind)
	assert.Equal(t, "spark", ge.Persona)
	assert.Empty(t, orig.Persona, "original must not be mutated")
}

func TestPersistenceError(t *testing.T) {
	inner := errors.New("disk I/O error")
	err := NewPersistenceError("insert conversation", inner)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "insert conversation")
	assert.Nil(t, NewPersistenceError("noop", nil))
}

func TestConstructors(t *testing.T) {
	assert.ErrorIs(t, Validationf("title is %s", "empty"), ErrValidation)
	assert.ErrorIs(t, NotFoundf("task %d", 7), ErrNotFound)
	assert.ErrorIs(t, NotReadyf("no api key"), ErrNotReady)
	assert.Contains(t, NotFoundf("task %d", 7).Error(), "task 7")
}

func TestClassify(t *testing.T) {
	assert.Equal(t, "none", Classify(nil))
	assert.Equal(t, "validation", Classify(Validationf("x")))
	assert.Equal(t, "not_ready", Classify(NotReadyf("x")))
	assert.Equal(t, "not_found", Classify(NotFoundf("x")))
	assert.Equal(t, "busy", Classify(fmt.Errorf("submit: %w", ErrBusy)))
	assert.Equal(t, "persistence", Classify(NewPersistenceError("op", errors.New("x"))))
	assert.Equal(t, "gateway_auth", Classify(&GatewayError{Kind: GatewayAuth}))
	assert.Equal(t, "unknown", Classify(errors.New("other")))
}
