package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvalFailureError(t *testing.T) {
	err := &EvalFailureError{
		Message: "run completed with 2 failed item(s)",
	}

	assert.Equal(t, "run completed with 2 failed item(s)", err.Error())
}

func TestErrorTypeDetection(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		isEvalFailure bool
	}{
		{
			name:          "EvalFailureError",
			err:           &EvalFailureError{Message: "eval failure"},
			isEvalFailure: true,
		},
		{
			name:          "regular error",
			err:           errors.New("config error"),
			isEvalFailure: false,
		},
		{
			name:          "wrapped EvalFailureError",
			err:           errors.Join(&EvalFailureError{Message: "eval failure"}, errors.New("additional context")),
			isEvalFailure: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var evalFailureErr *EvalFailureError
			detected := errors.As(tt.err, &evalFailureErr)
			assert.Equal(t, tt.isEvalFailure, detected)
		})
	}
}
