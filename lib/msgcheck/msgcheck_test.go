package msgcheck

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		in      string
		want    Label
		wantErr bool
	}{
		{"SPAM", LabelSpam, false},
		{"spam", LabelSpam, false},
		{" Ham ", LabelHam, false},
		{"", "", true},
		{"maybe", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			l, err := ParseLabel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, l)
		})
	}
}

func TestProbabilities_Validate(t *testing.T) {
	assert.NoError(t, Probabilities{Spam: 0.3, Ham: 0.7}.Validate())
	assert.NoError(t, Probabilities{Spam: 1, Ham: 0}.Validate())
	assert.Error(t, Probabilities{Spam: 0.3, Ham: 0.3}.Validate())
	assert.Error(t, Probabilities{Spam: 1.5, Ham: -0.5}.Validate())
}

func TestNewResult(t *testing.T) {
	r := NewResult(0.9)
	assert.Equal(t, LabelSpam, r.Label)
	assert.InDelta(t, 0.1, r.Probabilities.Ham, 1e-9)
	assert.True(t, r.IsSpam())
	assert.Equal(t, "SPAM (spam: 90.00%, ham: 10.00%)", r.String())

	r = NewResult(0.5)
	assert.Equal(t, LabelHam, r.Label, "tie resolves to ham")

	r = NewResult(1.7)
	assert.Equal(t, 1.0, r.Probabilities.Spam)
	assert.NoError(t, r.Probabilities.Validate())
}

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrKind
	}{
		{"nil", nil, KindNone},
		{"validation", fmt.Errorf("wrapped: %w", ErrValidation), KindValidation},
		{"model", fmt.Errorf("load: %w", ErrModelUnavailable), KindModel},
		{"remote", &RemoteError{Status: 500, Body: "oops"}, KindRemote},
		{"connectivity", &ConnectivityError{Err: errors.New("refused")}, KindConnectivity},
		{"canceled", context.Canceled, KindCanceled},
		{"other", errors.New("something"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestConnectivityError_Unwrap(t *testing.T) {
	err := &ConnectivityError{Err: context.DeadlineExceeded}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "connectivity error: context deadline exceeded", err.Error())
	assert.Equal(t, KindConnectivity, Kind(err), "connectivity wins over the wrapped cause")
}
