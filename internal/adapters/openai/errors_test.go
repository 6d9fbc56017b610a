package openai

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ncecere/image_studio/internal/apierr"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		message    string
		wantKind   apierr.Kind
		wantStatus int
	}{
		{name: "unauthorized", status: 401, message: "bad key", wantKind: apierr.KindUpstreamAuth, wantStatus: 401},
		{name: "forbidden", status: 403, wantKind: apierr.KindUpstreamAuth, wantStatus: 500},
		{name: "rate limited", status: 429, message: "slow down", wantKind: apierr.KindUpstreamRateLimited, wantStatus: 429},
		{name: "bad request", status: 400, message: "invalid size", wantKind: apierr.KindUpstreamGeneric, wantStatus: 400},
		{name: "server error", status: 503, wantKind: apierr.KindUpstreamGeneric, wantStatus: 503},
		{name: "no status", status: 0, wantKind: apierr.KindUpstreamGeneric, wantStatus: 502},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := classifyStatus(tt.status, tt.message, errors.New("raw"))
			got, ok := apierr.As(err)
			require.True(t, ok)
			require.Equal(t, tt.wantKind, got.Kind)
			require.Equal(t, tt.wantStatus, got.Status)
			if tt.message != "" {
				require.Equal(t, tt.message, got.Message)
			} else {
				require.NotEmpty(t, got.Message)
			}
		})
	}
}

func TestClassifyErrorDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()

	err := classifyError(ctx, errors.New("transport closed"))
	require.Equal(t, apierr.KindUpstreamTimeout, apierr.KindOf(err))
	require.Equal(t, http.StatusGatewayTimeout, apierr.StatusOf(err))
}

func TestClassifyErrorUntyped(t *testing.T) {
	err := classifyError(context.Background(), errors.New("dial tcp: refused"))
	require.Equal(t, apierr.KindUpstreamGeneric, apierr.KindOf(err))
	require.Equal(t, http.StatusBadGateway, apierr.StatusOf(err))
	require.NotContains(t, err.Error(), "dial tcp")
}
