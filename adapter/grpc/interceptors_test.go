package grpc

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	adaptertest "github.com/namesmt/lambda-adapter/adapter/testutil"
)

var testInfo = &grpc.UnaryServerInfo{FullMethod: "/test.Service/Method"}

// =============================================================================
// LOGGING INTERCEPTOR TESTS
// =============================================================================

func TestLoggingInterceptor_Success(t *testing.T) {
	logger := adaptertest.NewMockLogger()

	resp, err := LoggingInterceptor(logger)(context.Background(), "req", testInfo,
		func(ctx context.Context, req any) (any, error) { return "resp", nil })

	require.NoError(t, err)
	assert.Equal(t, "resp", resp)

	entry, ok := logger.Find("grpc_request_completed")
	require.True(t, ok)
	assert.Equal(t, "debug", entry.Level)
	assert.Equal(t, "/test.Service/Method", entry.Fields["method"])
}

func TestLoggingInterceptor_Error(t *testing.T) {
	logger := adaptertest.NewMockLogger()

	_, err := LoggingInterceptor(logger)(context.Background(), "req", testInfo,
		func(ctx context.Context, req any) (any, error) {
			return nil, status.Error(codes.NotFound, "missing")
		})

	require.Error(t, err)
	entry, ok := logger.Find("grpc_request_failed")
	require.True(t, ok)
	assert.Equal(t, "error", entry.Level)
	assert.Equal(t, "NotFound", entry.Fields["code"])
}

// =============================================================================
// RECOVERY INTERCEPTOR TESTS
// =============================================================================

func TestRecoveryInterceptor_Panic(t *testing.T) {
	logger := adaptertest.NewMockLogger()

	resp, err := RecoveryInterceptor(logger, nil)(context.Background(), "req", testInfo,
		func(ctx context.Context, req any) (any, error) { panic("boom") })

	assert.Nil(t, resp)
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Contains(t, err.Error(), "boom")

	entry, ok := logger.Find("grpc_panic_recovered")
	require.True(t, ok)
	assert.Equal(t, "boom", entry.Fields["panic"])
	assert.NotEmpty(t, entry.Fields["stack"])
}

func TestRecoveryInterceptor_CustomHandler(t *testing.T) {
	custom := func(p any) error { return status.Error(codes.Unavailable, "try later") }

	_, err := RecoveryInterceptor(adaptertest.NewMockLogger(), custom)(context.Background(), "req", testInfo,
		func(ctx context.Context, req any) (any, error) { panic(42) })

	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestRecoveryInterceptor_NoPanic(t *testing.T) {
	logger := adaptertest.NewMockLogger()

	resp, err := RecoveryInterceptor(logger, nil)(context.Background(), "req", testInfo,
		func(ctx context.Context, req any) (any, error) { return "ok", nil })

	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Empty(t, logger.Logs)
}

// =============================================================================
// METRICS INTERCEPTOR TESTS
// =============================================================================

func TestMetricsInterceptor(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: "/test.Metrics/Count"}
	counter := func(code string) float64 {
		return grpcRequestCount(t, info.FullMethod, code)
	}
	okBefore, failBefore := counter("OK"), counter("Internal")

	interceptor := MetricsInterceptor()
	_, _ = interceptor(context.Background(), nil, info,
		func(ctx context.Context, req any) (any, error) { return nil, nil })
	_, _ = interceptor(context.Background(), nil, info,
		func(ctx context.Context, req any) (any, error) { return nil, status.Error(codes.Internal, "x") })

	assert.Equal(t, okBefore+1, counter("OK"))
	assert.Equal(t, failBefore+1, counter("Internal"))
}

// grpcRequestCount reads lambda_adapter_grpc_requests_total from the default registry.
func grpcRequestCount(t *testing.T, method, code string) float64 {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != "lambda_adapter_grpc_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["method"] == method && labels["status"] == code {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

// =============================================================================
// CHAIN TESTS
// =============================================================================

func TestChainUnaryInterceptors_Order(t *testing.T) {
	var order []string
	tag := func(name string) grpc.UnaryServerInterceptor {
		return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
			order = append(order, name+":before")
			resp, err := next(ctx, req)
			order = append(order, name+":after")
			return resp, err
		}
	}

	chained := ChainUnaryInterceptors(tag("first"), tag("second"))
	_, err := chained(context.Background(), nil, testInfo, func(ctx context.Context, req any) (any, error) {
		order = append(order, "handler")
		return nil, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"first:before", "second:before", "handler", "second:after", "first:after"}, order)
}

func TestChainUnaryInterceptors_Empty(t *testing.T) {
	resp, err := ChainUnaryInterceptors()(context.Background(), "req", testInfo,
		func(ctx context.Context, req any) (any, error) { return req, nil })

	require.NoError(t, err)
	assert.Equal(t, "req", resp)
}

func TestServerOptions(t *testing.T) {
	assert.Len(t, ServerOptions(adaptertest.NewMockLogger()), 2)
}
