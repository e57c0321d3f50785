package common

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/taskdeck/internal/server"
	"github.com/teemow/taskdeck/internal/store"
)

func newTestContext(t *testing.T) *server.ServerContext {
	t.Helper()
	sc := server.NewServerContext(context.Background(), server.Deps{
		Store: store.NewMemoryStore(),
	})
	t.Cleanup(func() {
		_ = sc.Shutdown()
	})
	return sc
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	sc := newTestContext(t)

	called := false
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("success"), nil
	}

	wrapped := InstrumentedToolHandler("test_tool", sc, handler)

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if !called {
		t.Error("expected handler to be called")
	}
	if result == nil {
		t.Error("expected result, got nil")
	}
}

func TestInstrumentedToolHandler_Error(t *testing.T) {
	sc := newTestContext(t)

	expectedErr := errors.New("test error")
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, expectedErr
	}

	wrapped := InstrumentedToolHandler("test_tool", sc, handler)

	_, err := wrapped(context.Background(), mcp.CallToolRequest{})

	if !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
}

func TestInstrumentedToolHandler_ErrorResult(t *testing.T) {
	sc := newTestContext(t)

	// A tool result with IsError set counts as a failure even when the
	// handler returns a nil error.
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("task not found"), nil
	}

	wrapped := InstrumentedToolHandler("test_tool", sc, handler)

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})

	// Should not panic and should pass the result through unchanged
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result == nil || !result.IsError {
		t.Error("expected error result to pass through")
	}
}
