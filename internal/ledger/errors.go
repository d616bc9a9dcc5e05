// ABOUTME: Extracts gRPC status details from ledger errors for structured logs
// ABOUTME: Endorsement and commit failures carry per-peer details worth logging

package ledger

import (
	"fmt"

	"google.golang.org/grpc/status"
)

// ErrorAttrs returns slog key/value pairs describing err, including the gRPC
// status code and any per-peer details when err carries a status.
func ErrorAttrs(err error) []any {
	attrs := []any{"error", err}
	st, ok := status.FromError(err)
	if !ok {
		return attrs
	}

	attrs = append(attrs, "grpc_code", st.Code().String())
	details := st.Details()
	if len(details) == 0 {
		return attrs
	}

	rendered := make([]string, 0, len(details))
	for _, d := range details {
		rendered = append(rendered, fmt.Sprintf("%v", d))
	}
	return append(attrs, "grpc_details", rendered)
}
