package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// decode round-trips the tool arguments through JSON into T, so numbers,
// nested objects and custom UnmarshalJSON types (speaker labels) decode the
// same way they would from a raw request body.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("invalid arguments: %w", err)
	}
	return result, nil
}
