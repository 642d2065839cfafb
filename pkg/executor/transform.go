package executor

import (
	"context"
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/flowcore/workflowengine/pkg/expression"
	"github.com/flowcore/workflowengine/pkg/types"
)

// TransformHandler executes `transform` nodes. It supports two config
// shapes: an expr-lang "expression" evaluated against the node's primary
// input (the general case), or one of a small set of built-in
// "operation" values ported from the teacher's transform executor
// (to_array/flatten/keys/values) for the structural reshapes those don't
// need a full expression to spell out.
func TransformHandler(ctx context.Context, config map[string]any, execCtx *types.ExecutionContext, meta types.ExecMeta) (types.Result, error) {
	input := primaryInput(execCtx, meta)

	if expr, _ := config["expression"].(string); expr != "" {
		nodeOutputs, variables, inputs := flatten(execCtx)
		evalCtx := &expression.Context{NodeResults: nodeOutputs, Variables: variables, ContextVars: inputs}
		value, err := expression.EvaluateExpression(expr, input, evalCtx)
		if err != nil {
			return types.Result{}, fmt.Errorf("transform node %q: %w", meta.NodeID, err)
		}
		return types.Result{Success: true, Output: value}, nil
	}

	op, _ := config["operation"].(string)
	switch op {
	case "to_array":
		if arr, ok := input.([]any); ok {
			return types.Result{Success: true, Output: arr}, nil
		}
		return types.Result{Success: true, Output: []any{input}}, nil
	case "flatten":
		out := flattenValue(input)
		return types.Result{Success: true, Output: out}, nil
	case "keys":
		m, ok := input.(map[string]any)
		if !ok {
			return types.Result{}, fmt.Errorf("%w: keys requires a map input", ErrUnsupportedTransformOperation)
		}
		keys := make([]any, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		return types.Result{Success: true, Output: keys}, nil
	case "values":
		m, ok := input.(map[string]any)
		if !ok {
			return types.Result{}, fmt.Errorf("%w: values requires a map input", ErrUnsupportedTransformOperation)
		}
		values := make([]any, 0, len(m))
		for _, v := range m {
			values = append(values, v)
		}
		return types.Result{Success: true, Output: values}, nil
	case "decode_text":
		raw, ok := input.([]byte)
		if !ok {
			if s, isStr := input.(string); isStr {
				raw = []byte(s)
			} else {
				return types.Result{}, fmt.Errorf("%w: decode_text requires a []byte or string input", ErrUnsupportedTransformOperation)
			}
		}
		decoded, err := decodeText(raw, config)
		if err != nil {
			return types.Result{}, fmt.Errorf("transform node %q: %w", meta.NodeID, err)
		}
		return types.Result{Success: true, Output: decoded}, nil
	case "":
		return types.Result{}, ErrMissingTransformExpression
	default:
		return types.Result{}, fmt.Errorf("%w: %s", ErrUnsupportedTransformOperation, op)
	}
}

// decodeText converts raw bytes carrying a non-UTF-8 text encoding into a
// Go string. config["encoding"] selects the source encoding
// (utf16le, utf16be; defaults to utf16le). The BOM, if present, overrides
// the configured byte order.
func decodeText(raw []byte, config map[string]any) (string, error) {
	order := unicode.LittleEndian
	if enc, _ := config["encoding"].(string); enc == "utf16be" {
		order = unicode.BigEndian
	}
	decoder := unicode.UTF16(order, unicode.UseBOM).NewDecoder()
	decoded, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	return string(decoded), nil
}

func flattenValue(v any) []any {
	var out []any
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			out = append(out, flattenValue(e)...)
		}
	default:
		out = append(out, v)
	}
	return out
}
