package substitution

// ProcessValue recursively substitutes {{...}} placeholders inside a
// value that may be a string, a map, a slice, or any other JSON-like
// scalar, mirroring the original implementation's recursive
// substitute-dict/substitute-value walk over request bodies and query
// parameters. Non-string scalars pass through unchanged.
func (p *Processor) ProcessValue(v any, session map[string]any) any {
	switch val := v.(type) {
	case string:
		return p.Process(val, session)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = p.ProcessValue(child, session)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = p.ProcessValue(child, session)
		}
		return out
	default:
		return v
	}
}

// ProcessHeaders substitutes placeholders inside a flat header map.
func (p *Processor) ProcessHeaders(headers map[string]string, session map[string]any) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[k] = p.Process(v, session)
	}
	return out
}
