package service

// DeepMerge layers src over dst leaf-wise: object-typed leaves merge
// recursively, scalar leaves replace, nil leaves are no-ops. Neither input
// map is mutated. Unspecified leaves keep their dst value, so a partial
// override never erases discovered baseline fields.
func DeepMerge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		if v == nil {
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			base, _ := out[k].(map[string]any)
			out[k] = DeepMerge(base, sub)
			continue
		}
		out[k] = v
	}
	return out
}
