package content

// maxInKeys bounds the parameter list of a single IN clause.
const maxInKeys = 1000

func uniqueNonEmpty(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func chunkKeys(keys []string) [][]string {
	var out [][]string
	for start := 0; start < len(keys); start += maxInKeys {
		end := start + maxInKeys
		if end > len(keys) {
			end = len(keys)
		}
		out = append(out, keys[start:end])
	}
	return out
}
