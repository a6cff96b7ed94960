package logging

// cloneFields creates a copy of the source fields map, so a child logger
// returned by WithField/WithFields (e.g. one scoped to a single causaloid
// id or graph traversal) never mutates the fields of the logger it was
// derived from.
// Returns a new map with all key-value pairs from src.
// Returns an empty map if src is nil or empty.
func cloneFields(src map[string]interface{}) map[string]interface{} {
	if len(src) == 0 {
		return make(map[string]interface{})
	}
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
