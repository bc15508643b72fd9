package syncview

// IsOwned reports whether id is present in candidates. It is a cheap,
// synchronous pre-check run against an already-cached collection before
// issuing a remote read, so an id that cannot belong to the current user
// fails immediately instead of round-tripping. The remote service remains
// the authority on ownership.
//
// Empty or nil candidates never own anything.
func IsOwned[E Entity](id string, candidates []E) bool {
	if id == "" {
		return false
	}
	for _, c := range candidates {
		if c.EntityID() == id {
			return true
		}
	}
	return false
}

// AreAllOwned reports whether every id in ids is present in candidates.
// An empty ids slice is vacuously owned.
func AreAllOwned[E Entity](ids []string, candidates []E) bool {
	if len(ids) == 0 {
		return true
	}
	if len(candidates) == 0 {
		return false
	}
	owned := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		owned[c.EntityID()] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := owned[id]; !ok {
			return false
		}
	}
	return true
}
