package core

// maybeEvict makes room for one insertion.
//
// If data holds capacity or more entries, the least frequently used key is
// removed from both data and tracker and returned. Otherwise it is a no-op.
// The caller must hold the lock guarding data and tracker.
func maybeEvict[V any](data map[string]V, tracker *FrequencyTracker, capacity int) (string, bool) {
	if len(data) < capacity {
		return "", false
	}
	victim := tracker.LeastFrequent()
	delete(data, victim)
	tracker.Remove(victim)
	return victim, true
}
