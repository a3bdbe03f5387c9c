// Package reorder maps a drag-and-drop move made in a filtered view back onto the full list.
package reorder

// Move is a reposition expressed in the visible list's index space.
// A nil Destination means the drop was cancelled or landed outside the list.
type Move struct {
	Source      int
	Destination *int
}

// To builds a Move with a destination.
func To(source, destination int) Move {
	return Move{Source: source, Destination: &destination}
}

// Apply returns the new full order after applying mv to visible, and whether anything changed.
//
// Slots in full held by visible items are refilled left to right with the reordered visible
// items; items missing from visible keep their positions. Neither input is modified.
func Apply[T any, K comparable](full, visible []T, key func(T) K, mv Move) ([]T, bool) {
	if mv.Destination == nil || len(visible) == 0 {
		return full, false
	}
	src, dst := mv.Source, *mv.Destination
	if src == dst || src < 0 || src >= len(visible) || dst < 0 || dst >= len(visible) {
		return full, false
	}

	reordered := make([]T, 0, len(visible))
	reordered = append(reordered, visible[:src]...)
	reordered = append(reordered, visible[src+1:]...)
	reordered = append(reordered[:dst], append([]T{visible[src]}, reordered[dst:]...)...)

	shown := make(map[K]struct{}, len(visible))
	for _, item := range visible {
		shown[key(item)] = struct{}{}
	}

	result := make([]T, len(full))
	copy(result, full)
	next := 0
	for i, item := range full {
		if _, ok := shown[key(item)]; !ok {
			continue
		}
		if next >= len(reordered) {
			break
		}
		result[i] = reordered[next]
		next++
	}
	return result, true
}
