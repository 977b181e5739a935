package calendar

import "sort"

// AssignLanes spreads overlapping slots side by side. Slots are processed in
// start order and each takes the lowest lane whose previous occupant has
// ended; every slot in a cluster of transitively overlapping slots shares
// that cluster's lane count. Overlap is judged on the rendered box, so two
// short events closer together than the height floor still get separate
// lanes. Slots are updated in place.
func AssignLanes(slots []TimelineSlot) {
	if len(slots) == 0 {
		return
	}

	order := make([]int, len(slots))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := slots[order[a]], slots[order[b]]
		if sa.startHour != sb.startHour {
			return sa.startHour < sb.startHour
		}
		return sa.endHour > sb.endHour
	})

	var (
		cluster    []int
		laneEnds   []float64
		clusterEnd float64
	)
	flush := func() {
		for _, idx := range cluster {
			slots[idx].Lanes = len(laneEnds)
			slots[idx].WidthPercent = 100 / float64(len(laneEnds))
			slots[idx].LeftPercent = float64(slots[idx].Lane) * slots[idx].WidthPercent
		}
		cluster = cluster[:0]
		laneEnds = laneEnds[:0]
	}

	for _, idx := range order {
		s := &slots[idx]
		end := visualEnd(*s)

		if len(cluster) > 0 && s.startHour >= clusterEnd {
			flush()
		}

		lane := -1
		for l, laneEnd := range laneEnds {
			if laneEnd <= s.startHour {
				lane = l
				break
			}
		}
		if lane < 0 {
			lane = len(laneEnds)
			laneEnds = append(laneEnds, end)
		} else {
			laneEnds[lane] = end
		}
		s.Lane = lane

		if len(cluster) == 0 || end > clusterEnd {
			clusterEnd = end
		}
		cluster = append(cluster, idx)
	}
	flush()
}

// visualEnd is the end hour of the drawn box, including the height floor.
func visualEnd(s TimelineSlot) float64 {
	floorHours := s.MinHeightPercent / 100 * hoursPerDay
	if s.endHour-s.startHour < floorHours {
		return s.startHour + floorHours
	}
	return s.endHour
}
