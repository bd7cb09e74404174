package matching

import "math"

// Compatibility scoring for both axes. Pure and deterministic; callers must
// pre-filter inputs through the hard eligibility gates (distance threshold,
// at least one shared slot / qualifying age pair). The scorer only ranks.

// profileDistanceRefKm is the fixed reference distance for the profile axis
// score, independent of either side's preference threshold.
const profileDistanceRefKm = 50.0

// ScheduleScore scores a schedule-axis pairing in [0,100].
//
// Weighted sum of capped sub-scores: shared slot quantity (max 40),
// proximity within the owner's threshold (max 30), child age compatibility
// (max 20), and a small shared-slot bonus (max 10).
func ScheduleScore(sharedSlotCount int, distanceKm, maxDistanceKm float64, childCompatibility int) int {
	slotScore := math.Min(float64(sharedSlotCount)*10, 40)

	var distScore float64
	if maxDistanceKm > 0 {
		distScore = math.Max(0, (maxDistanceKm-distanceKm)/maxDistanceKm*30)
	}

	childScore := math.Min(float64(childCompatibility)*5, 20)
	bonus := math.Min(float64(sharedSlotCount)*2, 10)

	return clampScore(math.Round(slotScore + distScore + childScore + bonus))
}

// ProfileScore scores a profile-axis pairing in [0,100].
//
// distanceScore decays linearly over a fixed 50 km reference; ageScore sums a
// closeness term over every age-compatible cross-pair of dependents.
func ProfileScore(distanceKm float64, agePairs []AgePair, flexibilityYears int) int {
	distScore := math.Max(0, (profileDistanceRefKm-distanceKm)/profileDistanceRefKm*50)

	var ageScore float64
	for _, pair := range agePairs {
		diff := math.Abs(float64(pair.OwnerAge - pair.PeerAge))
		if flexibilityYears <= 0 {
			// zero flexibility: only exact age matches qualify, at full weight
			if diff == 0 {
				ageScore += 50
			}
			continue
		}
		ageScore += (float64(flexibilityYears) - diff) / float64(flexibilityYears) * 50
	}

	return clampScore(math.Round(distScore + ageScore))
}

// ChildCompatibility counts cross-pairs of dependents whose age difference is
// within the owner's flexibility.
func ChildCompatibility(ownerAges, peerAges []int, flexibilityYears int) int {
	count := 0
	for _, a := range ownerAges {
		for _, b := range peerAges {
			if absInt(a-b) <= flexibilityYears {
				count++
			}
		}
	}
	return count
}

// AgeCompatiblePairs returns every cross-pair of dependents within the
// flexibility window, owner side first.
func AgeCompatiblePairs(ownerAges, peerAges []int, flexibilityYears int) []AgePair {
	var pairs []AgePair
	for _, a := range ownerAges {
		for _, b := range peerAges {
			if absInt(a-b) <= flexibilityYears {
				pairs = append(pairs, AgePair{OwnerAge: a, PeerAge: b})
			}
		}
	}
	return pairs
}

func clampScore(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
