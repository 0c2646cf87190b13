package sizing

import (
	"math"

	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

// cycleWindow is the longest period DetectCycle looks for.
const cycleWindow = 4

// cycleTolerance treats inputs closer than this as equal.
const cycleTolerance = 1e-9

// DetectCycle reports the smallest period p <= window such that the last two
// blocks of p records carry the same values for names. It is diagnostic only
// and never changes how a solver terminates.
func DetectCycle(h *models.History, names []string, window int) int {
	recs := h.Records()
	for p := 1; p <= window; p++ {
		if len(recs) < 2*p {
			break
		}
		tail := recs[len(recs)-2*p:]
		same := true
		for i := 0; i < p && same; i++ {
			for _, n := range names {
				if math.Abs(tail[i].Inputs[n]-tail[i+p].Inputs[n]) > cycleTolerance {
					same = false
					break
				}
			}
		}
		if same {
			return p
		}
	}
	return 0
}
