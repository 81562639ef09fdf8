package scan

import (
	"errors"
	"fmt"
)

var ErrInvalidGrid = errors.New("grid resolution must be at least 1 step per axis")

// GridPoint is one (alpha, beta) weight pair of the scan together with its grid indices.
type GridPoint struct {
	AlphaIdx int     `json:"alpha_idx"`
	BetaIdx  int     `json:"beta_idx"`
	Alpha    float64 `json:"alpha"`
	Beta     float64 `json:"beta"`
}

func (p GridPoint) String() string {
	return fmt.Sprintf("alpha=%g beta=%g", p.Alpha, p.Beta)
}

// Grid lists the valid points of an alphaSteps x betaSteps scan in (alpha_idx, beta_idx)
// order. A point is valid when alpha+beta <= 1; the comparison is done on the grid
// indices so no point on the alpha+beta = 1 edge is lost to rounding.
func Grid(alphaSteps, betaSteps int) ([]GridPoint, error) {
	if alphaSteps < 1 || betaSteps < 1 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidGrid, alphaSteps, betaSteps)
	}

	var points []GridPoint
	for ia := 0; ia <= alphaSteps; ia++ {
		for ib := 0; ib <= betaSteps; ib++ {
			if ia*betaSteps+ib*alphaSteps > alphaSteps*betaSteps {
				continue
			}
			points = append(points, GridPoint{
				AlphaIdx: ia,
				BetaIdx:  ib,
				Alpha:    float64(ia) / float64(alphaSteps),
				Beta:     float64(ib) / float64(betaSteps),
			})
		}
	}
	return points, nil
}
