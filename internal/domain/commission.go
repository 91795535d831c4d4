package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	basisPointsPerPercent = 100
	maxRateBasisPoints    = 100 * basisPointsPerPercent
	// AdvancePercent is the share of net released at the advance milestone.
	AdvancePercent = 30
	// MaxTotalAmount keeps total*basis points inside int64.
	MaxTotalAmount int64 = 100_000_000_000_000
)

// CommissionRate is a percentage held as integer basis points (1250 == 12.5%).
type CommissionRate struct {
	BasisPoints int64 `json:"basis_points"`
}

// ParseCommissionRate accepts a percent string with at most two decimal places.
func ParseCommissionRate(raw string) (CommissionRate, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return CommissionRate{}, fmt.Errorf("%w: commission rate %q", ErrInvalidInput, raw)
	}
	return CommissionRateFromDecimal(d)
}

func CommissionRateFromDecimal(percent decimal.Decimal) (CommissionRate, error) {
	bps := percent.Shift(2)
	if !bps.Equal(bps.Truncate(0)) {
		return CommissionRate{}, fmt.Errorf("%w: commission rate precision", ErrInvalidInput)
	}
	rate := CommissionRate{BasisPoints: bps.IntPart()}
	if err := rate.Validate(); err != nil {
		return CommissionRate{}, err
	}
	return rate, nil
}

func NewCommissionRatePercent(percent int64) CommissionRate {
	return CommissionRate{BasisPoints: percent * basisPointsPerPercent}
}

func (r CommissionRate) Validate() error {
	if r.BasisPoints < 0 || r.BasisPoints > maxRateBasisPoints {
		return fmt.Errorf("%w: commission rate out of range", ErrInvalidInput)
	}
	return nil
}

func (r CommissionRate) Percent() decimal.Decimal {
	return decimal.New(r.BasisPoints, -2)
}

func (r CommissionRate) String() string {
	return r.Percent().String()
}

// Breakdown is the four-way split of a collaboration total in minor units.
type Breakdown struct {
	CollaborationID  string         `json:"collaboration_id,omitempty"`
	Currency         string         `json:"currency,omitempty"`
	TotalAmount      int64          `json:"total_amount"`
	CommissionRate   CommissionRate `json:"commission_rate"`
	CommissionAmount int64          `json:"commission_amount"`
	NetAmount        int64          `json:"net_amount"`
	AdvanceAmount    int64          `json:"advance_amount"`
	FinalAmount      int64          `json:"final_amount"`
}

// ComputeBreakdown splits total by rate. Commission rounds half up, advance rounds
// down, and final absorbs the remainder so both pairs reconcile exactly.
func ComputeBreakdown(total int64, rate CommissionRate) (Breakdown, error) {
	if total <= 0 || total > MaxTotalAmount {
		return Breakdown{}, fmt.Errorf("%w: total amount out of range", ErrInvalidInput)
	}
	if err := rate.Validate(); err != nil {
		return Breakdown{}, err
	}
	const scale = maxRateBasisPoints
	commission := (total*rate.BasisPoints + scale/2) / scale
	net := total - commission
	advance := net * AdvancePercent / 100
	return Breakdown{
		TotalAmount:      total,
		CommissionRate:   rate,
		CommissionAmount: commission,
		NetAmount:        net,
		AdvanceAmount:    advance,
		FinalAmount:      net - advance,
	}, nil
}

func (b Breakdown) Reconciles() bool {
	return b.CommissionAmount+b.NetAmount == b.TotalAmount && b.AdvanceAmount+b.FinalAmount == b.NetAmount
}
