package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	coordinateDecimals = 7
	balanceDecimals    = 2
	requestTimeLayout  = "2006-01-02T15:04:05.000Z07:00"
)

type RateUnit string

const (
	RateSecond RateUnit = "second"
	RateMinute RateUnit = "minute"
	RateHour   RateUnit = "hour"
	RateDay    RateUnit = "day"
	RateWeek   RateUnit = "week"
	RateMonth  RateUnit = "month"
)

func ParseRateUnit(raw string) (RateUnit, error) {
	unit := RateUnit(strings.ToLower(strings.TrimSpace(raw)))
	switch unit {
	case RateSecond, RateMinute, RateHour, RateDay, RateWeek, RateMonth:
		return unit, nil
	default:
		return "", fmt.Errorf("unsupported rate unit %q", raw)
	}
}

func (u RateUnit) Label() string {
	if u == "" {
		return "n/a"
	}
	return "per " + string(u)
}

type ChargeEvaluationRequest struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	Timestamp string `json:"timestamp"`
}

// NewChargeEvaluationRequest builds a fresh request for sample. The timestamp is
// taken from now, not from the sample, so repeated requests stay distinguishable.
func NewChargeEvaluationRequest(sample LocationSample, now time.Time) (ChargeEvaluationRequest, error) {
	if !sample.Finite() {
		return ChargeEvaluationRequest{}, fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinates, sample.Latitude, sample.Longitude)
	}

	return ChargeEvaluationRequest{
		Latitude:  FormatCoordinate(sample.Latitude),
		Longitude: FormatCoordinate(sample.Longitude),
		Timestamp: now.UTC().Format(requestTimeLayout),
	}, nil
}

func FormatCoordinate(v float64) string {
	if !isFinite(v) {
		return strconv.FormatFloat(v, 'f', coordinateDecimals, 64)
	}
	return decimal.NewFromFloat(v).StringFixed(coordinateDecimals)
}

// ParseCoordinate accepts the string or numeric forms the billing API echoes back.
func ParseCoordinate(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("parse coordinate %q: %w", raw, err)
	}
	if !isFinite(v) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCoordinates, raw)
	}
	return v, nil
}

type ZoneInfo struct {
	ID   int64
	Name string
}

type TransactionInfo struct {
	Amount   decimal.Decimal
	RateUnit RateUnit
}

type ChargingLogic struct {
	ID           int64
	LocationID   int64
	LocationName string
	Amount       decimal.Decimal
	RateUnit     RateUnit
	Active       bool
	StartTime    string
	EndTime      string
}

// ChargeEvaluationResult is what the billing service decided for one evaluation.
// Nil fields were absent from the response.
type ChargeEvaluationResult struct {
	MatchedZone   *ZoneInfo
	Transaction   *TransactionInfo
	Balance       *AccountBalance
	ChargingLogic *ChargingLogic
}

func (r ChargeEvaluationResult) Charged() bool {
	return r.Transaction != nil
}

type AccountBalance struct {
	Amount decimal.Decimal
}

func NewAccountBalance(amount decimal.Decimal) AccountBalance {
	return AccountBalance{Amount: amount.Round(balanceDecimals)}
}

func ParseAccountBalance(raw string) (AccountBalance, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return AccountBalance{}, fmt.Errorf("parse balance %q: %w", raw, err)
	}
	return NewAccountBalance(amount), nil
}

func (b AccountBalance) Sub(amount decimal.Decimal) AccountBalance {
	return NewAccountBalance(b.Amount.Sub(amount))
}

func (b AccountBalance) Equal(other AccountBalance) bool {
	return b.Amount.Equal(other.Amount)
}

func (b AccountBalance) String() string {
	return b.Amount.StringFixed(balanceDecimals)
}
