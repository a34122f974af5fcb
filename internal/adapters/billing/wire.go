package billing

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bnema/zonecharge/internal/domain"
	"github.com/shopspring/decimal"
)

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type currentUserResponse struct {
	Username string           `json:"username"`
	Role     string           `json:"role"`
	Balance  *decimal.Decimal `json:"balance"`
}

func (r currentUserResponse) toDomain() domain.UserProfile {
	profile := domain.UserProfile{
		Username: r.Username,
		Role:     domain.ParseRole(r.Role),
	}
	if r.Balance != nil {
		balance := domain.NewAccountBalance(*r.Balance)
		profile.Balance = &balance
	}

	return profile
}

type balanceResponse struct {
	Balance *decimal.Decimal `json:"balance"`
}

type transactionPayload struct {
	Amount     decimal.Decimal `json:"amount"`
	AmountRate string          `json:"amount_rate"`
}

type locationPayload struct {
	ID           int64  `json:"id"`
	LocationName string `json:"location_name"`
}

type checkAndChargeResponse struct {
	Transaction   *transactionPayload   `json:"transaction"`
	Location      *locationPayload      `json:"location"`
	ChargingLogic *chargingLogicPayload `json:"charging_logic"`
	Balance       *decimal.Decimal      `json:"balance"`
}

func (r checkAndChargeResponse) toDomain() (domain.ChargeEvaluationResult, error) {
	var result domain.ChargeEvaluationResult

	if r.Location != nil {
		result.MatchedZone = &domain.ZoneInfo{ID: r.Location.ID, Name: r.Location.LocationName}
	}
	if r.Transaction != nil {
		result.Transaction = &domain.TransactionInfo{
			Amount:   r.Transaction.Amount,
			RateUnit: rateUnit(r.Transaction.AmountRate),
		}
	}
	if r.ChargingLogic != nil {
		logic, err := r.ChargingLogic.toDomain()
		if err != nil {
			return domain.ChargeEvaluationResult{}, err
		}
		result.ChargingLogic = &logic
		if result.MatchedZone == nil && logic.LocationID != 0 {
			result.MatchedZone = &domain.ZoneInfo{ID: logic.LocationID, Name: logic.LocationName}
		}
	}
	if r.Balance != nil {
		balance := domain.NewAccountBalance(*r.Balance)
		result.Balance = &balance
	}

	return result, nil
}

// chargingLogicPayload accepts "location" both as a bare id and as a nested
// location object.
type chargingLogicPayload struct {
	ID             int64           `json:"id"`
	Location       json.RawMessage `json:"location"`
	LocationName   string          `json:"location_name"`
	AmountToCharge decimal.Decimal `json:"amount_to_charge"`
	AmountRate     string          `json:"amount_rate"`
	IsActive       bool            `json:"is_active"`
	StartTime      string          `json:"start_time"`
	EndTime        string          `json:"end_time"`
}

func (p chargingLogicPayload) toDomain() (domain.ChargingLogic, error) {
	logic := domain.ChargingLogic{
		ID:           p.ID,
		LocationName: p.LocationName,
		Amount:       p.AmountToCharge,
		RateUnit:     rateUnit(p.AmountRate),
		Active:       p.IsActive,
		StartTime:    p.StartTime,
		EndTime:      p.EndTime,
	}

	raw := bytes.TrimSpace(p.Location)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '{':
		var location locationPayload
		if err := json.Unmarshal(raw, &location); err != nil {
			return domain.ChargingLogic{}, fmt.Errorf("decode charging logic %d location: %w", p.ID, err)
		}
		logic.LocationID = location.ID
		if logic.LocationName == "" {
			logic.LocationName = location.LocationName
		}
	default:
		if err := json.Unmarshal(raw, &logic.LocationID); err != nil {
			return domain.ChargingLogic{}, fmt.Errorf("decode charging logic %d location: %w", p.ID, err)
		}
	}

	return logic, nil
}

// rateUnit tolerates unknown units; they render as "n/a".
func rateUnit(raw string) domain.RateUnit {
	unit, err := domain.ParseRateUnit(raw)
	if err != nil {
		return ""
	}
	return unit
}
