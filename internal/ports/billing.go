package ports

import (
	"context"

	"github.com/bnema/zonecharge/internal/domain"
)

type AuthAPI interface {
	ObtainToken(ctx context.Context, creds domain.Credentials) (string, error)
	CurrentUser(ctx context.Context, token string) (domain.UserProfile, error)
}

type BillingAPI interface {
	CheckAndCharge(ctx context.Context, req domain.ChargeEvaluationRequest) (domain.ChargeEvaluationResult, error)
	FetchBalance(ctx context.Context) (domain.AccountBalance, error)
}

type ZoneAPI interface {
	LookupZone(ctx context.Context, req domain.ChargeEvaluationRequest) (domain.ChargingLogic, error)
	ActiveChargingLogics(ctx context.Context) ([]domain.ChargingLogic, error)
}
