package ports

import (
	"context"

	"github.com/bnema/zonecharge/internal/domain"
)

type DeviceStateRepository interface {
	LoadLastLocation(ctx context.Context) (domain.LocationSample, error)
	SaveLastLocation(ctx context.Context, sample domain.LocationSample) error
	LoadProfile(ctx context.Context) (domain.UserProfile, bool, error)
	SaveProfile(ctx context.Context, profile domain.UserProfile) error
	ClearProfile(ctx context.Context) error
}
