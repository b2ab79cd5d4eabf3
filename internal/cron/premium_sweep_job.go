package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/sinavhub/sinavhub-backend/internal/entitlements"
	"github.com/sinavhub/sinavhub-backend/pkg/claims"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
	"github.com/sinavhub/sinavhub-backend/pkg/logger"
)

const defaultSweepBatch = 250

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type claimsService interface {
	GetCustomClaims(ctx context.Context, userID string) (map[string]any, error)
	SetCustomClaims(ctx context.Context, userID string, attrs map[string]any) error
}

// PremiumSweepJobParams configures the nightly premium mirror sweep.
type PremiumSweepJobParams struct {
	Logger          *logger.Logger
	DB              txRunner
	EntitlementRepo entitlements.Repository
	Claims          claimsService
	BatchSize       int
	Now             func() time.Time
}

// NewPremiumSweepJob constructs the job that downgrades lapsed premium
// mirrors. The expiry map is the source of truth; the sweep only reconciles
// the cached isPremium/premiumExpiryDate pair and the session claim.
func NewPremiumSweepJob(params PremiumSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.EntitlementRepo == nil {
		return nil, fmt.Errorf("entitlement repository required")
	}
	if params.Claims == nil {
		return nil, fmt.Errorf("claims service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &premiumSweepJob{
		logg:   params.Logger,
		db:     params.DB,
		ents:   params.EntitlementRepo,
		claims: params.Claims,
		batch:  batch,
		now:    now,
	}, nil
}

type premiumSweepJob struct {
	logg   *logger.Logger
	db     txRunner
	ents   entitlements.Repository
	claims claimsService
	batch  int
	now    func() time.Time
}

func (j *premiumSweepJob) Name() string { return "premium-sweep" }

// Run walks every premium-flagged entitlement in batches and clears the
// mirror plus the session claim for the ones whose privileged grant lapsed.
// Per-user failures are collected and reported together; one bad row must not
// stop the sweep.
func (j *premiumSweepJob) Run(ctx context.Context) error {
	now := j.now()
	cursor := uuid.Nil
	swept := 0
	downgraded := 0
	var errs error

	for {
		rows, err := j.ents.ListPremium(ctx, j.batch, cursor)
		if err != nil {
			return fmt.Errorf("list premium entitlements: %w", err)
		}
		if len(rows) == 0 {
			break
		}
		cursor = rows[len(rows)-1].UserID

		for i := range rows {
			swept++
			row := rows[i]
			if !entitlements.IsExpired(row.PackageExpiryDates[enums.PremiumPackageKey.String()], now) {
				continue
			}
			if err := j.downgrade(ctx, row.UserID, now); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("downgrade %s: %w", row.UserID, err))
				continue
			}
			downgraded++
		}

		if len(rows) < j.batch {
			break
		}
	}

	ctx = j.logg.WithFields(ctx, map[string]any{"swept": swept, "downgraded": downgraded})
	j.logg.Info(ctx, "premium sweep finished")
	return errs
}

// downgrade re-checks the row under a lock before writing: the user may have
// renewed between listing and the transaction.
func (j *premiumSweepJob) downgrade(ctx context.Context, userID uuid.UUID, now time.Time) error {
	changed := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.ents.WithTx(tx)
		ent, err := repo.FindByUserIDForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if !entitlements.Normalize(ent, now) {
			return nil
		}
		changed = true
		return repo.Save(ctx, ent)
	})
	if err != nil || !changed {
		return err
	}

	attrs, err := j.claims.GetCustomClaims(ctx, userID.String())
	if err != nil {
		return fmt.Errorf("fetch claims: %w", err)
	}
	attrs[claims.AttrPremium] = false
	delete(attrs, claims.AttrPremiumExp)
	if err := j.claims.SetCustomClaims(ctx, userID.String(), attrs); err != nil {
		return fmt.Errorf("write claims: %w", err)
	}
	return nil
}
