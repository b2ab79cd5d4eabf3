package packages

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/sinavhub/sinavhub-backend/pkg/db/models"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
)

// Service exposes the package catalogue.
type Service interface {
	ListPackages(ctx context.Context) ([]PackageView, error)
	GetPackage(ctx context.Context, rawKey string) (*PackageView, error)
	ResolvePlan(ctx context.Context, rawKey string, periodMonths int) (*models.Package, *models.PackagePlan, error)
}

type service struct {
	repo Repository
}

// ServiceParams bundles the dependencies required to build a packages service.
type ServiceParams struct {
	Repo Repository
}

// NewService constructs a packages service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("packages repository is required")
	}
	return &service{repo: params.Repo}, nil
}

func (s *service) ListPackages(ctx context.Context) ([]PackageView, error) {
	pkgs, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list packages")
	}
	views := make([]PackageView, 0, len(pkgs))
	for i := range pkgs {
		views = append(views, FromModel(&pkgs[i]))
	}
	return views, nil
}

func (s *service) GetPackage(ctx context.Context, rawKey string) (*PackageView, error) {
	pkg, err := s.findActive(ctx, rawKey)
	if err != nil {
		return nil, err
	}
	view := FromModel(pkg)
	return &view, nil
}

// ResolvePlan validates a package key/duration pair against the catalogue and
// returns the matching plan. Cart and checkout both price from this, never
// from client input.
func (s *service) ResolvePlan(ctx context.Context, rawKey string, periodMonths int) (*models.Package, *models.PackagePlan, error) {
	pkg, err := s.findActive(ctx, rawKey)
	if err != nil {
		return nil, nil, err
	}
	for i := range pkg.Plans {
		if pkg.Plans[i].PeriodMonths == periodMonths {
			return pkg, &pkg.Plans[i], nil
		}
	}
	return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "no plan with the requested duration").
		WithDetails(map[string]any{
			"package_key":   pkg.Key.String(),
			"period_months": periodMonths,
		})
}

func (s *service) findActive(ctx context.Context, rawKey string) (*models.Package, error) {
	key, err := enums.ParsePackageKey(rawKey)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
	}
	pkg, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find package")
	}
	if !pkg.Active {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
	}
	return pkg, nil
}
