package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/gymcore/internal/catalog/domain"
	"github.com/smallbiznis/gymcore/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	log           *zap.Logger
	members       repository.Repository[catalogdomain.Member]
	packages      repository.Repository[catalogdomain.Package]
	discountTypes repository.Repository[catalogdomain.DiscountType]
}

func NewService(p Params) catalogdomain.Service {
	return &Service{
		log:           p.Log.Named("catalog.service"),
		members:       repository.ProvideStore[catalogdomain.Member](p.DB),
		packages:      repository.ProvideStore[catalogdomain.Package](p.DB),
		discountTypes: repository.ProvideStore[catalogdomain.DiscountType](p.DB),
	}
}

func (s *Service) GetMember(ctx context.Context, id snowflake.ID) (*catalogdomain.Member, error) {
	member, err := s.members.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if member == nil || !member.Active {
		return nil, catalogdomain.ErrMemberNotFound
	}
	return member, nil
}

func (s *Service) GetPackage(ctx context.Context, id snowflake.ID) (*catalogdomain.Package, error) {
	pkg, err := s.packages.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if pkg == nil {
		return nil, catalogdomain.ErrPackageNotFound
	}
	return pkg, nil
}

func (s *Service) DiscountTypeExists(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}
	count, err := s.discountTypes.Count(ctx, &catalogdomain.DiscountType{Name: name})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
