package ledger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// =============================================================================
// PARTNER DIRECTORY
// =============================================================================

type PartnerInput struct {
	FullName string
	Tier     Tier // empty means Member
	IsVIP    bool
}

func (in PartnerInput) normalize() (PartnerInput, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	if in.FullName == "" {
		return in, fmt.Errorf("%w: partner name is required", ErrValidation)
	}
	tier, err := ParseTier(string(in.Tier))
	if err != nil {
		return in, err
	}
	if in.IsVIP {
		tier = AdvanceTier(tier, TierReseller)
	}
	in.Tier = tier
	return in, nil
}

func (s *Service) CreatePartner(ctx context.Context, in PartnerInput) (Partner, error) {
	in, err := in.normalize()
	if err != nil {
		return Partner{}, err
	}
	p := Partner{
		ID:        PartnerID(s.newID()),
		FullName:  in.FullName,
		Tier:      in.Tier,
		IsVIP:     in.IsVIP,
		CreatedAt: s.now(),
	}
	if err := s.store.WithTx(ctx, func(tx Tx) error {
		return tx.PutPartner(ctx, p)
	}); err != nil {
		return Partner{}, err
	}
	s.log.Info("partner created", zap.String("partner_id", string(p.ID)), zap.String("tier", string(p.Tier)))
	return p, nil
}

// UpdatePartner is an administrative edit. It is the only path that may set
// a lower tier; order intake only ever advances it.
func (s *Service) UpdatePartner(ctx context.Context, id PartnerID, in PartnerInput) (Partner, error) {
	in, err := in.normalize()
	if err != nil {
		return Partner{}, err
	}
	var p Partner
	err = s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		if p, err = tx.GetPartner(ctx, id); err != nil {
			return err
		}
		p.FullName = in.FullName
		p.Tier = in.Tier
		p.IsVIP = in.IsVIP
		return tx.PutPartner(ctx, p)
	})
	if err != nil {
		return Partner{}, err
	}
	s.log.Info("partner updated", zap.String("partner_id", string(id)), zap.String("tier", string(p.Tier)))
	return p, nil
}

// DeletePartner removes a partner that has never ordered.
func (s *Service) DeletePartner(ctx context.Context, id PartnerID) error {
	err := s.store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.GetPartner(ctx, id); err != nil {
			return err
		}
		orders, err := tx.ListOrders(ctx, OrderFilter{PartnerID: id, Kind: OrdersPartner})
		if err != nil {
			return err
		}
		if len(orders) > 0 {
			return fmt.Errorf("%w: partner %s has %d orders", ErrPartnerHasHistory, id, len(orders))
		}
		return tx.DeletePartner(ctx, id)
	})
	if err != nil {
		return s.rejected("delete partner", err, zap.String("partner_id", string(id)))
	}
	s.log.Info("partner deleted", zap.String("partner_id", string(id)))
	return nil
}
