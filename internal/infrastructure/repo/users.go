package repo

import (
	"context"
	"strings"

	"furnish-backend/internal/domain"

	"gorm.io/gorm/clause"
)

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return translate(s.conn(ctx).Create(u).Error)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := s.conn(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) UserByID(ctx context.Context, id uint) (*domain.User, error) {
	var u domain.User
	if err := s.conn(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) ListAddresses(ctx context.Context, userID uint) ([]domain.CustomerAddress, error) {
	var out []domain.CustomerAddress
	err := s.conn(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&out).Error
	return out, translate(err)
}

func (s *Store) CreateAddress(ctx context.Context, a *domain.CustomerAddress) error {
	return translate(s.conn(ctx).Create(a).Error)
}

func (s *Store) DeleteAddress(ctx context.Context, userID, id uint) error {
	return deleted(s.conn(ctx).Where("user_id = ?", userID).Delete(&domain.CustomerAddress{}, id))
}

// PrefsByUser returns the stored preferences or zero preferences when the
// user never saved any.
func (s *Store) PrefsByUser(ctx context.Context, userID uint) (*domain.CustomerPref, error) {
	var p domain.CustomerPref
	err := s.conn(ctx).Where("user_id = ?", userID).Limit(1).Find(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	p.UserID = userID
	return &p, nil
}

func (s *Store) SavePrefs(ctx context.Context, p *domain.CustomerPref) error {
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"preferred_payment", "preferred_shipping", "marketing_opt_in", "default_address_id"}),
	}).Create(p).Error
	return translate(err)
}
