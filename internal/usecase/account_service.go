package usecase

import (
	"context"
	"strings"

	"furnish-backend/internal/domain"
)

type AccountStore interface {
	ListAddresses(ctx context.Context, userID uint) ([]domain.CustomerAddress, error)
	CreateAddress(ctx context.Context, a *domain.CustomerAddress) error
	DeleteAddress(ctx context.Context, userID, id uint) error
	PrefsByUser(ctx context.Context, userID uint) (*domain.CustomerPref, error)
	SavePrefs(ctx context.Context, p *domain.CustomerPref) error
}

type AccountService struct {
	Store AccountStore
}

type SavedAddressInput struct {
	Label        string `json:"label" validate:"max=60"`
	Name         string `json:"name" validate:"required,max=120"`
	Phone        string `json:"phone" validate:"required,phone"`
	Province     string `json:"province" validate:"required,max=80"`
	City         string `json:"city" validate:"required,max=80"`
	Neighborhood string `json:"neighborhood" validate:"required,max=120"`
	Landmark     string `json:"landmark" validate:"max=200"`
}

func (s *AccountService) Addresses(ctx context.Context, who Identity) ([]domain.CustomerAddress, error) {
	if !who.Authenticated() {
		return nil, ErrUnauthorized
	}
	out, err := s.Store.ListAddresses(ctx, who.UserID)
	if out == nil && err == nil {
		out = []domain.CustomerAddress{}
	}
	return out, err
}

func (s *AccountService) AddAddress(ctx context.Context, who Identity, in SavedAddressInput) (*domain.CustomerAddress, error) {
	if !who.Authenticated() {
		return nil, ErrUnauthorized
	}
	if err := check(in).Err(); err != nil {
		return nil, err
	}
	a := &domain.CustomerAddress{
		UserID:       who.UserID,
		Label:        strings.TrimSpace(in.Label),
		Name:         strings.TrimSpace(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		Province:     strings.TrimSpace(in.Province),
		City:         strings.TrimSpace(in.City),
		Neighborhood: strings.TrimSpace(in.Neighborhood),
		Landmark:     strings.TrimSpace(in.Landmark),
	}
	if err := s.Store.CreateAddress(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AccountService) DeleteAddress(ctx context.Context, who Identity, id uint) error {
	if !who.Authenticated() {
		return ErrUnauthorized
	}
	return storeErr(s.Store.DeleteAddress(ctx, who.UserID, id), "address", "")
}

func (s *AccountService) Prefs(ctx context.Context, who Identity) (*domain.CustomerPref, error) {
	if !who.Authenticated() {
		return nil, ErrUnauthorized
	}
	return s.Store.PrefsByUser(ctx, who.UserID)
}

type PrefsInput struct {
	PreferredPayment  string `json:"preferredPayment"`
	PreferredShipping string `json:"preferredShipping"`
	MarketingOptIn    bool   `json:"marketingOptIn"`
	DefaultAddressID  *uint  `json:"defaultAddressId"`
}

func (s *AccountService) SavePrefs(ctx context.Context, who Identity, in PrefsInput) (*domain.CustomerPref, error) {
	if !who.Authenticated() {
		return nil, ErrUnauthorized
	}
	ve := &ValidationError{}
	p := &domain.CustomerPref{UserID: who.UserID, MarketingOptIn: in.MarketingOptIn}
	if in.PreferredPayment != "" {
		t, ok := domain.ParsePaymentType(in.PreferredPayment)
		if !ok {
			ve.Add("preferredPayment", "must be one of EMOLA MPESA BANK")
		}
		p.PreferredPayment = string(t)
	}
	if in.PreferredShipping != "" {
		t, ok := domain.ParseServiceType(in.PreferredShipping)
		if !ok {
			ve.Add("preferredShipping", "must be one of STANDARD PICKUP ZONE EXPRESS")
		}
		p.PreferredShipping = string(t)
	}
	if in.DefaultAddressID != nil {
		addrs, err := s.Store.ListAddresses(ctx, who.UserID)
		if err != nil {
			return nil, err
		}
		found := false
		for _, a := range addrs {
			found = found || a.ID == *in.DefaultAddressID
		}
		if !found {
			ve.Add("defaultAddressId", "is not one of your addresses")
		}
		p.DefaultAddressID = in.DefaultAddressID
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}
	if err := s.Store.SavePrefs(ctx, p); err != nil {
		return nil, err
	}
	return s.Store.PrefsByUser(ctx, who.UserID)
}
