package auth

import (
	"context"
	"errors"

	"meme-market/src/helpers"
	"meme-market/src/interfaces"
	"meme-market/src/logger"
	"meme-market/src/models"
	"meme-market/src/utils"
)

// The bypass identity used when the server runs in debug mode.
const (
	LocalUserID   = "0"
	LocalUserName = "LocalUser"
)

// -----------------------------------------------------------------------------
// Service maps external identities and access tokens to local users.
// -----------------------------------------------------------------------------

type Service struct {
	Store        interfaces.IStore
	StartingCash float64
	Logger       *logger.Logger

	newKey func() (string, error)
}

// -----------------------------------------------------------------------------

func NewService(cfg *models.MConfig, store interfaces.IStore, log *logger.Logger) *Service {
	return &Service{
		Store:        store,
		StartingCash: cfg.Market.StartingCash,
		Logger:       log,
		newKey:       utils.NewAPIKey,
	}
}

// -----------------------------------------------------------------------------

// Login returns the user bound to externalID, creating it on first sight with
// the starting cash and a fresh access token. Repeated logins return the same
// user and the same token.
func (s *Service) Login(ctx context.Context, externalID, name string) (*models.MUser, error) {
	if externalID == "" {
		return nil, helpers.ErrNotAuthenticated
	}

	user, err := s.Store.UserByExternalID(ctx, externalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, helpers.ErrUserNotFound) {
		return nil, err
	}

	key, err := s.newKey()
	if err != nil {
		return nil, err
	}

	user = &models.MUser{
		ExternalID: externalID,
		Name:       name,
		Money:      s.StartingCash,
		Holdings:   make(map[string]int),
		APIKey:     key,
	}
	if err := s.Store.CreateUser(ctx, user); err != nil {
		if helpers.KindOf(err) != helpers.KindConflict {
			return nil, err
		}
		// lost a race with a concurrent first login
		existing, lookupErr := s.Store.UserByExternalID(ctx, externalID)
		if lookupErr != nil {
			return nil, err
		}
		return existing, nil
	}

	s.Logger.Info("Created user %s (%s)", name, externalID)
	return user, nil
}

// LoginLocal logs in the debug bypass identity.
func (s *Service) LoginLocal(ctx context.Context) (*models.MUser, error) {
	return s.Login(ctx, LocalUserID, LocalUserName)
}

// -----------------------------------------------------------------------------

// ResolveAPIKey finds the user holding an access token. Matching is exact and case-sensitive.
func (s *Service) ResolveAPIKey(ctx context.Context, key string) (*models.MUser, error) {
	return s.Store.UserByAPIKey(ctx, key)
}

// User loads a user by external identity.
func (s *Service) User(ctx context.Context, externalID string) (*models.MUser, error) {
	return s.Store.UserByExternalID(ctx, externalID)
}
