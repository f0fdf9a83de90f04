package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/segyhp/microloan-engine/internal/domain"
	"github.com/segyhp/microloan-engine/internal/repository"
	customError "github.com/segyhp/microloan-engine/pkg/errors"

	"github.com/sirupsen/logrus"
)

type ClientService struct {
	store  repository.Store
	logger *logrus.Logger
}

func NewClientService(store repository.Store, logger *logrus.Logger) *ClientService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ClientService{store: store, logger: logger}
}

func (s *ClientService) CreateClient(ctx context.Context, request *domain.CreateClientRequest) (*domain.Client, error) {
	client, err := s.store.InsertClient(ctx, &domain.Client{
		Name:      strings.TrimSpace(request.Name),
		Phone:     strings.TrimSpace(request.Phone),
		Email:     strings.TrimSpace(request.Email),
		Route:     strings.TrimSpace(request.Route),
		GroupName: strings.TrimSpace(request.GroupName),
		Town:      strings.TrimSpace(request.Town),
	})
	if err != nil {
		return nil, repoErr(err)
	}

	s.logger.WithField("client_id", client.ID).Info("client created")
	return client, nil
}

func (s *ClientService) GetClient(ctx context.Context, clientID uuid.UUID) (*domain.Client, error) {
	client, err := s.store.GetClient(ctx, clientID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, customError.WrapClientNotFound(clientID.String())
	}
	if err != nil {
		return nil, repoErr(err)
	}
	return client, nil
}

func (s *ClientService) ListClients(ctx context.Context) ([]*domain.Client, error) {
	clients, err := s.store.ListClients(ctx)
	if err != nil {
		return nil, repoErr(err)
	}
	return clients, nil
}
