package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/microloan-engine/internal/domain"

	"github.com/jmoiron/sqlx"
)

const clientColumns = `id, name, phone, email, route, group_name, town, created_at, updated_at`

type clientRepository struct {
	db sqlx.ExtContext
}

func NewClientRepository(db sqlx.ExtContext) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) InsertClient(ctx context.Context, client *domain.Client) (*domain.Client, error) {
	query := `
		INSERT INTO clients (` + clientColumns + `)
		VALUES (:id, :name, :phone, :email, :route, :group_name, :town, :created_at, :updated_at)
	`

	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	now := time.Now().UTC()
	client.CreatedAt = now
	client.UpdatedAt = now

	if _, err := sqlx.NamedExecContext(ctx, r.db, query, client); err != nil {
		return nil, translate(err)
	}

	return client, nil
}

func (r *clientRepository) GetClient(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	query := r.db.Rebind(`SELECT ` + clientColumns + ` FROM clients WHERE id = ?`)

	var client domain.Client
	if err := sqlx.GetContext(ctx, r.db, &client, query, id); err != nil {
		return nil, translate(err)
	}

	return &client, nil
}

func (r *clientRepository) ListClients(ctx context.Context) ([]*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients ORDER BY route, group_name, name`

	clients := []*domain.Client{}
	if err := sqlx.SelectContext(ctx, r.db, &clients, query); err != nil {
		return nil, translate(err)
	}

	return clients, nil
}
