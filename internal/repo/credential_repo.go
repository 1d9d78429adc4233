package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Conveyor/internal/domain"
)

// CredentialRepo — репозиторий для работы с credentials.
//
// Пара (owner, key) уникальна. Значение ключа хранится в БД, но
// наружу через API отдаётся только маской; в полном виде его читает
// лишь движок при выполнении AI-узлов.
type CredentialRepo struct {
	pool *pgxpool.Pool
}

// NewCredentialRepo создаёт новый CredentialRepo.
func NewCredentialRepo(pool *pgxpool.Pool) *CredentialRepo {
	return &CredentialRepo{pool: pool}
}

// Create создаёт новый credential.
func (r *CredentialRepo) Create(ctx context.Context, cred *domain.Credential) error {
	query := `
		INSERT INTO credentials (id, owner, key, value, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner, key) DO NOTHING
	`
	result, err := r.pool.Exec(ctx, query,
		cred.ID,
		cred.Owner,
		cred.Key,
		cred.Value,
		cred.IsActive,
		cred.CreatedAt,
		cred.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// GetByID возвращает credential по ID.
func (r *CredentialRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Credential, error) {
	query := `
		SELECT id, owner, key, value, is_active, created_at, updated_at
		FROM credentials
		WHERE id = $1
	`
	cred, err := scanCredential(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credential by id: %w", err)
	}
	return cred, nil
}

// GetActive возвращает активный credential по владельцу и ключу.
// Деактивированный ключ неотличим от отсутствующего.
func (r *CredentialRepo) GetActive(ctx context.Context, owner, key string) (*domain.Credential, error) {
	query := `
		SELECT id, owner, key, value, is_active, created_at, updated_at
		FROM credentials
		WHERE owner = $1 AND key = $2 AND is_active
	`
	cred, err := scanCredential(r.pool.QueryRow(ctx, query, owner, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get active credential: %w", err)
	}
	return cred, nil
}

// ListByOwner возвращает credentials владельца.
func (r *CredentialRepo) ListByOwner(ctx context.Context, owner string) ([]domain.Credential, error) {
	query := `
		SELECT id, owner, key, value, is_active, created_at, updated_at
		FROM credentials
		WHERE owner = $1
		ORDER BY key
	`
	rows, err := r.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var creds []domain.Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		creds = append(creds, *cred)
	}
	return creds, rows.Err()
}

// Update обновляет значение и активность credential.
func (r *CredentialRepo) Update(ctx context.Context, cred *domain.Credential) error {
	query := `
		UPDATE credentials
		SET value = $2, is_active = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.pool.QueryRow(ctx, query, cred.ID, cred.Value, cred.IsActive).Scan(&cred.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	return nil
}

// Delete удаляет credential.
func (r *CredentialRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM credentials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanCredential читает строку credentials в доменную модель.
func scanCredential(row pgx.Row) (*domain.Credential, error) {
	var cred domain.Credential
	err := row.Scan(
		&cred.ID,
		&cred.Owner,
		&cred.Key,
		&cred.Value,
		&cred.IsActive,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cred, nil
}
