// Package secrets отдаёт значения ключей API движку выполнения.
// Это единственное место, где значение credential читается целиком:
// API-слой работает только с масками.
package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/Conveyor/internal/repo"
)

// Store — доступ к активным credentials по владельцу и ключу.
// Реализует nodes.CredentialStore.
type Store struct {
	creds *repo.CredentialRepo
}

// NewStore создаёт Store поверх репозитория credentials.
func NewStore(creds *repo.CredentialRepo) *Store {
	return &Store{creds: creds}
}

// GetSecret возвращает значение активного ключа владельца.
// Деактивированный ключ неотличим от отсутствующего.
func (s *Store) GetSecret(ctx context.Context, owner, key string) (string, error) {
	cred, err := s.creds.GetActive(ctx, owner, key)
	if errors.Is(err, repo.ErrNotFound) {
		return "", fmt.Errorf("secret %s for %s: %w", key, owner, repo.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return cred.Value, nil
}

// HasSecret проверяет наличие активного ключа без чтения значения.
func (s *Store) HasSecret(ctx context.Context, owner, key string) (bool, error) {
	_, err := s.creds.GetActive(ctx, owner, key)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
