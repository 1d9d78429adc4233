package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Conveyor/internal/domain"
)

// ListCredentials возвращает credentials текущего принципала.
// GET /api/v1/credentials
func (h *Handler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	owner := principalFrom(r)
	if owner == "" {
		BadRequest(w, "X-Principal header is required")
		return
	}

	credentials, err := h.credentials.ListByOwner(r.Context(), owner)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]CredentialResponse, len(credentials))
	for i, c := range credentials {
		result[i] = CredentialFromDomain(c)
	}
	List(w, result, len(result))
}

// CreateCredential сохраняет секрет принципала.
// POST /api/v1/credentials
func (h *Handler) CreateCredential(w http.ResponseWriter, r *http.Request) {
	owner := principalFrom(r)
	if owner == "" {
		BadRequest(w, "X-Principal header is required")
		return
	}

	var req CreateCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.Key == "" {
		BadRequest(w, "key is required")
		return
	}
	if req.Value == "" {
		BadRequest(w, "value is required")
		return
	}

	cred := &domain.Credential{
		Owner:    owner,
		Key:      req.Key,
		Value:    req.Value,
		IsActive: true,
	}
	if err := h.credentials.Create(r.Context(), cred); HandleRepoError(w, h.logger, err, "") {
		return
	}

	h.logger.Info("credential created", "credential_id", cred.ID, "owner", owner, "key", cred.Key)
	Created(w, CredentialFromDomain(*cred))
}

// UpdateCredential меняет значение или статус секрета.
// PUT /api/v1/credentials/{id}
func (h *Handler) UpdateCredential(w http.ResponseWriter, r *http.Request) {
	owner := principalFrom(r)
	if owner == "" {
		BadRequest(w, "X-Principal header is required")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid credential id")
		return
	}

	var req UpdateCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	cred, err := h.credentials.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "credential not found") {
		return
	}
	// Чужие credentials недоступны, для клиента их не существует.
	if cred.Owner != owner {
		NotFound(w, "credential not found")
		return
	}

	if req.Value != nil {
		if *req.Value == "" {
			BadRequest(w, "value cannot be empty")
			return
		}
		cred.Value = *req.Value
	}
	if req.IsActive != nil {
		cred.IsActive = *req.IsActive
	}

	if err := h.credentials.Update(r.Context(), cred); HandleRepoError(w, h.logger, err, "credential not found") {
		return
	}
	Success(w, CredentialFromDomain(*cred))
}

// DeleteCredential удаляет секрет принципала.
// DELETE /api/v1/credentials/{id}
func (h *Handler) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	owner := principalFrom(r)
	if owner == "" {
		BadRequest(w, "X-Principal header is required")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid credential id")
		return
	}

	cred, err := h.credentials.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "credential not found") {
		return
	}
	if cred.Owner != owner {
		NotFound(w, "credential not found")
		return
	}

	if err := h.credentials.Delete(r.Context(), id); HandleRepoError(w, h.logger, err, "credential not found") {
		return
	}
	NoContent(w)
}
