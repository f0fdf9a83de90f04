package handler

import (
	"net/http"

	"github.com/segyhp/microloan-engine/internal/domain"
	"github.com/segyhp/microloan-engine/pkg/response"

	"github.com/go-playground/validator/v10"
)

type ClientHandler struct {
	clients   ClientService
	loans     LoanService
	validator *validator.Validate
}

func NewClientHandler(clients ClientService, loans LoanService) *ClientHandler {
	return &ClientHandler{
		clients:   clients,
		loans:     loans,
		validator: newValidator(),
	}
}

// CreateClient handles POST /api/v1/clients
func (h *ClientHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateClientRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	client, err := h.clients.CreateClient(r.Context(), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, client)
}

// GetClient handles GET /api/v1/clients/{clientId}
func (h *ClientHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	clientID, ok := pathUUID(w, r, "clientId")
	if !ok {
		return
	}

	client, err := h.clients.GetClient(r.Context(), clientID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, client)
}

// ListClients handles GET /api/v1/clients
func (h *ClientHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clients.ListClients(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, clients)
}

// ListClientLoans handles GET /api/v1/clients/{clientId}/loans
func (h *ClientHandler) ListClientLoans(w http.ResponseWriter, r *http.Request) {
	clientID, ok := pathUUID(w, r, "clientId")
	if !ok {
		return
	}

	summaries, err := h.loans.ListClientLoans(r.Context(), clientID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	loans := make([]domain.LoanResponse, 0, len(summaries))
	for _, summary := range summaries {
		loans = append(loans, toLoanResponse(summary))
	}
	response.Success(w, loans)
}
