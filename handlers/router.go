package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ferreirogomes/fnft/chain"
	"github.com/ferreirogomes/fnft/models"
)

// APIKeyHeader deve ser igual a services.APIKeyHeader.
const APIKeyHeader = "X-API-Key"

// NewRouter monta todos os handlers. Quando apiKey não é vazia, as rotas que
// alteram estado a exigem no header X-API-Key.
func NewRouter(c *chain.Local, events EventStore, apiKey string) http.Handler {
	chainHandler := NewChainHandler(c)
	registryHandler := NewRegistryHandler(c)
	vaultHandler := NewVaultHandler(c, events)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.URLFormat)

	r.Get("/chain", chainHandler.GetStatus)
	r.Get("/accounts/{address}/nonce", chainHandler.GetNonce)
	r.With(requireAPIKey(apiKey)).Post("/transactions", chainHandler.SubmitTransaction)

	r.Route("/registries/{address}", func(r chi.Router) {
		r.Get("/", registryHandler.GetRegistry)
		r.Get("/balances/{account}", registryHandler.GetTokenCount)
		r.Get("/tokens/{id}/owner", registryHandler.GetOwner)
	})

	r.Route("/vaults/{address}", func(r chi.Router) {
		r.Get("/", vaultHandler.GetVault)
		r.Get("/balances/{account}", vaultHandler.GetBalance)
		r.Get("/custody/{registry}/{id}", vaultHandler.GetCustody)
		r.Get("/fractionalizations", vaultHandler.GetRecords)
		r.Get("/events", vaultHandler.GetEvents)
	})
	return r
}

func requireAPIKey(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(APIKeyHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(apiKey)) != 1 {
				writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "chave de API ausente ou inválida", Code: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
