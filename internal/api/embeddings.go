package api

import (
	"encoding/json"
	"net/http"

	"github.com/crypticpy/COA-AI-Template/internal/provider"
)

const maxEmbedInputs = 256

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingsResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Model      string      `json:"model"`
	Count      int         `json:"count"`
}

func handleEmbeddings(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if len(req.Input) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "input is required and must not be empty")
			return
		}
		if len(req.Input) > maxEmbedInputs {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "input exceeds %d items", maxEmbedInputs)
			return
		}

		model := req.Model
		if model == "" {
			model = deps.EmbedModel
		}

		vecs, err := provider.EmbedAll(r.Context(), deps.Provider, model, req.Input)
		if err != nil {
			embedError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, embeddingsResponse{
			Embeddings: vecs,
			Model:      model,
			Count:      len(vecs),
		})
	}
}
