package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/crypticpy/COA-AI-Template/internal/extract"
	"github.com/crypticpy/COA-AI-Template/internal/provider"
)

const maxAnalyzeBodySize = 10 << 20 // base64 PDFs are bulky

// maxAnalysisChars caps the text handed to the fast model so a large
// document cannot blow the prompt budget.
const maxAnalysisChars = 48 << 10

const defaultAnalysisPrompt = "Summarize the key points of the following text in a few sentences."

type analyzeRequest struct {
	Prompt        string `json:"prompt"`
	Text          string `json:"text"`
	URL           string `json:"url"`
	ContentBase64 string `json:"content_base64"`
	ContentType   string `json:"content_type"`
}

type analyzeResponse struct {
	Analysis string         `json:"analysis"`
	Model    string         `json:"model"`
	Attempts int            `json:"attempts"`
	Usage    provider.Usage `json:"usage"`
}

func handleAnalyze(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxAnalyzeBodySize)
		defer r.Body.Close()

		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		var text string
		switch {
		case req.Text != "":
			text = extract.Clean(req.Text)

		case req.URL != "":
			fetched, err := extract.FromURL(r.Context(), req.URL)
			if err != nil {
				httpError(w, http.StatusBadGateway, "api_error", "fetching url: %v", err)
				return
			}
			text = fetched

		case req.ContentBase64 != "":
			raw, err := base64.StdEncoding.DecodeString(req.ContentBase64)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid base64 content")
				return
			}
			text, err = extractUpload(raw, req.ContentType)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "extracting document text: %v", err)
				return
			}

		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "one of text, url or content_base64 is required")
			return
		}

		if text == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "document contains no extractable text")
			return
		}
		text = extract.Truncate(text, maxAnalysisChars)

		prompt := req.Prompt
		if prompt == "" {
			prompt = defaultAnalysisPrompt
		}

		res, err := deps.Gateway.QuickAnalysis(r.Context(), prompt, text)
		if err != nil {
			gatewayError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, analyzeResponse{
			Analysis: res.Content,
			Model:    res.Model,
			Attempts: res.Attempts,
			Usage:    res.Usage,
		})
	}
}

func extractUpload(raw []byte, contentType string) (string, error) {
	switch {
	case contentType == "application/pdf":
		return extract.FromPDF(bytes.NewReader(raw), int64(len(raw)))
	case strings.HasPrefix(contentType, "text/html"):
		return extract.FromHTML(bytes.NewReader(raw))
	default:
		return extract.Clean(string(raw)), nil
	}
}
