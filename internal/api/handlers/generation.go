package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/ideaforge-api/internal/generation"
	"github.com/Conceptual-Machines/ideaforge-api/internal/logger"
	"github.com/Conceptual-Machines/ideaforge-api/internal/middleware"
	"github.com/Conceptual-Machines/ideaforge-api/internal/models"
	"github.com/Conceptual-Machines/ideaforge-api/internal/services"
)

const (
	maxExtractBytes  = 10 << 20
	extractFormField = "file"

	headerCreditsBalance = "X-Credits-Balance"
	headerCreditsLow     = "X-Credits-Low"
)

// Generator runs one generation operation.
type Generator interface {
	Run(ctx context.Context, req generation.Request) (generation.Result, error)
	ModelFor(op generation.Operation) string
}

type GenerationHandler struct {
	gen     Generator
	credits *services.CreditsService
}

func NewGenerationHandler(gen Generator, credits *services.CreditsService) *GenerationHandler {
	return &GenerationHandler{gen: gen, credits: credits}
}

// GenerateRequest is the JSON body shared by every generation endpoint. Each
// operation reads only its own fields.
type GenerateRequest struct {
	Topic      string   `json:"topic"`
	Context    string   `json:"context"`
	Titles     []string `json:"titles"`
	Industrial bool     `json:"industrial"`
	Proposal   string   `json:"proposal"`
	Content    []byte   `json:"content"` // base64 in JSON
	MIMEType   string   `json:"mime_type"`
}

// GenerateResponse wraps a successful result.
type GenerateResponse struct {
	Operation      string            `json:"operation"`
	Model          string            `json:"model"`
	Result         generation.Result `json:"result"`
	CreditsCharged int               `json:"credits_charged"`
}

// Handle returns the endpoint for op.
func (h *GenerationHandler) Handle(op generation.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := middleware.GetCurrentUser(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		req, status, err := bindGenerationRequest(c, op)
		if err != nil {
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		if _, err := h.credits.CheckCredits(user); err != nil {
			if errors.Is(err, services.ErrOverdraft) {
				c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
				return
			}
			logger.Error("Failed to check credits", err, logger.Fields{"user_id": user.ID})
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check credits"})
			return
		}

		ctx, info := generation.TrackCall(c.Request.Context())
		result, err := h.gen.Run(ctx, req)

		usage := &models.UsageLog{
			UserID:       user.ID,
			Operation:    string(op),
			Model:        info.Model,
			Provider:     info.Provider,
			Success:      err == nil,
			InputTokens:  info.Usage.InputTokens,
			OutputTokens: info.Usage.OutputTokens,
			TotalTokens:  info.Usage.TotalTokens,
			DurationMS:   int(info.Duration / time.Millisecond),
			RequestID:    c.GetString("request_id"),
		}
		if usage.Model == "" {
			usage.Model = h.gen.ModelFor(op)
		}

		if err != nil {
			usage.ErrorKind = generation.KindOf(err).String()
			h.logUsage(usage)
			c.JSON(statusForGenerationError(err), gin.H{
				"error": generation.UserMessage(err),
				"kind":  usage.ErrorKind,
			})
			return
		}

		if !models.HasUnlimitedCredits(user.Role) {
			cost := h.credits.CalculateCredits(info.Usage.TotalTokens)
			if err := h.credits.DeductCredits(user.ID, cost); err != nil {
				// The result was already paid for upstream; still return it.
				logger.Error("Failed to deduct credits", err, logger.Fields{"user_id": user.ID, "operation": string(op)})
			} else {
				usage.CreditsCharged = cost
			}
		}
		h.logUsage(usage)
		h.setCreditHeaders(c, user)

		c.JSON(http.StatusOK, GenerateResponse{
			Operation:      op.Alias(),
			Model:          usage.Model,
			Result:         result,
			CreditsCharged: usage.CreditsCharged,
		})
	}
}

func (h *GenerationHandler) logUsage(usage *models.UsageLog) {
	if err := h.credits.LogUsage(usage); err != nil {
		logger.Error("Failed to log usage", err, logger.Fields{"user_id": usage.UserID, "operation": usage.Operation})
	}
}

func (h *GenerationHandler) setCreditHeaders(c *gin.Context, user *models.User) {
	if models.HasUnlimitedCredits(user.Role) {
		return
	}
	credits, err := h.credits.GetUserCredits(user.ID)
	if err != nil {
		return
	}
	c.Header(headerCreditsBalance, fmt.Sprintf("%d", credits.Credits))
	if models.IsLowBalance(user.Role, credits.Credits) {
		c.Header(headerCreditsLow, "true")
	}
}

// statusForGenerationError maps failure kinds to HTTP status codes.
func statusForGenerationError(err error) int {
	switch generation.KindOf(err) {
	case generation.KindConfiguration:
		return http.StatusServiceUnavailable
	case generation.KindTransport, generation.KindShape:
		return http.StatusBadGateway
	default:
		if errors.Is(err, context.Canceled) {
			return http.StatusRequestTimeout
		}
		return http.StatusInternalServerError
	}
}

// bindGenerationRequest decodes the body for op and checks its primary input.
func bindGenerationRequest(c *gin.Context, op generation.Operation) (generation.Request, int, error) {
	req := generation.Request{Operation: op}

	if op == generation.OpExtractText && strings.HasPrefix(c.ContentType(), "multipart/") {
		content, mimeType, status, err := readUpload(c)
		if err != nil {
			return req, status, err
		}
		req.Content = content
		req.MIMEType = mimeType
		return req, http.StatusOK, nil
	}

	var body GenerateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		return req, http.StatusBadRequest, err
	}

	req.Topic = strings.TrimSpace(body.Topic)
	req.Context = strings.TrimSpace(body.Context)
	req.Titles = nonEmpty(body.Titles)
	req.Industrial = body.Industrial

	switch op {
	case generation.OpExpandTopic, generation.OpGenerateIdeas, generation.OpAnalyzeLiterature:
		if req.Topic == "" {
			return req, http.StatusBadRequest, errors.New("topic is required")
		}
	case generation.OpResearchQuestions, generation.OpExperimentDesigns:
		if req.Context == "" {
			return req, http.StatusBadRequest, errors.New("context is required")
		}
	case generation.OpCritiqueProposal:
		if proposal := strings.TrimSpace(body.Proposal); proposal != "" {
			req.Context = proposal
		}
		if req.Context == "" {
			return req, http.StatusBadRequest, errors.New("proposal is required")
		}
	case generation.OpExtractText:
		if len(body.Content) == 0 {
			return req, http.StatusBadRequest, errors.New("content is required")
		}
		if len(body.Content) > maxExtractBytes {
			return req, http.StatusRequestEntityTooLarge, errTooLarge
		}
		req.Content = body.Content
		req.MIMEType = body.MIMEType
		if req.MIMEType == "" {
			req.MIMEType = http.DetectContentType(body.Content)
		}
	}
	return req, http.StatusOK, nil
}

var errTooLarge = fmt.Errorf("document exceeds %d MiB", maxExtractBytes>>20)

func readUpload(c *gin.Context) ([]byte, string, int, error) {
	header, err := c.FormFile(extractFormField)
	if err != nil {
		return nil, "", http.StatusBadRequest, fmt.Errorf("form field %q is required", extractFormField)
	}
	if header.Size > maxExtractBytes {
		return nil, "", http.StatusRequestEntityTooLarge, errTooLarge
	}

	f, err := header.Open()
	if err != nil {
		return nil, "", http.StatusBadRequest, err
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxExtractBytes+1))
	if err != nil {
		return nil, "", http.StatusBadRequest, err
	}
	if len(content) > maxExtractBytes {
		return nil, "", http.StatusRequestEntityTooLarge, errTooLarge
	}
	if len(content) == 0 {
		return nil, "", http.StatusBadRequest, errors.New("uploaded file is empty")
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(content)
	}
	return content, mimeType, http.StatusOK, nil
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
