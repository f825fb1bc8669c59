package handlers

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/ideaforge-api/internal/generation"
	"github.com/Conceptual-Machines/ideaforge-api/internal/models"
	"github.com/Conceptual-Machines/ideaforge-api/internal/services"
)

func setupGenerationRouter(t *testing.T, db *gorm.DB, gen *fakeGenerator, user *models.User) *gin.Engine {
	t.Helper()
	handler := NewGenerationHandler(gen, services.NewCreditsService(db))
	router := gin.New()
	group := router.Group("/api/v1", asUser(user))
	for _, op := range generation.Operations {
		group.POST("/generate/"+op.Alias(), handler.Handle(op))
	}
	return router
}

func TestGenerate_SuccessChargesAndLogs(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "ada@example.org", models.RoleUser, 20)
	gen := &fakeGenerator{result: generation.TopicList{"solid-state electrolytes", "anode coatings"}}
	router := setupGenerationRouter(t, db, gen, user)

	w := doJSON(t, router, http.MethodPost, "/api/v1/generate/topics", map[string]any{"topic": " batteries "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "topics", body["operation"])
	assert.Equal(t, []any{"solid-state electrolytes", "anode coatings"}, body["result"])
	assert.Equal(t, float64(1), body["credits_charged"])
	assert.Equal(t, "batteries", gen.last.Topic)

	assert.Equal(t, "19", w.Header().Get(headerCreditsBalance))
	assert.Equal(t, "true", w.Header().Get(headerCreditsLow))

	var logs []models.UsageLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Success)
	assert.Equal(t, string(generation.OpExpandTopic), logs[0].Operation)
	assert.Equal(t, generation.DefaultFastModel, logs[0].Model)
	assert.Equal(t, 1, logs[0].CreditsCharged)
}

func TestGenerate_UnlimitedRoleIsNotCharged(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "beta@example.org", models.RoleBeta, 0)
	gen := &fakeGenerator{result: generation.QuestionList{"Q1", "Q2", "Q3"}}
	router := setupGenerationRouter(t, db, gen, user)

	w := doJSON(t, router, http.MethodPost, "/api/v1/generate/questions", map[string]any{"context": "grid storage"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get(headerCreditsBalance))

	var credits models.UserCredits
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&credits).Error)
	assert.Equal(t, 0, credits.Credits)
}

func TestGenerate_Overdraft(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "broke@example.org", models.RoleUser, -1)
	gen := &fakeGenerator{result: generation.TopicList{"x"}}
	router := setupGenerationRouter(t, db, gen, user)

	w := doJSON(t, router, http.MethodPost, "/api/v1/generate/topics", map[string]any{"topic": "batteries"})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, 0, gen.calls)
}

func TestGenerate_FailedDeductionChargesNothing(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "race@example.org", models.RoleUser, 0)
	gen := &fakeGenerator{result: generation.TopicList{"x"}}
	// A concurrent request spends the last credit while this one is in flight.
	gen.onRun = func() {
		require.NoError(t, db.Model(&models.UserCredits{}).Where("user_id = ?", user.ID).Update("credits", -1).Error)
	}
	router := setupGenerationRouter(t, db, gen, user)

	w := doJSON(t, router, http.MethodPost, "/api/v1/generate/topics", map[string]any{"topic": "batteries"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(0), decode(t, w)["credits_charged"])

	var logs []models.UsageLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Success)
	assert.Zero(t, logs[0].CreditsCharged)

	stats, err := services.NewCreditsService(db).GetUserUsageStats(user.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Zero(t, stats.TotalCreditsUsed)
}

func TestGenerate_Validation(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "ada@example.org", models.RoleUser, 10)
	gen := &fakeGenerator{result: generation.TopicList{"x"}}
	router := setupGenerationRouter(t, db, gen, user)

	tests := []struct {
		path string
		body map[string]any
	}{
		{path: "/api/v1/generate/topics", body: map[string]any{"topic": "   "}},
		{path: "/api/v1/generate/ideas", body: map[string]any{"context": "only context"}},
		{path: "/api/v1/generate/literature", body: map[string]any{"titles": []string{"A"}}},
		{path: "/api/v1/generate/questions", body: map[string]any{}},
		{path: "/api/v1/generate/designs", body: map[string]any{"topic": "x"}},
		{path: "/api/v1/generate/critique", body: map[string]any{"proposal": ""}},
		{path: "/api/v1/generate/extract", body: map[string]any{"mime_type": "application/pdf"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
	assert.Equal(t, 0, gen.calls)
}

func TestGenerate_FailureStatus(t *testing.T) {
	tests := []struct {
		name       string
		kind       generation.Kind
		message    string
		wantStatus int
	}{
		{name: "configuration", kind: generation.KindConfiguration, message: generation.MissingKeyMessage, wantStatus: http.StatusServiceUnavailable},
		{name: "transport", kind: generation.KindTransport, message: "Failed to generate ideas. Please try again.", wantStatus: http.StatusBadGateway},
		{name: "shape", kind: generation.KindShape, message: "Failed to generate ideas. Please try again.", wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			user := createUser(t, db, "ada@example.org", models.RoleUser, 10)
			gen := &fakeGenerator{err: &generation.Error{
				Op:      generation.OpGenerateIdeas,
				Kind:    tt.kind,
				Message: tt.message,
				Err:     errors.New("boom"),
			}}
			router := setupGenerationRouter(t, db, gen, user)

			w := doJSON(t, router, http.MethodPost, "/api/v1/generate/ideas", map[string]any{"topic": "batteries"})
			assert.Equal(t, tt.wantStatus, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.message, body["error"])
			assert.Equal(t, tt.kind.String(), body["kind"])

			var credits models.UserCredits
			require.NoError(t, db.Where("user_id = ?", user.ID).First(&credits).Error)
			assert.Equal(t, 10, credits.Credits, "failed calls are free")

			var log models.UsageLog
			require.NoError(t, db.First(&log).Error)
			assert.False(t, log.Success)
			assert.Equal(t, tt.kind.String(), log.ErrorKind)
		})
	}
}

func TestGenerate_CritiqueAcceptsProposal(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "ada@example.org", models.RoleUser, 10)
	gen := &fakeGenerator{result: &generation.RedTeamAnalysis{Weaknesses: []string{"w"}}}
	router := setupGenerationRouter(t, db, gen, user)

	w := doJSON(t, router, http.MethodPost, "/api/v1/generate/critique", map[string]any{"proposal": "We will build it"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "We will build it", gen.last.Context)
	assert.Equal(t, generation.DefaultProModel, decode(t, w)["model"])
}

func TestGenerate_ExtractMultipart(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "ada@example.org", models.RoleUser, 10)
	gen := &fakeGenerator{result: generation.ExtractedText("hello")}
	router := setupGenerationRouter(t, db, gen, user)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "paper.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 body"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "hello", decode(t, w)["result"])
	assert.Equal(t, []byte("%PDF-1.4 body"), gen.last.Content)
	assert.Equal(t, "application/pdf", gen.last.MIMEType)
}

func TestGenerate_ExtractBase64JSON(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "ada@example.org", models.RoleUser, 10)
	gen := &fakeGenerator{result: generation.ExtractedText("hello")}
	router := setupGenerationRouter(t, db, gen, user)

	w := doJSON(t, router, http.MethodPost, "/api/v1/generate/extract", map[string]any{
		"content":   []byte("plain words"),
		"mime_type": "text/plain",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []byte("plain words"), gen.last.Content)
	assert.Equal(t, "text/plain", gen.last.MIMEType)
}

func TestStatusForGenerationError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusForGenerationError(errors.New("other")))
}
