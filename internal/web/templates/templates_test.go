package templates

import (
	"bytes"
	"context"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/ideaforge-api/internal/models"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestLanding(t *testing.T) {
	tests := []struct {
		name     string
		signedIn bool
		want     string
		absent   string
	}{
		{name: "anonymous", signedIn: false, want: `href="/login">Get started`, absent: "Sign out"},
		{name: "signed in", signedIn: true, want: `href="/dashboard">Open dashboard`, absent: `>Sign in<`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := render(t, Landing(tt.signedIn))
			assert.Contains(t, html, "<!doctype html>")
			assert.Contains(t, html, tt.want)
			assert.NotContains(t, html, tt.absent)
			assert.Contains(t, html, `data-endpoint="/api/demo-requests"`)
		})
	}
}

func TestPricing_MarksCurrentPlan(t *testing.T) {
	html := render(t, Pricing(models.Plans, models.PlanPro))
	for _, plan := range models.Plans {
		assert.Contains(t, html, templ.EscapeString(plan.Name))
	}
	assert.Contains(t, html, "Current plan")
	assert.Contains(t, html, "Free")
	assert.Contains(t, html, "$29 / month")
	assert.Contains(t, html, "Contact us")
	assert.Contains(t, html, "Unlimited generations")
	assert.Contains(t, html, `<article class="plan highlighted current">`)
	assert.Contains(t, html, `<article class="plan">`)
}

func TestPlanLabels(t *testing.T) {
	tests := []struct {
		plan    models.Plan
		price   string
		credits string
	}{
		{plan: models.Plan{ID: models.PlanStarter, MonthlyCredits: 50}, price: "Free", credits: "50 credits per month"},
		{plan: models.Plan{ID: models.PlanPro, MonthlyPrice: 29, MonthlyCredits: 1000}, price: "$29 / month", credits: "1000 credits per month"},
		{plan: models.Plan{ID: models.PlanEnterprise}, price: "Contact us", credits: "Unlimited generations"},
	}

	for _, tt := range tests {
		t.Run(tt.plan.ID, func(t *testing.T) {
			assert.Equal(t, tt.price, planPrice(tt.plan))
			assert.Equal(t, tt.credits, planCredits(tt.plan))
		})
	}
}

func TestLayout_RendersBodyInsideMain(t *testing.T) {
	body := templ.Raw(`<p id="content">hi</p>`)

	tests := []struct {
		name     string
		signedIn bool
		want     string
	}{
		{name: "anonymous", want: `<a href="/login">Sign in</a>`},
		{name: "signed in", signedIn: true, want: `action="/api/auth/logout"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := render(t, Layout("Tom & Jerry", tt.signedIn, body))
			assert.Contains(t, html, "<title>Tom &amp; Jerry · IdeaForge</title>")
			assert.Contains(t, html, `<main><p id="content">hi</p></main>`)
			assert.Contains(t, html, tt.want)
		})
	}
}

func TestLogin_ProvidersAndError(t *testing.T) {
	html := render(t, Login(LoginData{Error: "<b>nope</b>", GitHubEnabled: true}))
	assert.Contains(t, html, "&lt;b&gt;nope&lt;/b&gt;")
	assert.NotContains(t, html, "<b>nope</b>")
	assert.Contains(t, html, "/api/auth/github")
	assert.NotContains(t, html, "/api/auth/google")
}

func TestDashboard(t *testing.T) {
	data := DashboardData{
		Email:         "ada@example.org",
		Name:          "Ada <script>",
		Plan:          "Pro",
		Credits:       3,
		Low:           true,
		TotalRequests: 12,
		Stages:        []StageCount{{Stage: "ideation", Count: 2}, {Stage: "pilot", Count: 1}},
		Ideas: []IdeaRow{
			{Title: "Sodium anodes", Topic: "batteries", GapScore: 8, Industrial: true, Quadrant: "frontier"},
		},
	}

	html := render(t, Dashboard(data))
	assert.Contains(t, html, "Ada &lt;script&gt;")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "Running low")
	assert.Contains(t, html, "Sodium anodes")
	assert.Contains(t, html, "Industrial")
	assert.Contains(t, html, `<span class="stage">pilot</span><span class="count">1</span>`)
}

func TestDashboard_Empty(t *testing.T) {
	html := render(t, Dashboard(DashboardData{Email: "a@example.org", Unlimited: true}))
	assert.Contains(t, html, "No saved ideas yet.")
	assert.Contains(t, html, "Unlimited")
	assert.NotContains(t, html, "Running low")
}
