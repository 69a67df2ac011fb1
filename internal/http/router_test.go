package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dreamreel/dreamreel-api/internal/billing"
	"github.com/dreamreel/dreamreel-api/internal/config"
	"github.com/dreamreel/dreamreel-api/internal/db"
	"github.com/dreamreel/dreamreel-api/internal/entitlement"
	"github.com/dreamreel/dreamreel-api/internal/generation"
	"github.com/dreamreel/dreamreel-api/internal/identity"
	"github.com/dreamreel/dreamreel-api/internal/ledger"
	"github.com/dreamreel/dreamreel-api/internal/limits"
	"github.com/dreamreel/dreamreel-api/internal/models"
	"github.com/dreamreel/dreamreel-api/internal/payments"
	"github.com/dreamreel/dreamreel-api/internal/storage"
	"github.com/dreamreel/dreamreel-api/internal/tier"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type stubResolver struct {
	account identity.Account
	err     error
}

func (s stubResolver) Verify(_ context.Context, _ string) (identity.Account, error) {
	if s.err != nil {
		return identity.Account{}, s.err
	}
	return s.account, nil
}

type stubCustomers struct {
	userID string
}

func (s stubCustomers) Customer(_ context.Context, customerID string) (payments.Customer, error) {
	return payments.Customer{ID: customerID, Metadata: map[string]string{"userId": s.userID}}, nil
}

type testEnv struct {
	router       *gin.Engine
	conn         *gorm.DB
	entitlements *entitlement.Store
	usage        *ledger.Ledger
}

func newTestEnv(t *testing.T, resolver identity.Resolver, videoURL, imageURL, paymentsURL string) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	entitlements := entitlement.NewStore(conn)
	usage := ledger.NewLedger(conn)
	table := tier.Default()
	paymentsCfg := config.PaymentsConfig{
		SecretKey:       "sk_test",
		WebhookSecret:   "whsec_test",
		BasicPriceID:    "price_basic",
		PremiumPriceID:  "price_premium",
		BasicPriceUSD:   9.99,
		PremiumPriceUSD: 19.99,
	}
	priceToTier := map[string]string{"price_basic": models.TierBasic, "price_premium": models.TierPremium}

	router := NewRouter(Options{
		Resolver:     resolver,
		Enforcer:     limits.NewEnforcer(entitlements, usage, table),
		Entitlements: entitlements,
		Usage:        usage,
		Tiers:        table,
		Payments:     payments.NewClient("sk_test", paymentsURL),
		PaymentsCfg:  paymentsCfg,
		Sync:         billing.NewSynchronizer(entitlements, stubCustomers{userID: "user-1"}, priceToTier, nil, conn),
		Videos:       generation.NewVideoClient("video-key", videoURL),
		Images:       generation.NewImageClient("image-key", imageURL),
		Media:        storage.NewMediaStore(conn, nil),
	})
	return testEnv{router: router, conn: conn, entitlements: entitlements, usage: usage}
}

func doRequest(env testEnv, method, path, body string, authed bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if authed {
		req.Header.Set("Authorization", "Bearer token-1")
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if errDecode := json.Unmarshal(w.Body.Bytes(), &body); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	return body
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, stubResolver{account: identity.Account{ID: "user-1"}}, "", "", "")
	w := doRequest(env, http.MethodGet, "/healthz", "", false)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAuthMissingHeader(t *testing.T) {
	env := newTestEnv(t, stubResolver{account: identity.Account{ID: "user-1"}}, "", "", "")
	w := doRequest(env, http.MethodGet, "/api/subscription", "", false)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAuthIdentityUnavailable(t *testing.T) {
	env := newTestEnv(t, stubResolver{err: fmt.Errorf("verify: %w", identity.ErrUnavailable)}, "", "", "")
	w := doRequest(env, http.MethodGet, "/api/subscription", "", true)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

func TestAuthBadToken(t *testing.T) {
	env := newTestEnv(t, stubResolver{err: identity.ErrUnauthorized}, "", "", "")
	w := doRequest(env, http.MethodGet, "/api/subscription", "", true)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestSubscriptionSummaryDefaultsFree(t *testing.T) {
	env := newTestEnv(t, stubResolver{account: identity.Account{ID: "user-1"}}, "", "", "")
	w := doRequest(env, http.MethodGet, "/api/subscription", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	sub := body["subscription"].(map[string]any)
	if sub["tier"] != models.TierFree {
		t.Fatalf("tier = %v", sub["tier"])
	}
	if sub["active"] != true {
		t.Fatalf("active = %v", sub["active"])
	}
	images := body["usage"].(map[string]any)["images"].(map[string]any)
	if images["used"].(float64) != 0 || images["limit"].(float64) != 3 {
		t.Fatalf("image usage = %v", images)
	}
}

func TestPlansArePublic(t *testing.T) {
	env := newTestEnv(t, stubResolver{account: identity.Account{ID: "user-1"}}, "", "", "")
	w := doRequest(env, http.MethodGet, "/api/subscription-plans", "", false)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	plans := decodeBody(t, w)
	premium := plans[models.TierPremium].(map[string]any)
	if premium["id"] != "price_premium" || premium["name"] != "Premium" {
		t.Fatalf("premium plan = %v", premium)
	}
	basic := plans[models.TierBasic].(map[string]any)
	if basic["price"].(float64) != 9.99 {
		t.Fatalf("basic price = %v", basic["price"])
	}
}

func TestGenerateImageFlow(t *testing.T) {
	imageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"images": []string{"https://cdn.example/img-1.png"}})
	}))
	defer imageSrv.Close()

	env := newTestEnv(t, stubResolver{account: identity.Account{ID: "user-1"}}, "", imageSrv.URL, "")
	w := doRequest(env, http.MethodPost, "/api/generate-image", `{"prompt":"a red fox"}`, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	images := decodeBody(t, w)["images"].([]any)
	if len(images) != 1 || images[0] != "https://cdn.example/img-1.png" {
		t.Fatalf("images = %v", images)
	}

	used, errCount := env.usage.Count(context.Background(), "user-1", models.KindImage, ledger.Today())
	if errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if used != 1 {
		t.Fatalf("images used = %d, want 1", used)
	}
}

func TestGenerateImageDeniedAtLimit(t *testing.T) {
	env := newTestEnv(t, stubResolver{account: identity.Account{ID: "user-1"}}, "", "", "")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if errIncrement := env.usage.Increment(ctx, "user-1", models.KindImage, ledger.Today()); errIncrement != nil {
			t.Fatalf("increment: %v", errIncrement)
		}
	}

	w := doRequest(env, http.MethodPost, "/api/generate-image", `{"prompt":"a red fox"}`, true)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["error"] != limits.ReasonLimitReached {
		t.Fatalf("error = %v", body["error"])
	}
	usage := body["usage"].(map[string]any)
	if usage["used"].(float64) != 3 || usage["limit"].(float64) != 3 {
		t.Fatalf("usage = %v", usage)
	}
}

func TestGenerateVideoRequiresPromptImage(t *testing.T) {
	env := newTestEnv(t, stubResolver{account: identity.Account{ID: "user-1"}}, "", "", "")
	w := doRequest(env, http.MethodPost, "/api/generate-video-from-image", `{"prompt":"waves"}`, true)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGenerateVideoFromTextFlow(t *testing.T) {
	videoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"task_id": "task-9", "status": "PENDING"})
	}))
	defer videoSrv.Close()

	env := newTestEnv(t, stubResolver{account: identity.Account{ID: "user-1"}}, videoSrv.URL, "", "")
	w := doRequest(env, http.MethodPost, "/api/generate-video-from-text", `{"prompt":"waves at sunset"}`, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if got := decodeBody(t, w)["taskId"]; got != "task-9" {
		t.Fatalf("taskId = %v", got)
	}

	used, _ := env.usage.Count(context.Background(), "user-1", models.KindVideo, ledger.Today())
	if used != 1 {
		t.Fatalf("videos used = %d, want 1", used)
	}
}

func TestVideoStatusStoresFinishedTaskOnce(t *testing.T) {
	videoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"task_id": "task-5",
			"status":  generation.StatusSucceeded,
			"output":  []string{"https://provider.example/video-5.mp4"},
			"input":   map[string]any{"prompt": "waves", "mode": models.ModeTextToVideo, "aspect_ratio": "16:9"},
		})
	}))
	defer videoSrv.Close()

	env := newTestEnv(t, stubResolver{account: identity.Account{ID: "user-1"}}, videoSrv.URL, "", "")
	for i := 0; i < 2; i++ {
		w := doRequest(env, http.MethodGet, "/api/video-status/task-5", "", true)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		body := decodeBody(t, w)
		if body["status"] != generation.StatusSucceeded {
			t.Fatalf("task status = %v", body["status"])
		}
		if body["videoUrl"] != "https://provider.example/video-5.mp4" {
			t.Fatalf("videoUrl = %v", body["videoUrl"])
		}
	}

	var count int64
	if errCount := env.conn.Model(&models.GeneratedVideo{}).Where("task_id = ?", "task-5").Count(&count).Error; errCount != nil {
		t.Fatalf("count videos: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("stored videos = %d, want 1", count)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	env := newTestEnv(t, stubResolver{account: identity.Account{ID: "user-1"}}, "", "", "")
	req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(`{"id":"evt_1","type":"customer.subscription.updated"}`))
	req.Header.Set("Stripe-Signature", "t=123,v1=deadbeef")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestWebhookAppliesSubscriptionUpdate(t *testing.T) {
	env := newTestEnv(t, stubResolver{account: identity.Account{ID: "user-1"}}, "", "", "")

	payload := []byte(`{
		"id": "evt_10",
		"type": "customer.subscription.updated",
		"data": {"object": {
			"id": "sub_10",
			"customer": "cus_10",
			"status": "active",
			"current_period_end": 1790000000,
			"items": {"data": [{"price": {"id": "price_basic"}}]}
		}}
	}`)
	req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", payments.SignPayload(payload, "whsec_test", time.Now()))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if decodeBody(t, w)["received"] != true {
		t.Fatalf("body = %s", w.Body.String())
	}

	sub, errCurrent := env.entitlements.Current(context.Background(), "user-1")
	if errCurrent != nil {
		t.Fatalf("current: %v", errCurrent)
	}
	if sub.Tier != models.TierBasic || !sub.Active {
		t.Fatalf("subscription = %+v", sub)
	}
}

func TestCheckoutSessionRejectsUnknownPrice(t *testing.T) {
	env := newTestEnv(t, stubResolver{account: identity.Account{ID: "user-1"}}, "", "", "")
	w := doRequest(env, http.MethodPost, "/api/create-checkout-session", `{"priceId":"price_bogus","successUrl":"https://app.example/ok","cancelUrl":"https://app.example/no"}`, true)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestCheckoutSessionFlow(t *testing.T) {
	paymentsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/v1/customers"):
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "cus_new"})
		case strings.HasPrefix(r.URL.Path, "/v1/checkout/sessions"):
			if errForm := r.ParseForm(); errForm != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if r.PostForm.Get("customer") != "cus_new" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "cs_1", "url": "https://pay.example/cs_1"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer paymentsSrv.Close()

	env := newTestEnv(t, stubResolver{account: identity.Account{ID: "user-1", Email: "u@example.com"}}, "", "", paymentsSrv.URL)
	w := doRequest(env, http.MethodPost, "/api/create-checkout-session", `{"priceId":"price_basic","successUrl":"https://app.example/ok","cancelUrl":"https://app.example/no"}`, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["url"] != "https://pay.example/cs_1" || body["sessionId"] != "cs_1" {
		t.Fatalf("body = %v", body)
	}
}

func TestPortalSessionRequiresBillingAccount(t *testing.T) {
	env := newTestEnv(t, stubResolver{account: identity.Account{ID: "user-1"}}, "", "", "")
	w := doRequest(env, http.MethodPost, "/api/create-portal-session", `{"returnUrl":"https://app.example/account"}`, true)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestUserContentListsMedia(t *testing.T) {
	env := newTestEnv(t, stubResolver{account: identity.Account{ID: "user-1"}}, "", "", "")
	row := models.GeneratedVideo{UserID: "user-1", TaskID: "task-1", Prompt: "waves", SourceURL: "https://provider.example/v.mp4"}
	if errCreate := env.conn.Create(&row).Error; errCreate != nil {
		t.Fatalf("seed video: %v", errCreate)
	}

	w := doRequest(env, http.MethodGet, "/api/user/content", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if videos := body["videos"].([]any); len(videos) != 1 {
		t.Fatalf("videos = %v", videos)
	}
	if images, ok := body["images"].([]any); ok && len(images) != 0 {
		t.Fatalf("images = %v", images)
	}
}
