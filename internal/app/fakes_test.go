package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"lexdesk/internal/ai"
	"lexdesk/internal/billing"
	"lexdesk/internal/model"
	"lexdesk/internal/repository"
	"lexdesk/internal/testutil"
)

type sentMail struct {
	To   string
	Code string
}

type fakeMailer struct {
	mu      sync.Mutex
	resets  []sentMail
	welcome []string
	err     error
}

func (m *fakeMailer) SendWelcome(_ context.Context, to, _ string, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcome = append(m.welcome, to)
	return m.err
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, code string, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.resets = append(m.resets, sentMail{To: to, Code: code})
	return nil
}

// storePublisher persists synchronously, standing in for the queue and the
// persist worker.
type storePublisher struct {
	repo *repository.MessageRepository
	err  error
}

func (p *storePublisher) Publish(_ context.Context, msg model.Message) error {
	if p.err != nil {
		return p.err
	}
	return p.repo.Create(&msg)
}

type memoryHistory struct {
	mu      sync.Mutex
	history map[string][]model.Message
	dirty   map[string]bool
}

func newMemoryHistory() *memoryHistory {
	return &memoryHistory{history: map[string][]model.Message{}, dirty: map[string]bool{}}
}

func (h *memoryHistory) GetHistory(_ context.Context, chatID string) ([]model.Message, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	msgs, ok := h.history[chatID]
	return msgs, ok, nil
}

func (h *memoryHistory) SetHistory(_ context.Context, chatID string, messages []model.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.history[chatID] = messages
	return nil
}

func (h *memoryHistory) DeleteHistory(_ context.Context, chatID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.history, chatID)
	delete(h.dirty, chatID)
	return nil
}

func (h *memoryHistory) MarkDirty(_ context.Context, chatID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dirty[chatID] = true
	return nil
}

func (h *memoryHistory) IsDirty(_ context.Context, chatID string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dirty[chatID], nil
}

type fakeLLM struct {
	answer    string
	title     string
	chunks    []string
	streamErr error
	prompts   [][]ai.ChatMessage
}

func (l *fakeLLM) Complete(_ context.Context, messages []ai.ChatMessage) (string, error) {
	if len(messages) > 0 && strings.Contains(messages[0].Content, "title") {
		return l.title, nil
	}
	l.prompts = append(l.prompts, messages)
	return l.answer, nil
}

func (l *fakeLLM) StreamComplete(_ context.Context, messages []ai.ChatMessage, onChunk func(string) error) (string, error) {
	l.prompts = append(l.prompts, messages)
	var sb strings.Builder
	for _, c := range l.chunks {
		if err := onChunk(c); err != nil {
			return sb.String(), err
		}
		sb.WriteString(c)
	}
	return sb.String(), l.streamErr
}

// keywordEmbedder maps text onto a fixed vocabulary so similarity is
// predictable.
type keywordEmbedder struct {
	vocab []string
	calls int
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	lower := strings.ToLower(text)
	vec := make([]float32, len(e.vocab)+1)
	for i, w := range e.vocab {
		vec[i] = float32(strings.Count(lower, w))
	}
	vec[len(e.vocab)] = 0.01
	return vec, nil
}

func (e *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, errors.New("blank input")
		}
		v, _ := e.Embed(ctx, t)
		out[i] = v
	}
	return out, nil
}

type recordingQueue struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (q *recordingQueue) EnqueueVectorize(_ context.Context, fileID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, fileID)
	return nil
}

type fakeGateway struct {
	customers int
	checkouts []billing.CheckoutRequest
	event     billing.Event
	eventErr  error
}

func (g *fakeGateway) PriceFor(plan model.PlanType) (string, bool) {
	switch plan {
	case model.PlanBasic:
		return "price_basic", true
	case model.PlanPro:
		return "price_pro", true
	}
	return "", false
}

func (g *fakeGateway) PlanFor(priceID string) model.PlanType {
	switch priceID {
	case "price_basic":
		return model.PlanBasic
	case "price_pro":
		return model.PlanPro
	}
	return ""
}

func (g *fakeGateway) CreateCustomer(_ context.Context, _, _, _ string) (string, error) {
	g.customers++
	return "cus_test", nil
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req billing.CheckoutRequest) (string, error) {
	g.checkouts = append(g.checkouts, req)
	return "https://checkout.stripe.test/session", nil
}

func (g *fakeGateway) CreatePortalSession(_ context.Context, customerID, _ string) (string, error) {
	return "https://billing.stripe.test/" + customerID, nil
}

func (g *fakeGateway) ConstructEvent(payload []byte, _ string) (billing.Event, error) {
	if g.eventErr != nil {
		return billing.Event{}, g.eventErr
	}
	ev := g.event
	ev.Payload = payload
	return ev, nil
}

func createUser(t *testing.T, db *gorm.DB, email string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{Email: email, PasswordHash: "x", Name: "Test", Role: role}
	if role == model.RoleLawyer {
		card := strings.ToUpper(strings.Split(email, "@")[0])
		u.ProfessionalCardNumber = &card
		u.Specialty = "civil"
	}
	if err := repository.NewUserRepository(db).Create(u); err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return u
}

func actorFor(u *model.User) Actor {
	return Actor{UserID: u.ID, Email: u.Email, Role: u.Role}
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func testDB(t *testing.T) *gorm.DB {
	return testutil.NewDB(t)
}

var nopLog = zap.NewNop()
