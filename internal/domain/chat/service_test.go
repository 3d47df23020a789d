package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type mockRepo struct {
	faqs map[uuid.UUID]*FAQ
}

func newMockRepo() *mockRepo {
	return &mockRepo{faqs: make(map[uuid.UUID]*FAQ)}
}

func (m *mockRepo) Create(_ context.Context, f *FAQ) error {
	f.ID = uuid.New()
	m.faqs[f.ID] = f
	return nil
}

func (m *mockRepo) List(_ context.Context, category string) ([]*FAQ, error) {
	var out []*FAQ
	for _, f := range m.faqs {
		if category == "" || f.Category == category {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.faqs[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.faqs, id)
	return nil
}

func (m *mockRepo) Count(_ context.Context) (int, error) {
	return len(m.faqs), nil
}

func seededService(t *testing.T) (*Service, *mockRepo) {
	t.Helper()
	repo := newMockRepo()
	svc := NewService(repo)
	if err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return svc, repo
}

func TestAskMatchesBestFAQ(t *testing.T) {
	svc, _ := seededService(t)

	ans, err := svc.Ask(context.Background(), "What are the visiting hours for the general ward?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !ans.Matched {
		t.Fatal("expected a match")
	}
	if !strings.Contains(ans.Answer, "visiting hours") {
		t.Errorf("answer = %q", ans.Answer)
	}
	if ans.Score < 2 {
		t.Errorf("score = %d, want >= 2 (visiting + hours)", ans.Score)
	}
}

func TestAskIsCaseInsensitive(t *testing.T) {
	svc, _ := seededService(t)

	ans, err := svc.Ask(context.Background(), "HOW DO I BOOK AN APPOINTMENT?")
	if err != nil {
		t.Fatal(err)
	}
	if !ans.Matched || ans.Category != "appointments" {
		t.Errorf("matched = %v, category = %s", ans.Matched, ans.Category)
	}
}

func TestAskPhraseKeyword(t *testing.T) {
	svc, _ := seededService(t)

	// "blood test" is a phrase keyword on the fasting entry.
	ans, err := svc.Ask(context.Background(), "Should I be fasting before my blood test tomorrow?")
	if err != nil {
		t.Fatal(err)
	}
	if !ans.Matched {
		t.Fatal("expected a match")
	}
	if !strings.Contains(ans.Answer, "Fasting") {
		t.Errorf("answer = %q", ans.Answer)
	}
}

func TestAskFallsBack(t *testing.T) {
	svc, _ := seededService(t)

	ans, err := svc.Ask(context.Background(), "Can I bring my parrot to the cafeteria?")
	if err != nil {
		t.Fatal(err)
	}
	if ans.Matched {
		t.Errorf("unexpected match: %q", ans.Answer)
	}
	if ans.Answer != FallbackAnswer {
		t.Errorf("answer = %q", ans.Answer)
	}
	if ans.FAQID != nil {
		t.Error("fallback should not reference an FAQ")
	}
}

func TestAskRequiresQuestion(t *testing.T) {
	svc, _ := seededService(t)
	if _, err := svc.Ask(context.Background(), "   "); err == nil {
		t.Error("expected error for blank question")
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	svc, repo := seededService(t)
	before := len(repo.faqs)
	if err := svc.Seed(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(repo.faqs) != before {
		t.Errorf("faqs = %d, want %d", len(repo.faqs), before)
	}
}

func TestListFAQsByCategory(t *testing.T) {
	svc, _ := seededService(t)
	labFAQs, err := svc.ListFAQs(context.Background(), "lab")
	if err != nil {
		t.Fatal(err)
	}
	if len(labFAQs) != 2 {
		t.Errorf("lab faqs = %d, want 2", len(labFAQs))
	}
	for _, f := range labFAQs {
		if f.Category != "lab" {
			t.Errorf("category = %s", f.Category)
		}
	}
}

func TestCreateFAQValidation(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	err := svc.CreateFAQ(context.Background(), &FAQ{Question: "Where is the pharmacy?"})
	if err == nil {
		t.Error("expected error without answer and keywords")
	}
	if len(repo.faqs) != 0 {
		t.Error("invalid faq was written")
	}
}

func TestTokenize(t *testing.T) {
	tokens := tokenize("How long do LAB results take?!")
	for _, want := range []string{"how", "long", "do", "lab", "results", "take"} {
		if !tokens[want] {
			t.Errorf("missing token %q", want)
		}
	}
	if tokens[""] {
		t.Error("empty token present")
	}
}
