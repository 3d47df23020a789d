package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// FallbackAnswer is returned when no FAQ matches the question.
const FallbackAnswer = "I'm sorry, I don't have an answer for that. " +
	"Please call the hospital front desk or ask at reception."

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// tokenize lowercases the question and splits it on anything that is not
// a letter or digit.
func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			tokens[b.String()] = true
			b.Reset()
		}
	}
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// score counts how many of the FAQ's keywords appear in the question.
// Multi-word keywords match as a whole phrase.
func score(question string, tokens map[string]bool, f *FAQ) int {
	n := 0
	for _, kw := range f.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.ContainsRune(kw, ' ') {
			if strings.Contains(strings.ToLower(question), kw) {
				n++
			}
			continue
		}
		if tokens[kw] {
			n++
		}
	}
	return n
}

// Ask matches the question against every FAQ by keyword overlap and
// returns the best-scoring answer, or the fallback when nothing matches.
func (s *Service) Ask(ctx context.Context, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question is required")
	}
	faqs, err := s.repo.List(ctx, "")
	if err != nil {
		return nil, err
	}

	tokens := tokenize(question)
	var best *FAQ
	bestScore := 0
	for _, f := range faqs {
		if n := score(question, tokens, f); n > bestScore {
			best, bestScore = f, n
		}
	}
	if best == nil {
		return &Answer{Answer: FallbackAnswer}, nil
	}
	id := best.ID.String()
	return &Answer{
		Answer:   best.Answer,
		Matched:  true,
		Category: best.Category,
		Score:    bestScore,
		FAQID:    &id,
	}, nil
}

func (s *Service) ListFAQs(ctx context.Context, category string) ([]*FAQ, error) {
	return s.repo.List(ctx, category)
}

func (s *Service) CreateFAQ(ctx context.Context, f *FAQ) error {
	if f.Question == "" || f.Answer == "" || len(f.Keywords) == 0 {
		return fmt.Errorf("question, answer and keywords are required")
	}
	return s.repo.Create(ctx, f)
}

func (s *Service) DeleteFAQ(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Seed loads the default FAQ set once. A non-empty store is left alone.
func (s *Service) Seed(ctx context.Context) error {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, f := range defaultFAQs {
		entry := f
		if err := s.repo.Create(ctx, &entry); err != nil {
			return err
		}
	}
	return nil
}

var defaultFAQs = []FAQ{
	{
		Question: "What are the hospital visiting hours?",
		Answer:   "General ward visiting hours are 10:00-12:00 and 17:00-19:00 daily. ICU visits are restricted to one attendant between 11:00 and 11:30.",
		Keywords: []string{"visiting", "hours", "visit", "timing"},
		Category: "general",
	},
	{
		Question: "How do I book an appointment?",
		Answer:   "Appointments can be booked at the reception desk or by calling the front office. Please carry your patient card or a photo ID.",
		Keywords: []string{"appointment", "book", "booking", "schedule"},
		Category: "appointments",
	},
	{
		Question: "How long do lab results take?",
		Answer:   "Routine lab results are ready within 24 hours. STAT orders are processed within 2 hours. Reports are available at the lab counter.",
		Keywords: []string{"lab", "results", "report", "test"},
		Category: "lab",
	},
	{
		Question: "Do I need to fast before a blood test?",
		Answer:   "Fasting of 8-12 hours is needed for fasting glucose and lipid profile tests. Water is allowed. Other tests usually need no preparation.",
		Keywords: []string{"fasting", "fast", "blood test", "preparation"},
		Category: "lab",
	},
	{
		Question: "What payment methods are accepted?",
		Answer:   "We accept cash, cards, UPI and most insurance providers. Insurance patients should bring their policy card to the billing counter.",
		Keywords: []string{"payment", "pay", "insurance", "card", "upi", "billing"},
		Category: "billing",
	},
	{
		Question: "Where is the emergency department?",
		Answer:   "The emergency department is on the ground floor, next to the main entrance. It is open 24 hours. Dial 0 from any hospital phone for help.",
		Keywords: []string{"emergency", "casualty", "urgent"},
		Category: "general",
	},
	{
		Question: "How do I get a copy of my medical records?",
		Answer:   "Submit a records request at the front desk with a photo ID. Copies are ready within 3 working days.",
		Keywords: []string{"records", "medical records", "copy", "discharge summary"},
		Category: "general",
	},
}
