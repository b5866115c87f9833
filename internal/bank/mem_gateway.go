package bank

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemGateway keeps everything in maps. It backs unit tests and offline dry
// runs; the SQL gateway is the production path.
type MemGateway struct {
	mu sync.Mutex

	Courses       map[string]Course // by code
	Textbooks     map[TextbookKey]Textbook
	Tests         map[string]Test
	Parts         map[string]TestPart
	Sections      map[string]TestSection
	Questions     map[string]Question
	Options       map[string]Option
	Answers       map[string]Answer
	TestQuestions []TestQuestion
	Assets        []Asset
}

func NewMemGateway() *MemGateway {
	return &MemGateway{
		Courses:   map[string]Course{},
		Textbooks: map[TextbookKey]Textbook{},
		Tests:     map[string]Test{},
		Parts:     map[string]TestPart{},
		Sections:  map[string]TestSection{},
		Questions: map[string]Question{},
		Options:   map[string]Option{},
		Answers:   map[string]Answer{},
	}
}

func (m *MemGateway) GetOrCreateCourse(_ context.Context, code string, defaults Course) (Course, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.Courses[code]; ok {
		return c, false, nil
	}
	c := defaults
	c.ID = uuid.NewString()
	c.Code = code
	m.Courses[code] = c
	return c, true, nil
}

func (m *MemGateway) GetOrCreateTextbook(_ context.Context, key TextbookKey) (Textbook, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.Textbooks[key]; ok {
		return t, false, nil
	}
	t := Textbook{ID: uuid.NewString(), Title: key.Title, Author: key.Author, Version: key.Version, ISBN: key.ISBN}
	m.Textbooks[key] = t
	return t, true, nil
}

func (m *MemGateway) CreateTest(_ context.Context, t Test) (Test, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.NewString()
	m.Tests[t.ID] = t
	return t, nil
}

func (m *MemGateway) CreateTestPart(_ context.Context, p TestPart) (TestPart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.NewString()
	m.Parts[p.ID] = p
	return p, nil
}

func (m *MemGateway) CreateTestSection(_ context.Context, s TestSection) (TestSection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.NewString()
	m.Sections[s.ID] = s
	return s, nil
}

func (m *MemGateway) CreateQuestion(_ context.Context, q Question) (Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.ID = uuid.NewString()
	m.Questions[q.ID] = q
	return q, nil
}

func (m *MemGateway) CreateOption(_ context.Context, o Option) (Option, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = uuid.NewString()
	m.Options[o.ID] = o
	return o, nil
}

func (m *MemGateway) CreateAnswer(_ context.Context, a Answer) (Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.NewString()
	m.Answers[a.ID] = a
	return a, nil
}

func (m *MemGateway) CreateTestQuestion(_ context.Context, tq TestQuestion) (TestQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TestQuestions = append(m.TestQuestions, tq)
	return tq, nil
}

func (m *MemGateway) AttachAsset(_ context.Context, a Asset) (Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.NewString()
	m.Assets = append(m.Assets, a)
	return a, nil
}
