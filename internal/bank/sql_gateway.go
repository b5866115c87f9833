package bank

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

type SQLGateway struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLGateway(db *sql.DB, driver string) *SQLGateway {
	return &SQLGateway{db: db, driver: driver}
}

func (g *SQLGateway) GetOrCreateCourse(ctx context.Context, code string, defaults Course) (Course, bool, error) {
	var c Course
	var tb sql.NullString
	row := g.db.QueryRowContext(ctx,
		`SELECT id, code, name, crn, semester, textbook_id FROM courses WHERE code=$1`, code)
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.CRN, &c.Semester, &tb)
	switch {
	case err == nil:
		c.TextbookID = tb.String
		return c, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return Course{}, false, err
	}

	c = defaults
	c.ID = uuid.NewString()
	c.Code = code
	_, err = g.db.ExecContext(ctx,
		`INSERT INTO courses (id, code, name, crn, semester, textbook_id) VALUES ($1,$2,$3,$4,$5,$6)`,
		c.ID, c.Code, c.Name, c.CRN, c.Semester, nullable(c.TextbookID))
	if err != nil {
		return Course{}, false, err
	}
	return c, true, nil
}

func (g *SQLGateway) GetOrCreateTextbook(ctx context.Context, key TextbookKey) (Textbook, bool, error) {
	var t Textbook
	row := g.db.QueryRowContext(ctx,
		`SELECT id, title, author, version, isbn FROM textbooks
		  WHERE title=$1 AND author=$2 AND version=$3 AND isbn=$4`,
		key.Title, key.Author, key.Version, key.ISBN)
	err := row.Scan(&t.ID, &t.Title, &t.Author, &t.Version, &t.ISBN)
	switch {
	case err == nil:
		return t, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return Textbook{}, false, err
	}

	t = Textbook{ID: uuid.NewString(), Title: key.Title, Author: key.Author, Version: key.Version, ISBN: key.ISBN}
	_, err = g.db.ExecContext(ctx,
		`INSERT INTO textbooks (id, title, author, version, isbn) VALUES ($1,$2,$3,$4,$5)`,
		t.ID, t.Title, t.Author, t.Version, t.ISBN)
	if err != nil {
		return Textbook{}, false, err
	}
	return t, true, nil
}

func (g *SQLGateway) CreateTest(ctx context.Context, t Test) (Test, error) {
	t.ID = uuid.NewString()
	_, err := g.db.ExecContext(ctx,
		`INSERT INTO tests (id, course_id, title, ident, cover_text, created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		t.ID, t.CourseID, t.Title, t.Ident, t.CoverText, time.Now().Unix())
	if err != nil {
		return Test{}, err
	}
	return t, nil
}

func (g *SQLGateway) CreateTestPart(ctx context.Context, p TestPart) (TestPart, error) {
	p.ID = uuid.NewString()
	_, err := g.db.ExecContext(ctx,
		`INSERT INTO test_parts (id, test_id, position) VALUES ($1,$2,$3)`,
		p.ID, p.TestID, p.Position)
	if err != nil {
		return TestPart{}, err
	}
	return p, nil
}

func (g *SQLGateway) CreateTestSection(ctx context.Context, s TestSection) (TestSection, error) {
	s.ID = uuid.NewString()
	_, err := g.db.ExecContext(ctx,
		`INSERT INTO test_sections (id, part_id, position, ident) VALUES ($1,$2,$3,$4)`,
		s.ID, s.PartID, s.Position, s.Ident)
	if err != nil {
		return TestSection{}, err
	}
	return s, nil
}

func (g *SQLGateway) CreateQuestion(ctx context.Context, q Question) (Question, error) {
	q.ID = uuid.NewString()
	_, err := g.db.ExecContext(ctx,
		`INSERT INTO questions (id, course_id, textbook_id, qtype, prompt_html, points, answer)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		q.ID, nullable(q.CourseID), nullable(q.TextbookID), q.Type, q.PromptHTML, q.Points, q.Answer)
	if err != nil {
		return Question{}, err
	}
	return q, nil
}

func (g *SQLGateway) CreateOption(ctx context.Context, o Option) (Option, error) {
	o.ID = uuid.NewString()
	_, err := g.db.ExecContext(ctx,
		`INSERT INTO options (id, question_id, text_html) VALUES ($1,$2,$3)`,
		o.ID, o.QuestionID, o.TextHTML)
	if err != nil {
		return Option{}, err
	}
	return o, nil
}

func (g *SQLGateway) CreateAnswer(ctx context.Context, a Answer) (Answer, error) {
	a.ID = uuid.NewString()
	_, err := g.db.ExecContext(ctx,
		`INSERT INTO answers (id, question_id, text) VALUES ($1,$2,$3)`,
		a.ID, a.QuestionID, a.Text)
	if err != nil {
		return Answer{}, err
	}
	return a, nil
}

func (g *SQLGateway) CreateTestQuestion(ctx context.Context, tq TestQuestion) (TestQuestion, error) {
	_, err := g.db.ExecContext(ctx,
		`INSERT INTO test_questions (test_id, question_id, section_id, points, position)
		 VALUES ($1,$2,$3,$4,$5)`,
		tq.TestID, tq.QuestionID, tq.SectionID, tq.Points, tq.Position)
	if err != nil {
		return TestQuestion{}, err
	}
	return tq, nil
}

func (g *SQLGateway) AttachAsset(ctx context.Context, a Asset) (Asset, error) {
	a.ID = uuid.NewString()
	_, err := g.db.ExecContext(ctx,
		`INSERT INTO assets (id, owner_kind, owner_id, name, blob_key) VALUES ($1,$2,$3,$4,$5)`,
		a.ID, a.OwnerKind, a.OwnerID, a.Name, a.BlobKey)
	if err != nil {
		return Asset{}, err
	}
	return a, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
