package bank

// Entities produced by a QTI import run. Course and Textbook predate the run;
// everything else is created exactly once, in dependency order, and never
// mutated afterwards.

type Textbook struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Author  string `json:"author,omitempty"`
	Version string `json:"version,omitempty"`
	ISBN    string `json:"isbn,omitempty"`
}

// TextbookKey is the get-or-create lookup key for textbooks.
type TextbookKey struct {
	Title   string
	Author  string
	Version string
	ISBN    string
}

type Course struct {
	ID         string `json:"id"`
	Code       string `json:"code"` // e.g. CS499
	Name       string `json:"name"`
	CRN        string `json:"crn,omitempty"`
	Semester   string `json:"semester,omitempty"`
	TextbookID string `json:"textbook_id,omitempty"`
}

type Test struct {
	ID        string `json:"id"`
	CourseID  string `json:"course_id"`
	Title     string `json:"title"`
	Ident     string `json:"ident,omitempty"` // source ident attribute from the assessment element
	CoverText string `json:"cover_text,omitempty"`
}

type TestPart struct {
	ID       string `json:"id"`
	TestID   string `json:"test_id"`
	Position int    `json:"position"` // 1-based within the test
}

type TestSection struct {
	ID       string `json:"id"`
	PartID   string `json:"part_id"`
	Position int    `json:"position"` // 1-based within the part
	Ident    string `json:"ident,omitempty"`
}

type Question struct {
	ID         string  `json:"id"`
	CourseID   string  `json:"course_id,omitempty"`   // teacher-authored
	TextbookID string  `json:"textbook_id,omitempty"` // publisher-authored; exactly one owner is set
	Type       string  `json:"type"`
	PromptHTML string  `json:"prompt_html,omitempty"`
	Points     float64 `json:"points"`
	Answer     string  `json:"answer,omitempty"` // single correct response, for types that have one
}

// Option is a candidate (non-correct) response for choice-based questions.
type Option struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	TextHTML   string `json:"text_html"`
}

// Answer is a correct-response record for types with multiple correct values
// (fill-in-blank, multi-select) or matching pairs.
type Answer struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
}

// TestQuestion links a Question into a Test section with points and order.
type TestQuestion struct {
	TestID     string  `json:"test_id"`
	QuestionID string  `json:"question_id"`
	SectionID  string  `json:"section_id"`
	Points     float64 `json:"points"`
	Position   int     `json:"position"` // 1-based within the section
}

// Asset owner kinds.
const (
	OwnerQuestion = "question"
	OwnerOption   = "option"
	OwnerAnswer   = "answer"
)

// Asset records an extracted image attached to a question, option or answer.
// The bytes live in the blob store under BlobKey.
type Asset struct {
	ID        string `json:"id"`
	OwnerKind string `json:"owner_kind"`
	OwnerID   string `json:"owner_id"`
	Name      string `json:"name,omitempty"`
	BlobKey   string `json:"blob_key"`
}
