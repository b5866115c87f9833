package bank

import "context"

// Gateway is the persistence contract consumed by the import pipeline.
// Create* calls mint and return the entity ID; GetOrCreate* calls are
// idempotent lookups keyed on the natural key and report whether a new
// record was created.
type Gateway interface {
	GetOrCreateCourse(ctx context.Context, code string, defaults Course) (Course, bool, error)
	GetOrCreateTextbook(ctx context.Context, key TextbookKey) (Textbook, bool, error)

	CreateTest(ctx context.Context, t Test) (Test, error)
	CreateTestPart(ctx context.Context, p TestPart) (TestPart, error)
	CreateTestSection(ctx context.Context, s TestSection) (TestSection, error)
	CreateQuestion(ctx context.Context, q Question) (Question, error)
	CreateOption(ctx context.Context, o Option) (Option, error)
	CreateAnswer(ctx context.Context, a Answer) (Answer, error)
	CreateTestQuestion(ctx context.Context, tq TestQuestion) (TestQuestion, error)
	AttachAsset(ctx context.Context, a Asset) (Asset, error)
}
