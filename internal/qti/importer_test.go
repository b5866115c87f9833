package qti

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/testbankhq/testbank/internal/bank"
)

type memBlob struct{ puts map[string][]byte }

func newMemBlob() *memBlob { return &memBlob{puts: map[string][]byte{}} }

func (m *memBlob) Put(key string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.puts[key] = b
	return key, nil
}

func (m *memBlob) Get(key string) (io.ReadCloser, error) {
	b, ok := m.puts[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func essayItem(ident string) string {
	return `<item ident="` + ident + `">` + metaBlock("essay_question", "5") + `
	<presentation><material><mattext>Discuss ` + ident + `.</mattext></material></presentation>
	</item>`
}

const imageItem = `<item ident="img1">` + `
	<itemmetadata><qtimetadata>
		<qtimetadatafield><fieldlabel>question_type</fieldlabel><fieldentry>multiple_choice_question</fieldentry></qtimetadatafield>
		<qtimetadatafield><fieldlabel>points_possible</fieldlabel><fieldentry>2.0</fieldentry></qtimetadatafield>
	</qtimetadata></itemmetadata>
	<presentation>
		<material><mattext texttype="text/html">&lt;p&gt;Name the shape: &lt;img src="$IMS-CC-FILEBASE$/media/foo%20bar.png" alt="diagram"&gt;&lt;/p&gt;</mattext></material>
		<response_lid ident="response1">
			<render_choice>
				<response_label ident="A"><material><mattext>Circle</mattext></material></response_label>
				<response_label ident="B"><material><mattext>Square</mattext></material></response_label>
			</render_choice>
		</response_lid>
	</presentation>
	<resprocessing>
		<respcondition continue="No">
			<conditionvar><varequal respident="response1">A</varequal></conditionvar>
		</respcondition>
	</resprocessing>
	</item>`

const badPointsItem = `<item ident="bad1">` + `
	<itemmetadata><qtimetadata>
		<qtimetadatafield><fieldlabel>question_type</fieldlabel><fieldentry>essay_question</fieldentry></qtimetadatafield>
		<qtimetadatafield><fieldlabel>points_possible</fieldlabel><fieldentry>lots</fieldentry></qtimetadatafield>
	</qtimetadata></itemmetadata>
	<presentation><material><mattext>Broken.</mattext></material></presentation>
	</item>`

func questionsDoc(sections ...string) []byte {
	var b strings.Builder
	b.WriteString(`<questestinterop xmlns="http://www.imsglobal.org/xsd/ims_qtiasiv1p2">`)
	b.WriteString(`<assessment ident="g123" title="Chapter 1 Quiz">`)
	for _, s := range sections {
		b.WriteString(s)
	}
	b.WriteString(`</assessment></questestinterop>`)
	return []byte(b.String())
}

const metaDoc = `<quiz xmlns="http://canvas.instructure.com/xsd/cccv1p0">
	<title>Chapter 1 Quiz</title>
	<description>&lt;p&gt;Read carefully.&lt;/p&gt;</description>
</quiz>`

func archiveBytes(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func testCourse(t *testing.T, gw *bank.MemGateway) bank.Course {
	t.Helper()
	c, _, err := gw.GetOrCreateCourse(context.Background(), "CS499", bank.Course{Name: "Team Software Design"})
	if err != nil {
		t.Fatalf("course: %v", err)
	}
	return c
}

func TestImportArchiveEndToEnd(t *testing.T) {
	sec1 := `<section ident="s1">` + imageItem + essayItem("e1") + badPointsItem + essayItem("e2") + `</section>`
	sec2 := `<section ident="s2">` + essayItem("e3") + essayItem("e4") + `</section>`
	data := archiveBytes(t, map[string][]byte{
		"quiz1/":                    nil,
		"quiz1/assessment_meta.xml": []byte(metaDoc),
		"quiz1/g123.xml":            questionsDoc(sec1, sec2),
		"quiz1/media/foo bar.png":   {0x89, 0x50, 0x4e, 0x47},
	})

	gw := bank.NewMemGateway()
	blobs := newMemBlob()
	im := &Importer{Gateway: gw, Blobs: blobs}

	res, err := im.ImportArchive(context.Background(), data, testCourse(t, gw))
	if err != nil {
		t.Fatalf("ImportArchive: %v", err)
	}

	if len(res.Tests) != 1 {
		t.Fatalf("tests = %d, want 1", len(res.Tests))
	}
	test := res.Tests[0]
	if test.Title != "Chapter 1 Quiz" || test.Ident != "g123" {
		t.Fatalf("test = %+v", test)
	}
	if test.CoverText != "Read carefully." {
		t.Fatalf("cover = %q", test.CoverText)
	}
	if len(res.Failures) != 0 {
		t.Fatalf("failures = %v", res.Failures)
	}
	// the bad-points item must warn without blocking its siblings
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "bad1") {
		t.Fatalf("warnings = %v", res.Warnings)
	}

	if len(gw.Parts) != 1 {
		t.Fatalf("parts = %d, want 1", len(gw.Parts))
	}
	if len(gw.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(gw.Sections))
	}
	positions := map[int]string{}
	for _, s := range gw.Sections {
		positions[s.Position] = s.ID
	}
	if _, ok := positions[1]; !ok {
		t.Fatal("missing section position 1")
	}
	if _, ok := positions[2]; !ok {
		t.Fatal("missing section position 2")
	}

	// 5 good items -> 5 questions, 5 links
	if len(gw.Questions) != 5 {
		t.Fatalf("questions = %d, want 5", len(gw.Questions))
	}
	if len(gw.TestQuestions) != 5 {
		t.Fatalf("test questions = %d, want 5", len(gw.TestQuestions))
	}
	// order restarts per section: 1..3 in section 1, 1..2 in section 2
	bySection := map[string][]int{}
	for _, tq := range gw.TestQuestions {
		bySection[tq.SectionID] = append(bySection[tq.SectionID], tq.Position)
	}
	for sid, orders := range bySection {
		for i, got := range orders {
			if got != i+1 {
				t.Fatalf("section %s orders = %v", sid, orders)
			}
		}
	}

	// the MC item had an image: one asset, prompt rewritten, blob stored
	if len(gw.Assets) != 1 {
		t.Fatalf("assets = %d, want 1", len(gw.Assets))
	}
	a := gw.Assets[0]
	if a.OwnerKind != bank.OwnerQuestion || a.Name != "diagram" {
		t.Fatalf("asset = %+v", a)
	}
	if _, ok := blobs.puts[a.BlobKey]; !ok {
		t.Fatalf("blob %s not stored", a.BlobKey)
	}
	var mc bank.Question
	for _, q := range gw.Questions {
		if q.Type == typeMultChoice {
			mc = q
		}
	}
	if !strings.Contains(mc.PromptHTML, "/assets/"+a.BlobKey) {
		t.Fatalf("prompt not rewritten: %q", mc.PromptHTML)
	}
	if mc.Answer != "Circle" {
		t.Fatalf("mc answer = %q", mc.Answer)
	}
	if len(gw.Options) != 1 {
		t.Fatalf("options = %d, want 1", len(gw.Options))
	}
	// every question is course-owned
	for _, q := range gw.Questions {
		if q.CourseID == "" || q.TextbookID != "" {
			t.Fatalf("question owner wrong: %+v", q)
		}
	}
}

func TestImportArchiveMissingImageLeavesPromptAlone(t *testing.T) {
	sec := `<section ident="s1">` + imageItem + `</section>`
	data := archiveBytes(t, map[string][]byte{
		"quiz1/":                    nil,
		"quiz1/assessment_meta.xml": []byte(metaDoc),
		"quiz1/g123.xml":            questionsDoc(sec),
		// no media file in the archive
	})

	gw := bank.NewMemGateway()
	im := &Importer{Gateway: gw, Blobs: newMemBlob()}
	res, err := im.ImportArchive(context.Background(), data, testCourse(t, gw))
	if err != nil {
		t.Fatalf("ImportArchive: %v", err)
	}
	if len(res.Tests) != 1 || len(gw.Questions) != 1 {
		t.Fatalf("tests=%d questions=%d", len(res.Tests), len(gw.Questions))
	}
	if len(gw.Assets) != 0 {
		t.Fatalf("assets = %v, want none", gw.Assets)
	}
	for _, q := range gw.Questions {
		if !strings.Contains(q.PromptHTML, "$IMS-CC-FILEBASE$") {
			t.Fatalf("prompt must keep the original reference: %q", q.PromptHTML)
		}
	}
}

func TestImportArchiveAnswerImageStoredAndRewritten(t *testing.T) {
	fill := `<item ident="fib1">` + metaBlock("short_answer_question", "1.0") + `
	<presentation>
		<material><mattext>Draw and upload the matching figure.</mattext></material>
		<response_str ident="response1"><render_fib/></response_str>
	</presentation>
	<resprocessing>
		<respcondition continue="No">
			<conditionvar><varequal respident="response1">&lt;img src="$IMS-CC-FILEBASE$/media/foo%20bar.png" alt="diagram"&gt;</varequal></conditionvar>
		</respcondition>
	</resprocessing>
	</item>`
	data := archiveBytes(t, map[string][]byte{
		"quiz1/":                    nil,
		"quiz1/assessment_meta.xml": []byte(metaDoc),
		"quiz1/g123.xml":            questionsDoc(`<section ident="s1">` + fill + `</section>`),
		"quiz1/media/foo bar.png":   {0x89, 0x50, 0x4e, 0x47},
	})

	gw := bank.NewMemGateway()
	blobs := newMemBlob()
	im := &Importer{Gateway: gw, Blobs: blobs}
	if _, err := im.ImportArchive(context.Background(), data, testCourse(t, gw)); err != nil {
		t.Fatalf("ImportArchive: %v", err)
	}

	if len(gw.Answers) != 1 {
		t.Fatalf("answers = %d, want 1", len(gw.Answers))
	}
	if len(gw.Assets) != 1 {
		t.Fatalf("assets = %d, want 1", len(gw.Assets))
	}
	a := gw.Assets[0]
	if a.OwnerKind != bank.OwnerAnswer || a.Name != "diagram" {
		t.Fatalf("asset = %+v", a)
	}
	if _, ok := blobs.puts[a.BlobKey]; !ok {
		t.Fatalf("blob %s not stored", a.BlobKey)
	}
	for _, ans := range gw.Answers {
		if ans.ID != a.OwnerID {
			t.Fatalf("asset owner = %s, answer = %s", a.OwnerID, ans.ID)
		}
		if !strings.Contains(ans.Text, "/assets/"+a.BlobKey) || strings.Contains(ans.Text, "$IMS-CC-FILEBASE$") {
			t.Fatalf("answer text not rewritten: %q", ans.Text)
		}
	}
}

func TestImportArchivePackageFailureIsIsolated(t *testing.T) {
	good := `<section ident="s1">` + essayItem("e1") + `</section>`
	data := archiveBytes(t, map[string][]byte{
		"aaa/":           nil,
		"aaa/a_meta.xml": []byte(metaDoc),
		"aaa/b_data.xml": []byte(`<manifest/>`), // no assessment element
		"bbb/":           nil,
		"bbb/a_meta.xml": []byte(metaDoc),
		"bbb/b_data.xml": questionsDoc(good),
	})

	gw := bank.NewMemGateway()
	im := &Importer{Gateway: gw, Blobs: newMemBlob()}
	res, err := im.ImportArchive(context.Background(), data, testCourse(t, gw))
	if err != nil {
		t.Fatalf("ImportArchive: %v", err)
	}
	if len(res.Failures) != 1 || res.Failures[0].Folder != "aaa" {
		t.Fatalf("failures = %v", res.Failures)
	}
	if !strings.Contains(res.Failures[0].Reason, "assessment") {
		t.Fatalf("reason = %q", res.Failures[0].Reason)
	}
	if len(res.Tests) != 1 {
		t.Fatalf("tests = %d, want 1 from the healthy package", len(res.Tests))
	}
}

func TestImportArchivePublisherOwnedQuestions(t *testing.T) {
	gw := bank.NewMemGateway()
	tb, _, err := gw.GetOrCreateTextbook(context.Background(), bank.TextbookKey{Title: "Intro CS", ISBN: "123"})
	if err != nil {
		t.Fatalf("textbook: %v", err)
	}
	course, _, err := gw.GetOrCreateCourse(context.Background(), "CS499", bank.Course{Name: "x", TextbookID: tb.ID})
	if err != nil {
		t.Fatalf("course: %v", err)
	}

	sec := `<section ident="s1">` + essayItem("e1") + `</section>`
	data := archiveBytes(t, map[string][]byte{
		"quiz1/":                    nil,
		"quiz1/assessment_meta.xml": []byte(metaDoc),
		"quiz1/g123.xml":            questionsDoc(sec),
	})

	im := &Importer{Gateway: gw, Blobs: newMemBlob(), TextbookOwned: true}
	if _, err := im.ImportArchive(context.Background(), data, course); err != nil {
		t.Fatalf("ImportArchive: %v", err)
	}
	for _, q := range gw.Questions {
		if q.TextbookID != tb.ID || q.CourseID != "" {
			t.Fatalf("question owner wrong: %+v", q)
		}
	}
}
