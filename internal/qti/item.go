package qti

import (
	"fmt"
	"strconv"
	"strings"
)

// Question type tags carried in the item metadata of Canvas QTI 1.2 exports.
const (
	typeTrueFalse  = "true_false_question"
	typeMultChoice = "multiple_choice_question"
	typeFillIn     = "short_answer_question"
	typeMultAnswer = "multiple_answers_question"
	typeMatching   = "matching_question"
	typeEssay      = "essay_question"
)

// matchDelimiter separates the left and right halves of a matching pair in a
// stored answer. An absent half leaves its side of the delimiter empty.
const matchDelimiter = ";;;;;"

// shellTypes get a bare Question record (type, prompt, points) with no
// options or answers; their structure is not extracted.
var shellTypes = map[string]bool{
	"fill_in_multiple_blanks_question": true,
	"multiple_dropdowns_question":      true,
	"numerical_question":               true,
	"calculated_question":              true,
	"file_upload_question":             true,
	"text_only_question":               true,
}

var decoders = map[string]func(*element, *decodedItem) error{
	typeTrueFalse:  decodeChoice,
	typeMultChoice: decodeChoice,
	typeFillIn:     decodeFillIn,
	typeMultAnswer: decodeMultiSelect,
	typeMatching:   decodeMatching,
	typeEssay:      decodeEssay,
}

// decodedItem is the normalized result of one item element, ready to be
// turned into Question/Option/Answer records.
type decodedItem struct {
	Ident   string
	Type    string
	Prompt  string
	Points  float64
	Answer  string   // single correct response
	Options []string // candidate (incorrect) responses, markup preserved
	Answers []string // multiple correct responses or matching pairs
	Shell   bool     // unsupported type: question record only
}

// decodeItem reads the item's metadata and prompt, then dispatches on the
// question type. Any returned error is fatal to this item only.
func decodeItem(item *element) (*decodedItem, error) {
	d := &decodedItem{Ident: item.attr("ident")}

	meta, err := item.mustFind("itemmetadata")
	if err != nil {
		return nil, err
	}
	fields := meta.findAll("fieldentry")
	if len(fields) < 2 {
		return nil, fmt.Errorf("item %s: expected question type and points metadata, got %d fields", d.Ident, len(fields))
	}
	d.Type = strings.TrimSpace(fields[0].Text)
	d.Points, err = strconv.ParseFloat(strings.TrimSpace(fields[1].Text), 64)
	if err != nil {
		return nil, fmt.Errorf("item %s: bad points value %q", d.Ident, strings.TrimSpace(fields[1].Text))
	}

	pres, err := item.mustFind("presentation")
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", d.Ident, err)
	}
	mat, err := pres.mustFind("material")
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", d.Ident, err)
	}
	prompt, err := mat.mustFind("mattext")
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", d.Ident, err)
	}
	d.Prompt = cleanMattext(prompt.Text)

	if fn, ok := decoders[d.Type]; ok {
		if err := fn(item, d); err != nil {
			return nil, fmt.Errorf("item %s (%s): %w", d.Ident, d.Type, err)
		}
		return d, nil
	}
	if shellTypes[d.Type] {
		d.Shell = true
		return d, nil
	}
	return nil, fmt.Errorf("item %s: unknown question type %q", d.Ident, d.Type)
}

// correctCondition finds the terminal scoring rule: the first respcondition
// with continue="No". Its varequal names the correct response.
func correctCondition(item *element) *element {
	proc := item.find("resprocessing")
	if proc == nil {
		return nil
	}
	for _, rc := range proc.findAll("respcondition") {
		if strings.EqualFold(rc.attr("continue"), "no") {
			return rc
		}
	}
	return nil
}

// choiceLabels reads the (id, text) pairs from response_label elements under
// lid, in document order.
func choiceLabels(lid *element) (ids []string, texts map[string]string) {
	texts = map[string]string{}
	for _, lbl := range lid.findAll("response_label") {
		id := lbl.attr("ident")
		if _, seen := texts[id]; seen {
			continue
		}
		text := ""
		if mt := lbl.find("mattext"); mt != nil {
			text = cleanMattext(mt.Text)
		}
		ids = append(ids, id)
		texts[id] = text
	}
	return ids, texts
}

// decodeChoice handles true/false and multiple choice: one varequal names the
// correct option, the rest become Option records.
func decodeChoice(item *element, d *decodedItem) error {
	lid, err := item.mustFind("response_lid")
	if err != nil {
		return err
	}
	cond := correctCondition(item)
	if cond == nil {
		return fmt.Errorf("no terminal respcondition")
	}
	ve, err := cond.mustFind("varequal")
	if err != nil {
		return err
	}
	correct := strings.TrimSpace(ve.Text)

	ids, texts := choiceLabels(lid)
	found := false
	for _, id := range ids {
		if id == correct {
			found = true
			d.Answer = texts[id]
		} else {
			d.Options = append(d.Options, texts[id])
		}
	}
	if !found {
		return fmt.Errorf("correct identifier %q not among response labels", correct)
	}
	return nil
}

// decodeFillIn: every varequal under the terminal condition is an acceptable
// literal answer. No options.
func decodeFillIn(item *element, d *decodedItem) error {
	cond := correctCondition(item)
	if cond == nil {
		return fmt.Errorf("no terminal respcondition")
	}
	for _, ve := range cond.findAll("varequal") {
		d.Answers = append(d.Answers, strings.TrimSpace(ve.Text))
	}
	return nil
}

// decodeMultiSelect: the correct identifiers are the varequals inside the
// condition's and clause; matched labels become Answers, the rest Options.
func decodeMultiSelect(item *element, d *decodedItem) error {
	lid, err := item.mustFind("response_lid")
	if err != nil {
		return err
	}
	cond := correctCondition(item)
	if cond == nil {
		return fmt.Errorf("no terminal respcondition")
	}
	and, err := cond.mustFind("and")
	if err != nil {
		return err
	}
	// Direct varequal children only: Canvas wraps the wrong choices in
	// not clauses inside the same and.
	correct := map[string]bool{}
	for _, ve := range and.childrenByTag("varequal") {
		correct[strings.TrimSpace(ve.Text)] = true
	}

	ids, texts := choiceLabels(lid)
	for _, id := range ids {
		if correct[id] {
			d.Answers = append(d.Answers, texts[id])
		} else {
			d.Options = append(d.Options, texts[id])
		}
	}
	return nil
}

// decodeMatching builds left stems from the response_lid elements themselves
// and right choices from their nested response_labels. Paired sides become
// one Answer each; right-side choices never consumed by a pair are
// distractors and become Options.
func decodeMatching(item *element, d *decodedItem) error {
	pres, err := item.mustFind("presentation")
	if err != nil {
		return err
	}
	lids := pres.findAll("response_lid")
	if len(lids) == 0 {
		return fmt.Errorf("no response_lid elements")
	}

	left := map[string]string{}
	right := map[string]string{}
	var rightOrder []string
	for _, lid := range lids {
		if mats := lid.childrenByTag("material"); len(mats) > 0 {
			if mt := mats[0].find("mattext"); mt != nil {
				left[lid.attr("ident")] = cleanMattext(mt.Text)
			}
		}
		ids, texts := choiceLabels(lid)
		for _, id := range ids {
			if _, seen := right[id]; !seen {
				right[id] = texts[id]
				rightOrder = append(rightOrder, id)
			}
		}
	}

	proc, err := item.mustFind("resprocessing")
	if err != nil {
		return err
	}
	consumed := map[string]bool{}
	for _, rc := range proc.findAll("respcondition") {
		ve := rc.find("varequal")
		if ve == nil {
			continue
		}
		leftID := ve.attr("respident")
		rightID := strings.TrimSpace(ve.Text)
		d.Answers = append(d.Answers, left[leftID]+matchDelimiter+" "+right[rightID])
		consumed[rightID] = true
	}
	for _, id := range rightOrder {
		if !consumed[id] {
			d.Options = append(d.Options, right[id])
		}
	}
	return nil
}

// decodeEssay: free response, nothing beyond the question itself.
func decodeEssay(_ *element, _ *decodedItem) error { return nil }
