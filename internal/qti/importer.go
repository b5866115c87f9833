package qti

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/testbankhq/testbank/internal/bank"
	"github.com/testbankhq/testbank/internal/storage"
)

// Importer converts QTI 1.2 content packages into persisted test-bank
// records. One instance may serve many import runs; it holds no per-run
// state.
type Importer struct {
	Gateway bank.Gateway
	Blobs   storage.BlobStore

	// TextbookOwned marks imported questions as publisher-authored, owned by
	// the course's textbook instead of the course itself.
	TextbookOwned bool
}

// PackageError reports one assessment package that could not be imported.
// Sibling packages in the same archive are unaffected.
type PackageError struct {
	Folder string `json:"folder"`
	Reason string `json:"reason"`
}

func (e PackageError) Error() string { return e.Folder + ": " + e.Reason }

// Result summarizes one import run. A run with failures or warnings is still
// a success for whatever it did create; nothing is rolled back.
type Result struct {
	Tests    []bank.Test    `json:"tests"`
	Warnings []string       `json:"warnings,omitempty"`
	Failures []PackageError `json:"failures,omitempty"`
}

// ImportArchive processes every assessment package in the zip, creating one
// Test per assessment under the given course. The course must already exist;
// the pipeline never creates one. An error is returned only when the archive
// itself is unreadable.
func (im *Importer) ImportArchive(ctx context.Context, data []byte, course bank.Course) (Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("open archive: %w", err)
	}
	if im.TextbookOwned && course.TextbookID == "" {
		return Result{}, fmt.Errorf("course %s has no textbook for publisher-owned import", course.Code)
	}

	var res Result
	for _, pkg := range findPackages(zr) {
		test, warns, err := im.importPackage(ctx, zr, pkg, course)
		res.Warnings = append(res.Warnings, warns...)
		if err != nil {
			log.Printf("qti: package %s failed: %v", pkg.Folder, err)
			res.Failures = append(res.Failures, PackageError{Folder: pkg.Folder, Reason: err.Error()})
			continue
		}
		res.Tests = append(res.Tests, test)
	}
	return res, nil
}

func (im *Importer) importPackage(ctx context.Context, zr *zip.Reader, pkg assessmentPackage, course bank.Course) (bank.Test, []string, error) {
	var warns []string

	cover := coverText(pkg.Meta)

	rc, err := pkg.Questions.Open()
	if err != nil {
		return bank.Test{}, warns, fmt.Errorf("open %s: %w", pkg.Questions.Name, err)
	}
	root, err := parseTree(rc)
	rc.Close()
	if err != nil {
		return bank.Test{}, warns, fmt.Errorf("parse %s: %w", pkg.Questions.Name, err)
	}
	stripNamespaces(root)

	assessment := root.find("assessment")
	if assessment == nil {
		return bank.Test{}, warns, fmt.Errorf("assessment element not found in %s", pkg.Questions.Name)
	}

	test, err := im.Gateway.CreateTest(ctx, bank.Test{
		CourseID:  course.ID,
		Title:     assessment.attr("title"),
		Ident:     assessment.attr("ident"),
		CoverText: cover,
	})
	if err != nil {
		return bank.Test{}, warns, err
	}
	part, err := im.Gateway.CreateTestPart(ctx, bank.TestPart{TestID: test.ID, Position: 1})
	if err != nil {
		return test, warns, err
	}

	secNum := 0
	for _, sec := range assessment.childrenByTag("section") {
		secNum++
		section, err := im.Gateway.CreateTestSection(ctx, bank.TestSection{
			PartID:   part.ID,
			Position: secNum,
			Ident:    sec.attr("ident"),
		})
		if err != nil {
			return test, warns, err
		}

		order := 0
		for _, item := range sec.findAll("item") {
			dec, err := decodeItem(item)
			if err != nil {
				log.Printf("qti: %s: skipping item: %v", pkg.Folder, err)
				warns = append(warns, err.Error())
				continue
			}
			if dec.Shell {
				warns = append(warns, fmt.Sprintf("item %s: type %s imported without options or answers", dec.Ident, dec.Type))
			}

			q := bank.Question{
				Type:       dec.Type,
				PromptHTML: dec.Prompt,
				Points:     dec.Points,
				Answer:     dec.Answer,
			}
			if im.TextbookOwned {
				q.TextbookID = course.TextbookID
			} else {
				q.CourseID = course.ID
			}

			promptImg, promptKey, ok := im.resolveAndStore(&q.PromptHTML, zr)
			q, err = im.Gateway.CreateQuestion(ctx, q)
			if err != nil {
				return test, warns, err
			}
			if ok {
				im.attach(ctx, bank.OwnerQuestion, q.ID, promptImg, promptKey)
			}

			for _, text := range dec.Options {
				o := bank.Option{QuestionID: q.ID, TextHTML: text}
				img, key, ok := im.resolveAndStore(&o.TextHTML, zr)
				o, err = im.Gateway.CreateOption(ctx, o)
				if err != nil {
					return test, warns, err
				}
				if ok {
					im.attach(ctx, bank.OwnerOption, o.ID, img, key)
				}
			}
			for _, text := range dec.Answers {
				a := bank.Answer{QuestionID: q.ID, Text: text}
				img, key, ok := im.resolveAndStore(&a.Text, zr)
				a, err = im.Gateway.CreateAnswer(ctx, a)
				if err != nil {
					return test, warns, err
				}
				if ok {
					im.attach(ctx, bank.OwnerAnswer, a.ID, img, key)
				}
			}

			order++
			_, err = im.Gateway.CreateTestQuestion(ctx, bank.TestQuestion{
				TestID:     test.ID,
				QuestionID: q.ID,
				SectionID:  section.ID,
				Points:     dec.Points,
				Position:   order,
			})
			if err != nil {
				return test, warns, err
			}
		}
	}
	return test, warns, nil
}

// resolveAndStore resolves an embedded image in *markup and, on success,
// writes its bytes to the blob store and rewrites the img src in place to the
// asset's served location. On any failure the markup is left untouched and
// ok=false is returned.
func (im *Importer) resolveAndStore(markup *string, zr *zip.Reader) (inlineImage, string, bool) {
	img, ok := resolveImage(*markup, zr.File)
	if !ok {
		return inlineImage{}, "", false
	}
	key := uuid.NewString() + "/" + img.File
	if _, err := im.Blobs.Put(key, bytes.NewReader(img.Data)); err != nil {
		log.Printf("qti: store image %s: %v", img.Name, err)
		return inlineImage{}, "", false
	}
	rewritten, err := rewriteImageSrc(*markup, "/assets/"+key)
	if err != nil {
		log.Printf("qti: rewrite image src for %s: %v", img.Name, err)
		return inlineImage{}, "", false
	}
	*markup = rewritten
	return img, key, true
}

func (im *Importer) attach(ctx context.Context, kind, ownerID string, img inlineImage, key string) {
	if _, err := im.Gateway.AttachAsset(ctx, bank.Asset{
		OwnerKind: kind,
		OwnerID:   ownerID,
		Name:      img.Name,
		BlobKey:   key,
	}); err != nil {
		log.Printf("qti: attach asset %s to %s %s: %v", key, kind, ownerID, err)
	}
}
