package qti

import (
	"archive/zip"
	"sort"
	"strings"
)

// assessmentPackage is one top-level folder of the content package holding a
// metadata document and a questions document. Canvas-style exports name the
// metadata file so it sorts before the questions file; the walker relies on
// that convention.
type assessmentPackage struct {
	Folder    string
	Meta      *zip.File
	Questions *zip.File
}

// findPackages scans the archive for assessment folders. Folders with fewer
// than two XML members are skipped: those are asset-only folders (media,
// stylesheets), not assessments.
func findPackages(zr *zip.Reader) []assessmentPackage {
	byName := map[string]*zip.File{}
	var folders []string
	for _, f := range zr.File {
		byName[f.Name] = f
		if strings.HasSuffix(f.Name, "/") && strings.Count(f.Name, "/") == 1 {
			folders = append(folders, f.Name)
		}
	}
	sort.Strings(folders)

	var out []assessmentPackage
	for _, folder := range folders {
		var xmls []string
		for _, f := range zr.File {
			if f.Name == folder || !strings.HasPrefix(f.Name, folder) {
				continue
			}
			if strings.HasSuffix(f.Name, ".xml") {
				xmls = append(xmls, f.Name)
			}
		}
		if len(xmls) < 2 {
			continue
		}
		sort.Strings(xmls)
		out = append(out, assessmentPackage{
			Folder:    strings.TrimSuffix(folder, "/"),
			Meta:      byName[xmls[0]],
			Questions: byName[xmls[1]],
		})
	}
	return out
}
