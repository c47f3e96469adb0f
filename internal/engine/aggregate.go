package engine

import "github.com/jpalmerr/scoutboard/internal/freescout"

// FolderTotals is the folder-derived part of a snapshot.
type FolderTotals struct {
	Unassigned int
	Snoozed    int
	// Custom maps a custom folder name to its active count, merged across
	// mailboxes.
	Custom map[string]int
}

// Aggregate sums active counts by folder type. Custom folders with the same
// name in different mailboxes are merged into one entry. Folder types other
// than unassigned, snoozed and custom are ignored. The input is not modified.
func Aggregate(folders []freescout.Folder) FolderTotals {
	totals := FolderTotals{Custom: make(map[string]int)}
	for _, f := range folders {
		switch f.Type {
		case freescout.FolderTypeUnassigned:
			totals.Unassigned += f.ActiveCount
		case freescout.FolderTypeSnoozed:
			totals.Snoozed += f.ActiveCount
		case freescout.FolderTypeCustom:
			totals.Custom[f.Name] += f.ActiveCount
		}
	}
	return totals
}

// flattenFolders concatenates the folders of every successful fetch.
func flattenFolders(results []folderFetch) []freescout.Folder {
	var all []freescout.Folder
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		all = append(all, r.Folders...)
	}
	return all
}
