package shelf

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Layout constants, mirroring the directory shape of a shelf root:
//
//	<root>/
//	  collections/<name>/docs/            legacy per-document-file migration source
//	  collections/<name>/meta/data.jsonl   append-only document log
//	  collections/<name>/meta/index.bin    offset index
//	  collections/<name>/meta/manifest.json
//	  collections/<name>/meta/order.ids    reserved; not written by the core
//	  collections/<name>/meta/journal.log  reserved; unused
//	  collections/<name>/meta/history.jsonl  written only when history is enabled
//	  metadata/                            root-level, reserved
//	  .shelf.lock                          advisory write-lock sentinel
const (
	collectionsDirName = "collections"
	metadataDirName    = "metadata"
	docsDirName        = "docs"
	metaDirName        = "meta"

	dataLogName      = "data.jsonl"
	indexFileName    = "index.bin"
	manifestFileName = "manifest.json"
	orderFileName    = "order.ids"
	journalFileName  = "journal.log"
	historyFileName  = "history.jsonl"
	lockFileName     = ".shelf.lock"
)

func collectionsPath(root string) string {
	return filepath.Join(root, collectionsDirName)
}

func metadataPath(root string) string {
	return filepath.Join(root, metadataDirName)
}

func collectionPath(root, name string) string {
	return filepath.Join(collectionsPath(root), name)
}

func docsPath(root, name string) string {
	return filepath.Join(collectionPath(root, name), docsDirName)
}

func metaPath(root, name string) string {
	return filepath.Join(collectionPath(root, name), metaDirName)
}

func dataLogPath(root, name string) string {
	return filepath.Join(metaPath(root, name), dataLogName)
}

func indexFilePath(root, name string) string {
	return filepath.Join(metaPath(root, name), indexFileName)
}

func manifestPath(root, name string) string {
	return filepath.Join(metaPath(root, name), manifestFileName)
}

func orderFilePath(root, name string) string {
	return filepath.Join(metaPath(root, name), orderFileName)
}

func historyFilePath(root, name string) string {
	return filepath.Join(metaPath(root, name), historyFileName)
}

func lockFilePath(root string) string {
	return filepath.Join(root, lockFileName)
}

// ValidateID reports whether id is an acceptable document ID: non-empty,
// built only from ASCII letters, digits, '.', '_', '-', never starting
// with '.', and never containing "..".
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidID)
	}
	if strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: %q starts with '.'", ErrInvalidID, id)
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q contains '..'", ErrInvalidID, id)
	}
	for _, r := range id {
		if !isIDRune(r) {
			return fmt.Errorf("%w: %q contains invalid character %q", ErrInvalidID, id, r)
		}
	}
	return nil
}

func isIDRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '.' || r == '_' || r == '-':
		return true
	default:
		return false
	}
}
