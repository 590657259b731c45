package progress

import (
	progressDomain "linggo_sync/internal/domain/progress"
)

type migration func(progressDomain.Kind, progressDomain.Document)

// migrations[i] upgrades a document from schema version i to i+1.
var migrations = []migration{
	fillUpdatedFromTimeStamp,
	renameLegacyFields,
}

// Migrate upgrades a stored document to the current schema in place and
// returns it. Documents without a schemaVersion are version 0.
func Migrate(kind progressDomain.Kind, doc progressDomain.Document) progressDomain.Document {
	if doc == nil {
		return nil
	}
	version, _ := progressDomain.Int64(doc[progressDomain.FieldSchemaVersion])
	for v := int(version); v >= 0 && v < len(migrations); v++ {
		migrations[v](kind, doc)
	}
	doc[progressDomain.FieldSchemaVersion] = progressDomain.SchemaVersion
	return doc
}

// NormalizePayload applies the field renames to an incoming payload so older
// clients keep working against the current schema.
func NormalizePayload(kind progressDomain.Kind, payload progressDomain.Document) progressDomain.Document {
	renameLegacyFields(kind, payload)
	return payload
}

func fillUpdatedFromTimeStamp(_ progressDomain.Kind, doc progressDomain.Document) {
	if _, ok := doc[progressDomain.FieldUpdated]; ok {
		return
	}
	if ts, ok := progressDomain.Int64(doc[progressDomain.FieldTimeStamp]); ok {
		doc[progressDomain.FieldUpdated] = ts
	}
}

var renamedFields = map[string]string{
	"gdprConfirmed":      "gdprPopupShown",
	"totalUnitsUnlocked": "totalUnitsComplete",
}

// languageFields made up the single language user lang document.
var languageFields = []string{"language", "exp", "level", "wordsUnlocked", "questionsUnlocked", "playtime", "levels"}

func renameLegacyFields(kind progressDomain.Kind, doc progressDomain.Document) {
	switch kind.Name {
	case progressDomain.UserGlobal.Name:
		for from, to := range renamedFields {
			v, ok := doc[from]
			if !ok {
				continue
			}
			if _, exists := doc[to]; !exists {
				doc[to] = v
			}
			delete(doc, from)
		}
		delete(doc, "langLevels")
	case progressDomain.UserLanguage.Name:
		if _, ok := doc["languages"]; ok {
			return
		}
		if _, ok := doc["language"]; !ok {
			return
		}
		entry := map[string]any{}
		for _, f := range languageFields {
			if v, ok := doc[f]; ok {
				entry[f] = v
				delete(doc, f)
			}
		}
		doc["languages"] = []any{entry}
	}
}
