package progress

import (
	"fmt"
	"regexp"
)

// Kind describes one resource document type: where it lives, which payload
// fields it accepts and which of them are mandatory on write.
type Kind struct {
	Name string
	// Collection is empty for kinds whose collection is chosen per request.
	Collection string
	Fields     []string
	Required   []string
	Defaults   Document
}

// Target binds a kind to the collection a single call operates on.
type Target struct {
	Kind       Kind
	Collection string
}

// ElementArray is a nested array whose elements are keyed by "id".
type ElementArray struct {
	Path      string
	NumericID bool
}

var UserGlobal = Kind{
	Name:       "UserGlobal",
	Collection: "UserDataGlobal",
	Fields: []string{
		"linggoID", "username", "currentLanguage", "currentModule", "profilePicture",
		"playtimeLifetime", "learnTimeLifetime", "signUpMethod", "hasFinishedOnBoarding",
		"onBoardingStep", "installTime", "onBoardingCompleteTime", "reviewButtonUnlocked",
		"gdprPopupShown", "personalisedAds", "globalRank", "lifetimeEXP",
		"coins", "coinsSpent", "coinsLifetime", "dailyGoal", "dailyStreak", "dailyStreakLongest",
		"totalWordsUnlocked", "totalQuestionsUnlocked", "totalUnitsComplete",
		"streakFreezeUseCount", "comboShieldUseCount", "perfectionistCurrentLessonCount",
		"adRequestVideoAdCount", "adWatchVideoAdCount", "adRequestNativeAdCount", "adWatchNativeAdCount",
		"adRequestInterstitialAdCount", "adWatchInterstitialAdCount", "adRequestTotalAdCount", "adWatchTotalAdCount",
		"languages", "inventory", "achievements", "configVersionData",
	},
	Required: []string{"username", "linggoID"},
	Defaults: Document{
		"username":  "Anonymous",
		"dailyGoal": int64(20),
	},
}

var UserLanguage = Kind{
	Name:       "UserLanguageProgress",
	Collection: "UserDataLang",
	Fields:     []string{"languages"},
	Defaults:   Document{},
}

var DailyExp = Kind{
	Name:       "DailyExp",
	Collection: "DailyEXP",
	Fields:     []string{"list"},
	Defaults:   Document{},
}

var ModuleProgress = Kind{
	Name:   "ModuleProgress",
	Fields: []string{"version", "build", "id", "units", "lessons"},
	Defaults: Document{
		"units": []any{},
		"lessons": map[string]any{
			"vocabLessons":   []any{},
			"grammarLessons": []any{},
			"studyLessons":   []any{},
			"vgLessons":      []any{},
		},
	},
}

var LanguageContent = Kind{
	Name:   "LanguageContent",
	Fields: []string{"version", "build", "id", "words", "questions"},
	Defaults: Document{
		"words":     []any{},
		"questions": []any{},
	},
}

var (
	Words     = ElementArray{Path: "words", NumericID: true}
	Questions = ElementArray{Path: "questions", NumericID: true}
	Units     = ElementArray{Path: "units"}
)

var lessonArrays = map[string]ElementArray{
	"Vocab":   {Path: "lessons.vocabLessons", NumericID: true},
	"Grammar": {Path: "lessons.grammarLessons", NumericID: true},
	"Study":   {Path: "lessons.studyLessons", NumericID: true},
	"VG":      {Path: "lessons.vgLessons", NumericID: true},
}

// LessonArray resolves the lesson type of a module route to its array.
func LessonArray(lessonType string) (ElementArray, bool) {
	arr, ok := lessonArrays[lessonType]
	return arr, ok
}

var collectionName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,63}$`)

// ValidCollectionName reports whether a request supplied language or module
// name is safe to use as a collection name.
func ValidCollectionName(name string) bool {
	return collectionName.MatchString(name)
}

// Pick returns the accepted fields present in payload.
func (k Kind) Pick(payload Document) Document {
	out := make(Document, len(k.Fields))
	for _, f := range k.Fields {
		if v, ok := payload[f]; ok {
			out[f] = v
		}
	}
	return out
}

// Validate checks that every required field is present and the marker is set.
func (k Kind) Validate(payload Document, m Marker) error {
	for _, f := range k.Required {
		v, ok := payload[f]
		if !ok || v == nil || v == "" {
			return fmt.Errorf("%s is required", f)
		}
	}
	if m.Updated <= 0 {
		return fmt.Errorf("%s is required", FieldUpdated)
	}
	if m.TimeStamp < 0 {
		return fmt.Errorf("%s must be positive", FieldTimeStamp)
	}
	return nil
}

// NewDocument builds the document stored on first write for uid.
func (k Kind) NewDocument(uid string, payload Document, m Marker) Document {
	doc := k.Shell(uid)
	for f, v := range k.Pick(payload) {
		doc[f] = v
	}
	m.Apply(doc)
	return doc
}

// Shell is the empty document created before an element upsert.
func (k Kind) Shell(uid string) Document {
	doc := Clone(k.Defaults)
	if doc == nil {
		doc = Document{}
	}
	doc[FieldUID] = uid
	doc[FieldSchemaVersion] = SchemaVersion
	return doc
}
