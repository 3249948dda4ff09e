package entities

// CharacterComponent is one structural component of a Chinese character.
type CharacterComponent struct {
	Char    string `json:"char"`
	Meaning string `json:"meaning"`
	Radical bool   `json:"radical,omitempty"`
}

// ExampleSentence is a usage example attached to a dictionary entry.
type ExampleSentence struct {
	Chinese     string `json:"chinese"`
	Pinyin      string `json:"pinyin,omitempty"`
	Translation string `json:"translation"`
}

// CompoundWord is a common compound built from the looked-up character.
type CompoundWord struct {
	Word    string `json:"word"`
	Pinyin  string `json:"pinyin,omitempty"`
	Meaning string `json:"meaning"`
}

// DictionaryEntry is a full linguistic breakdown of a word or character.
type DictionaryEntry struct {
	Simplified  string               `json:"simplified"`
	Traditional string               `json:"traditional,omitempty"`
	Pinyin      string               `json:"pinyin"`
	HSKLevel    int                  `json:"hskLevel,omitempty"`
	Etymology   string               `json:"etymology,omitempty"`
	Meanings    []string             `json:"meanings"`
	Components  []CharacterComponent `json:"components"`
	Examples    []ExampleSentence    `json:"examples,omitempty"`
	Compounds   []CompoundWord       `json:"compounds,omitempty"`
}

// CultureArticle is a generated deep-dive into a Chinese cultural topic.
type CultureArticle struct {
	ChineseTitle          string       `json:"chineseTitle"`
	PinyinTitle           string       `json:"pinyinTitle"`
	FullContentChinese    string       `json:"fullContentChinese"`
	FullContentTranslated string       `json:"fullContentTranslated"`
	KeyConcepts           []VocabEntry `json:"keyConcepts"`
	Reflection            string       `json:"reflection"`
}

// HSKQuestion is one question of a generated mock exam.
type HSKQuestion struct {
	ID          string   `json:"id"`
	Question    string   `json:"question"`
	Content     string   `json:"content"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}
