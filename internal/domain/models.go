package domain

import "time"

// QuestionType is the closed set of canonical question kinds.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeTrueFalse      QuestionType = "true_false"
	TypeSequence       QuestionType = "sequence"
	TypeFillInTheBlank QuestionType = "fill_in_the_blank"
	TypeShortAnswer    QuestionType = "short_answer"
	TypeDescriptive    QuestionType = "descriptive"
)

// ParseQuestionType reports whether raw names one of the known types.
func ParseQuestionType(raw string) (QuestionType, bool) {
	switch t := QuestionType(raw); t {
	case TypeMultipleChoice, TypeTrueFalse, TypeSequence, TypeFillInTheBlank, TypeShortAnswer, TypeDescriptive:
		return t, true
	}
	return "", false
}

// Option is an entry of a multiple-choice option list or a sequence item list.
type Option struct {
	ID   string `json:"id" yaml:"id"`
	Text string `json:"text" yaml:"text"`
}

// Blank is one gap of a fill-in-the-blank question.
type Blank struct {
	ID            string `json:"id" yaml:"id"`
	CorrectAnswer string `json:"correct_answer" yaml:"correct_answer"`
}

// Question is the canonical record produced by normalization. Which fields are
// meaningful depends on Type.
type Question struct {
	Type         QuestionType `json:"type" yaml:"type"`
	QuestionText string       `json:"question_text" yaml:"question_text"`
	Explanation  string       `json:"explanation,omitempty" yaml:"explanation,omitempty"`

	// multiple_choice, true_false, short_answer and legacy fill_in_the_blank.
	CorrectAnswer Value `json:"correct_answer" yaml:"correct_answer"`

	Options []Option `json:"options,omitempty" yaml:"options,omitempty"`

	Items           []Option `json:"items,omitempty" yaml:"items,omitempty"`
	CorrectSequence []string `json:"correct_sequence,omitempty" yaml:"correct_sequence,omitempty"`

	Blanks         []Blank  `json:"blanks,omitempty" yaml:"blanks,omitempty"`
	CorrectAnswers []string `json:"correct_answers,omitempty" yaml:"correct_answers,omitempty"`

	AlternativeAnswers []string `json:"alternative_answers,omitempty" yaml:"alternative_answers,omitempty"`
	CaseSensitive      bool     `json:"case_sensitive,omitempty" yaml:"case_sensitive,omitempty"`

	AnswerKeywords []string `json:"answer_keywords,omitempty" yaml:"answer_keywords,omitempty"`
	ModelAnswer    string   `json:"model_answer,omitempty" yaml:"model_answer,omitempty"`
}

// QuestionSet is a decoded payload whose questions all share Type.
type QuestionSet struct {
	ID        string       `json:"id" yaml:"id"`
	Type      QuestionType `json:"type" yaml:"type"`
	Questions []Question   `json:"questions" yaml:"questions"`
}

// Payload is the stored, still-encoded form of a question set.
type Payload struct {
	ID          string
	DisplayType string
	Raw         []byte
}

// QuestionRef is the origin identity of a question: the set it belongs to and
// its index within that set. It never changes when working sets are reordered.
type QuestionRef struct {
	SetID string `json:"setId"`
	Index int    `json:"index"`
}

// ResultEntry is the recorded outcome of checking one question.
type ResultEntry struct {
	Question   QuestionRef `json:"question"`
	IsCorrect  bool        `json:"isCorrect"`
	UserAnswer Value       `json:"userAnswer"`
}

// Summary is the end-of-session view of recorded results, in origin order.
type Summary struct {
	Total   int           `json:"total"`
	Visited int           `json:"visited"`
	Correct int           `json:"correct"`
	Entries []ResultEntry `json:"entries"`
}

// FavoriteKey identifies a question for the favorite services.
type FavoriteKey struct {
	QuestionID    string `json:"questionId"`
	QuestionIndex int    `json:"questionIndex"`
}

// FavoriteStatus is the answer of the favorite-status service for one key.
type FavoriteStatus struct {
	FavoriteKey
	IsFavorite bool   `json:"isFavorite"`
	FavoriteID string `json:"favoriteId,omitempty"`
}

// FavoriteFolder is a user-owned folder favorites are filed under.
type FavoriteFolder struct {
	FolderID  string    `json:"folderId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}
