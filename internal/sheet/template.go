// Package sheet defines the exam template data model: the declarative
// description of a printed answer sheet that the vision pipeline grades
// against. It mirrors how the reference tool's board package describes a
// board specification — JSON-tagged, independently loadable, validated
// before use.
package sheet

import (
	"encoding/json"
	"fmt"
	"os"
)

// QuestionKind distinguishes multiple-choice from true/false questions.
type QuestionKind int

const (
	MultipleChoice QuestionKind = iota
	TrueFalse
)

func (k QuestionKind) String() string {
	switch k {
	case MultipleChoice:
		return "MultipleChoice"
	case TrueFalse:
		return "TrueFalse"
	default:
		return "Unknown"
	}
}

func (k QuestionKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *QuestionKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "MultipleChoice", "":
		*k = MultipleChoice
	case "TrueFalse":
		*k = TrueFalse
	default:
		return fmt.Errorf("unknown question kind %q", s)
	}
	return nil
}

// Question describes one question's position in the answer key and its
// option count.
type Question struct {
	Number  int          `json:"question_number"`
	Kind    QuestionKind `json:"kind"`
	Options int          `json:"options,omitempty"` // MultipleChoice only; default 4
}

// OptionCount returns the number of selectable options for the question,
// applying the MultipleChoice default and the fixed TrueFalse count.
func (q Question) OptionCount() int {
	if q.Kind == TrueFalse {
		return 2
	}
	if q.Options == 0 {
		return 4
	}
	return q.Options
}

// Letters returns the legal answer letters for the question, in option order.
func (q Question) Letters() []byte {
	if q.Kind == TrueFalse {
		return []byte{'T', 'F'}
	}
	n := q.OptionCount()
	letters := make([]byte, n)
	for i := 0; i < n; i++ {
		letters[i] = 'A' + byte(i)
	}
	return letters
}

// ExamTemplate is the immutable declarative description of a printed answer
// sheet: student-ID cell count and the ordered list of questions. It is the
// sole external input to the grading pipeline besides the page image.
type ExamTemplate struct {
	StudentInfoEnabled bool       `json:"student_info_enabled"`
	StudentIDEnabled   bool       `json:"student_id_enabled"`
	StudentIDDigits    int        `json:"student_id_digits"`
	Questions          []Question `json:"questions"`
}

// Validate enforces the template-mismatch fatal-error rules: student ID
// digit count and per-question option counts must be within the printed
// layout's supported range.
func (t *ExamTemplate) Validate() error {
	if t.StudentIDDigits < 0 || t.StudentIDDigits > 40 {
		return fmt.Errorf("sheet: student_id_digits %d out of range [0,40]", t.StudentIDDigits)
	}
	if t.StudentIDEnabled && t.StudentIDDigits == 0 {
		return fmt.Errorf("sheet: student_id_enabled but student_id_digits is 0")
	}
	lastNumber := 0
	for i, q := range t.Questions {
		if q.Number <= lastNumber {
			return fmt.Errorf("sheet: question %d: question_number %d must strictly increase (previous %d)", i, q.Number, lastNumber)
		}
		lastNumber = q.Number

		switch q.Kind {
		case MultipleChoice:
			opts := q.Options
			if opts == 0 {
				opts = 4
			}
			if opts < 2 || opts > 4 {
				return fmt.Errorf("sheet: question %d: options %d not in {2,3,4}", q.Number, opts)
			}
		case TrueFalse:
			if q.Options != 0 && q.Options != 2 {
				return fmt.Errorf("sheet: question %d: true/false question must have 2 options, got %d", q.Number, q.Options)
			}
		default:
			return fmt.Errorf("sheet: question %d: unknown kind %v", q.Number, q.Kind)
		}
	}
	return nil
}

// LoadFromFile loads and validates an ExamTemplate from a JSON file.
func LoadFromFile(path string) (*ExamTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sheet: read template: %w", err)
	}
	var t ExamTemplate
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("sheet: parse template: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// SaveToFile writes the template as indented JSON.
func (t *ExamTemplate) SaveToFile(path string) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Sections groups consecutive questions sharing (kind, options) into the
// print sections the layout engine lays out as one block each.
type Section struct {
	Kind      QuestionKind
	Options   int
	Questions []Question
}

// BuildSections reconstructs the sections implied by the question list,
// since the template does not model them explicitly (§3 of the layout
// contract).
func BuildSections(questions []Question) []Section {
	var sections []Section
	for _, q := range questions {
		opts := q.OptionCount()
		if len(sections) > 0 {
			last := &sections[len(sections)-1]
			if last.Kind == q.Kind && last.Options == opts {
				last.Questions = append(last.Questions, q)
				continue
			}
		}
		sections = append(sections, Section{Kind: q.Kind, Options: opts, Questions: []Question{q}})
	}
	return sections
}
