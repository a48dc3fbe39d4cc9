package loader

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"admissionsbot/internal/domain"
)

// FAQ is one entry of the FAQ file.
type FAQ struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
	Category string `json:"category" yaml:"category"`
}

type faqFile struct {
	FAQs []FAQ `json:"faqs" yaml:"faqs"`
}

// LoadFAQsFile reads an FAQ file from disk. Files ending in .yaml or .yml are
// decoded as YAML, anything else as JSON.
func LoadFAQsFile(path string) ([]domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var file faqFile
		if err := yaml.NewDecoder(f).Decode(&file); err != nil {
			return nil, fmt.Errorf("%s: decode faqs: %w", path, err)
		}
		return faqDocuments(file.FAQs, path)
	default:
		return loadFAQs(f, path)
	}
}

// LoadFAQs decodes {"faqs": [...]} JSON into answer documents.
func LoadFAQs(r io.Reader) ([]domain.Document, error) {
	return loadFAQs(r, "faqs")
}

func loadFAQs(r io.Reader, source string) ([]domain.Document, error) {
	var file faqFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("%s: decode faqs: %w", source, err)
	}
	return faqDocuments(file.FAQs, source)
}

func faqDocuments(faqs []FAQ, source string) ([]domain.Document, error) {
	docs := make([]domain.Document, 0, len(faqs))
	for i, faq := range faqs {
		q := strings.TrimSpace(faq.Question)
		a := strings.TrimSpace(faq.Answer)
		c := strings.TrimSpace(faq.Category)
		switch {
		case q == "":
			return nil, &DataError{Source: source, Record: i, Field: "question"}
		case a == "":
			return nil, &DataError{Source: source, Record: i, Field: "answer"}
		case c == "":
			return nil, &DataError{Source: source, Record: i, Field: "category"}
		}
		docs = append(docs, domain.Document{
			Content:  a,
			Metadata: map[string]string{"question": q, "category": c},
		})
	}
	return docs, nil
}
