// Package excel imports the card bank and the concept topology from
// Excel or CSV files prepared by course authors.
package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/AEYohn/Quizly-sub000/internal/database"
	"github.com/AEYohn/Quizly-sub000/internal/knowledge"
	"github.com/AEYohn/Quizly-sub000/pkg/models"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath  string // Path to the Excel or CSV file
	SheetName string // Name of the sheet to import
	StartRow  int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		SheetName: "Sheet1",
		StartRow:  2, // skip the header row
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Skipped        int
	Errors         []string
}

// Card file columns: topic, concept, type, prompt, options, answer,
// explanation, difficulty. Options are separated by "|".
const (
	cardColTopic = iota
	cardColConcept
	cardColType
	cardColPrompt
	cardColOptions
	cardColAnswer
	cardColExplanation
	cardColDifficulty
)

// Topology file columns: unit, topic, concept, prerequisites.
// Prerequisites are separated by ",".
const (
	topoColUnit = iota
	topoColTopic
	topoColConcept
	topoColPrereqs
)

// ImportCards imports cards from an Excel or CSV file into the bank.
func ImportCards(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	rows, err := readRows(config)
	if err != nil {
		return nil, err
	}

	cards, result := ParseCards(rows, config.StartRow)

	repo := database.NewCardRepository()
	for i := range cards {
		if err := repo.Create(ctx, &cards[i]); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("card %s: %v", cards[i].Prompt, err))
			continue
		}
		result.Created++
	}
	return result, nil
}

// ImportTopology replaces the stored concept topology from a file.
func ImportTopology(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	rows, err := readRows(config)
	if err != nil {
		return nil, err
	}

	topics, concepts, result := ParseTopology(rows, config.StartRow)

	if err := database.NewTopologyRepository().Replace(ctx, topics, concepts); err != nil {
		return nil, fmt.Errorf("failed to store topology: %v", err)
	}
	result.Created = len(concepts)
	return result, nil
}

// ParseCards converts raw rows into cards, collecting per-row errors
// instead of aborting the import.
func ParseCards(rows [][]string, startRow int) ([]models.Card, *ImportResult) {
	result := &ImportResult{Errors: make([]string, 0)}
	var cards []models.Card

	for i, row := range rows {
		if i < startRow-1 {
			continue
		}
		result.TotalProcessed++

		card, err := parseCardRow(row)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		cards = append(cards, card)
	}
	return cards, result
}

func parseCardRow(row []string) (models.Card, error) {
	if len(row) <= cardColAnswer {
		return models.Card{}, fmt.Errorf("too few columns")
	}
	get := func(col int) string {
		if col < len(row) {
			return strings.TrimSpace(row[col])
		}
		return ""
	}

	card := models.Card{
		ID:          uuid.NewString(),
		Topic:       get(cardColTopic),
		Concept:     get(cardColConcept),
		Type:        strings.ToLower(get(cardColType)),
		Prompt:      get(cardColPrompt),
		Answer:      get(cardColAnswer),
		Explanation: get(cardColExplanation),
		Difficulty:  0.5,
	}
	if card.Topic == "" || card.Concept == "" || card.Prompt == "" || card.Answer == "" {
		return models.Card{}, fmt.Errorf("topic, concept, prompt and answer are required")
	}

	switch card.Type {
	case "":
		card.Type = models.CardFlashcard
	case models.CardFlashcard, models.CardMultipleChoice, models.CardFillBlank:
	default:
		return models.Card{}, fmt.Errorf("unknown card type %q", card.Type)
	}

	if opts := get(cardColOptions); opts != "" {
		for _, o := range strings.Split(opts, "|") {
			if o = strings.TrimSpace(o); o != "" {
				card.Options = append(card.Options, o)
			}
		}
	}

	if raw := get(cardColDifficulty); raw != "" {
		d, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return models.Card{}, fmt.Errorf("bad difficulty %q", raw)
		}
		if d < 0.1 {
			d = 0.1
		}
		if d > 0.95 {
			d = 0.95
		}
		card.Difficulty = d
	}
	return card, nil
}

// ParseTopology converts raw rows into topology entries, preserving file
// order as presentation order.
func ParseTopology(rows [][]string, startRow int) ([]knowledge.Topic, []knowledge.Concept, *ImportResult) {
	result := &ImportResult{Errors: make([]string, 0)}

	topicIndex := make(map[string]int)
	var topics []knowledge.Topic
	var concepts []knowledge.Concept

	for i, row := range rows {
		if i < startRow-1 {
			continue
		}
		result.TotalProcessed++

		get := func(col int) string {
			if col < len(row) {
				return strings.TrimSpace(row[col])
			}
			return ""
		}
		topic := get(topoColTopic)
		concept := get(topoColConcept)
		if topic == "" || concept == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: topic and concept are required", i+1))
			continue
		}

		idx, ok := topicIndex[topic]
		if !ok {
			idx = len(topics)
			topicIndex[topic] = idx
			topics = append(topics, knowledge.Topic{Name: topic, Unit: get(topoColUnit)})
		}
		topics[idx].Concepts = append(topics[idx].Concepts, concept)

		var prereqs []string
		for _, p := range strings.Split(get(topoColPrereqs), ",") {
			if p = strings.TrimSpace(p); p != "" {
				prereqs = append(prereqs, p)
			}
		}
		concepts = append(concepts, knowledge.Concept{
			Name:          concept,
			Topic:         topic,
			Prerequisites: prereqs,
		})
	}
	return topics, concepts, result
}

// readRows loads the file into rows, dispatching on extension.
func readRows(config ImportConfig) ([][]string, error) {
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		return readCSV(config.FilePath)
	}
	return readExcel(config)
}

func readExcel(config ImportConfig) ([][]string, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(config.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %v", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %v", err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}
