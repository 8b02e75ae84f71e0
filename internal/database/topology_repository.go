package database

import (
	"context"
	"fmt"

	"github.com/AEYohn/Quizly-sub000/internal/knowledge"
)

// TopologyRepository stores the prerequisite graph rows
type TopologyRepository struct{}

// NewTopologyRepository creates a new repository instance
func NewTopologyRepository() *TopologyRepository {
	return &TopologyRepository{}
}

// Replace overwrites the whole topology in one transaction. Imports are
// whole-subject, so partial updates are not supported.
func (r *TopologyRepository) Replace(ctx context.Context, topics []knowledge.Topic, concepts []knowledge.Concept) error {
	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"concept_prerequisites", "concepts", "topics"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %v", table, err)
		}
	}

	for i, t := range topics {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO topics (name, unit, position) VALUES ($1, $2, $3)",
			t.Name, t.Unit, i)
		if err != nil {
			return fmt.Errorf("failed to insert topic %s: %v", t.Name, err)
		}
	}

	for i, c := range concepts {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO concepts (name, topic, position) VALUES ($1, $2, $3)",
			c.Name, c.Topic, i)
		if err != nil {
			return fmt.Errorf("failed to insert concept %s: %v", c.Name, err)
		}
		for _, pre := range c.Prerequisites {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO concept_prerequisites (concept, prerequisite) VALUES ($1, $2)",
				c.Name, pre)
			if err != nil {
				return fmt.Errorf("failed to insert prerequisite %s -> %s: %v", c.Name, pre, err)
			}
		}
	}

	return tx.Commit()
}

// LoadGraph reads the stored topology into a knowledge graph.
func (r *TopologyRepository) LoadGraph(ctx context.Context) (*knowledge.Graph, error) {
	type topicRow struct {
		Name string `db:"name"`
		Unit string `db:"unit"`
	}
	var topicRows []topicRow
	err := DB.SelectContext(ctx, &topicRows,
		"SELECT name, unit FROM topics ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to load topics: %v", err)
	}

	type conceptRow struct {
		Name  string `db:"name"`
		Topic string `db:"topic"`
	}
	var conceptRows []conceptRow
	err = DB.SelectContext(ctx, &conceptRows,
		"SELECT name, topic FROM concepts ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to load concepts: %v", err)
	}

	type preRow struct {
		Concept      string `db:"concept"`
		Prerequisite string `db:"prerequisite"`
	}
	var preRows []preRow
	err = DB.SelectContext(ctx, &preRows,
		"SELECT concept, prerequisite FROM concept_prerequisites")
	if err != nil {
		return nil, fmt.Errorf("failed to load prerequisites: %v", err)
	}

	prereqs := make(map[string][]string)
	for _, p := range preRows {
		prereqs[p.Concept] = append(prereqs[p.Concept], p.Prerequisite)
	}

	byTopic := make(map[string][]string)
	concepts := make([]knowledge.Concept, 0, len(conceptRows))
	for _, c := range conceptRows {
		byTopic[c.Topic] = append(byTopic[c.Topic], c.Name)
		concepts = append(concepts, knowledge.Concept{
			Name:          c.Name,
			Topic:         c.Topic,
			Prerequisites: prereqs[c.Name],
		})
	}

	topics := make([]knowledge.Topic, 0, len(topicRows))
	for _, t := range topicRows {
		topics = append(topics, knowledge.Topic{
			Name:     t.Name,
			Unit:     t.Unit,
			Concepts: byTopic[t.Name],
		})
	}

	return knowledge.NewGraph(topics, concepts), nil
}
