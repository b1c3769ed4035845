// Package training populates the retrieval corpus. Training only happens
// when asked for, through the API or the querypilot-train command.
package training

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"querypilot/db"
	"querypilot/models"
)

type VectorStore interface {
	Add(ctx context.Context, item models.TrainingItem) (string, error)
	Remove(ctx context.Context, id string) (bool, error)
}

type Ledger interface {
	StoreTrainingItem(item models.TrainingItem) error
	GetTrainingItems() ([]models.TrainingItem, error)
	DeleteTrainingItem(id string) error
}

type Trainer struct {
	store  VectorStore
	ledger Ledger
	now    func() time.Time
}

func NewTrainer(store VectorStore, ledger Ledger) *Trainer {
	return &Trainer{store: store, ledger: ledger, now: time.Now}
}

// Train embeds item into the vector store and records it in the ledger.
// Re-training identical content keeps the same id.
func (t *Trainer) Train(ctx context.Context, item models.TrainingItem) (models.TrainingItem, error) {
	id, err := t.store.Add(ctx, item)
	if err != nil {
		return models.TrainingItem{}, err
	}
	item.ID = id
	if item.CreatedAt.IsZero() {
		item.CreatedAt = t.now().UTC()
	}
	if err := t.ledger.StoreTrainingItem(item); err != nil {
		return models.TrainingItem{}, fmt.Errorf("record training item %s: %w", id, err)
	}
	slog.Debug("trained item", "id", id, "kind", item.Kind)
	return item, nil
}

// TrainAll trains items in order and stops at the first failure, returning
// what was trained so far.
func (t *Trainer) TrainAll(ctx context.Context, items []models.TrainingItem) ([]models.TrainingItem, error) {
	trained := make([]models.TrainingItem, 0, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return trained, err
		}
		done, err := t.Train(ctx, item)
		if err != nil {
			return trained, fmt.Errorf("item %d (%s): %w", i+1, item.Kind, err)
		}
		trained = append(trained, done)
	}
	return trained, nil
}

func (t *Trainer) List() ([]models.TrainingItem, error) {
	return t.ledger.GetTrainingItems()
}

// Remove deletes id from the vector store and the ledger. It reports false
// when neither knew the id.
func (t *Trainer) Remove(ctx context.Context, id string) (bool, error) {
	removed, err := t.store.Remove(ctx, id)
	if err != nil {
		return false, err
	}
	switch err := t.ledger.DeleteTrainingItem(id); {
	case errors.Is(err, db.ErrNotFound):
		return removed, nil
	case err != nil:
		return removed, fmt.Errorf("delete training item %s: %w", id, err)
	}
	return true, nil
}
