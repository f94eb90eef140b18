package services

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "papertrade/internal/errors"
	"papertrade/internal/explain"
	"papertrade/internal/logger"
	"papertrade/internal/models"
)

const maxTermLength = 200

// explanationService caches generated explanations by lowercased term.
type explanationService struct {
	db        *gorm.DB
	generator explain.Generator
}

// NewExplanationService creates a new ExplanationServicer. A nil generator
// disables generation and every new term is answered from the fallback table.
func NewExplanationService(db *gorm.DB, generator explain.Generator) ExplanationServicer {
	return &explanationService{db: db, generator: generator}
}

// Explain returns the stored explanation for term, generating and storing
// one on first request. Concurrent first requests store a single row; the
// first writer wins and every caller gets that row.
func (s *explanationService) Explain(ctx context.Context, term string) (*models.Explanation, error) {
	key := explain.Key(term)
	if key == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "term is required")
	}
	if len(key) > maxTermLength {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "term is too long")
	}

	existing, err := s.find(key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	text, persist := s.generate(ctx, term)
	if !persist {
		return &models.Explanation{Term: key, Explanation: text}, nil
	}

	row := &models.Explanation{Term: key, Explanation: text}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "term"}},
		DoNothing: true,
	}).Create(row).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	stored, err := s.find(key)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, errors.New("explanation vanished after insert"))
	}
	return stored, nil
}

func (s *explanationService) find(key string) (*models.Explanation, error) {
	var e models.Explanation
	err := s.db.Where("term = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &e, nil
}

// generate produces text for term and reports whether it should be stored.
// Quota exhaustion and a disabled generator store the fallback text; other
// failures return an apology that is not stored so a later call can retry.
func (s *explanationService) generate(ctx context.Context, term string) (string, bool) {
	if s.generator == nil {
		return explain.Fallback(term), true
	}

	text, err := s.generator.Generate(ctx, explain.Prompt(term))
	switch {
	case err == nil && text != "":
		return text, true
	case errors.Is(err, explain.ErrQuotaExceeded):
		logger.Get().Warnw("explanation generator over quota", "term", term, "error", err)
		return explain.Fallback(term), true
	default:
		logger.Get().Errorw("explanation generation failed", "term", term, "error", err)
		return explain.Unavailable(term), false
	}
}
