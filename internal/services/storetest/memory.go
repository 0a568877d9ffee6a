// Package storetest provides an in-memory, per-user-scoped store for tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"revi-backend/internal/models"
	"revi-backend/internal/repository"
)

// Memory mirrors the Postgres store's ownership rules. Timestamps come
// from a clock that advances one second per write so ordering is stable.
type Memory struct {
	mu       sync.Mutex
	clock    time.Time
	decks    map[uuid.UUID]models.Deck
	cards    map[uuid.UUID]models.Card
	sessions map[uuid.UUID]models.ReviewSession
	reviews  []models.CardReview

	// Injected failures.
	InsertSessionErr error
	InsertReviewsErr error
	ListSessionsErr  error
	PurgeErr         error
}

func NewMemory() *Memory {
	return &Memory{
		clock:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		decks:    map[uuid.UUID]models.Deck{},
		cards:    map[uuid.UUID]models.Card{},
		sessions: map[uuid.UUID]models.ReviewSession{},
	}
}

// For returns a handle scoped to identity.
func (m *Memory) For(identity *models.Identity) *Scope {
	return &Scope{m: m, user: identity.ID}
}

func (m *Memory) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

// Reviews returns a copy of every stored card review.
func (m *Memory) Reviews() []models.CardReview {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.CardReview(nil), m.reviews...)
}

func (m *Memory) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Memory) CardCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cards)
}

// AddSession stores a session directly, bypassing validation.
func (m *Memory) AddSession(s models.ReviewSession) models.ReviewSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = m.tick()
	}
	m.sessions[s.ID] = s
	return s
}

type Scope struct {
	m    *Memory
	user uuid.UUID
}

func (s *Scope) ownsDeck(id uuid.UUID) bool {
	d, ok := s.m.decks[id]
	return ok && d.UserID == s.user
}

func (s *Scope) CreateDeck(ctx context.Context, name, description string) (*models.Deck, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	d := models.Deck{ID: uuid.New(), UserID: s.user, Name: name, Description: description, CreatedAt: s.m.tick()}
	s.m.decks[d.ID] = d
	return &d, nil
}

func (s *Scope) ListDecks(ctx context.Context) ([]models.Deck, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := []models.Deck{}
	for _, d := range s.m.decks {
		if d.UserID == s.user {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Scope) GetDeck(ctx context.Context, id uuid.UUID) (*models.Deck, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if !s.ownsDeck(id) {
		return nil, repository.ErrNotFound
	}
	d := s.m.decks[id]
	return &d, nil
}

func (s *Scope) DeleteDecks(ctx context.Context, ids []uuid.UUID) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	n := 0
	for _, id := range ids {
		if !s.ownsDeck(id) {
			continue
		}
		for sid, sess := range s.m.sessions {
			if sess.DeckID == id {
				s.dropReviews(func(r models.CardReview) bool { return r.SessionID == sid })
				delete(s.m.sessions, sid)
			}
		}
		for cid, c := range s.m.cards {
			if c.DeckID == id {
				delete(s.m.cards, cid)
			}
		}
		delete(s.m.decks, id)
		n++
	}
	return n, nil
}

func (s *Scope) dropReviews(match func(models.CardReview) bool) {
	kept := s.m.reviews[:0]
	for _, r := range s.m.reviews {
		if !match(r) {
			kept = append(kept, r)
		}
	}
	s.m.reviews = kept
}

func (s *Scope) CreateCard(ctx context.Context, deckID uuid.UUID, question, answer string) (*models.Card, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if !s.ownsDeck(deckID) {
		return nil, repository.ErrNotFound
	}
	now := s.m.tick()
	c := models.Card{ID: uuid.New(), DeckID: deckID, UserID: s.user, Question: question, Answer: answer, CreatedAt: now, UpdatedAt: now}
	s.m.cards[c.ID] = c
	return &c, nil
}

func (s *Scope) ListCards(ctx context.Context, deckID uuid.UUID) ([]models.Card, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := []models.Card{}
	for _, c := range s.m.cards {
		if c.DeckID == deckID && c.UserID == s.user {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Scope) UpdateCard(ctx context.Context, id uuid.UUID, question, answer string) (*models.Card, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	c, ok := s.m.cards[id]
	if !ok || c.UserID != s.user {
		return nil, repository.ErrNotFound
	}
	c.Question, c.Answer, c.UpdatedAt = question, answer, s.m.tick()
	s.m.cards[id] = c
	return &c, nil
}

func (s *Scope) DeleteCard(ctx context.Context, id uuid.UUID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	c, ok := s.m.cards[id]
	if !ok || c.UserID != s.user {
		return repository.ErrNotFound
	}
	s.dropReviews(func(r models.CardReview) bool { return r.CardID == id })
	delete(s.m.cards, id)
	return nil
}

func (s *Scope) CountCards(ctx context.Context) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	n := 0
	for _, c := range s.m.cards {
		if s.ownsDeck(c.DeckID) {
			n++
		}
	}
	return n, nil
}

func (s *Scope) InsertSession(ctx context.Context, sess *models.ReviewSession) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.InsertSessionErr != nil {
		return s.m.InsertSessionErr
	}
	if !s.ownsDeck(sess.DeckID) {
		return repository.ErrNotFound
	}
	sess.ID = uuid.New()
	sess.UserID = s.user
	sess.CreatedAt = s.m.tick()
	s.m.sessions[sess.ID] = *sess
	return nil
}

func (s *Scope) InsertCardReviews(ctx context.Context, sessionID uuid.UUID, ratings []models.CardRating, reviewedAt time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.InsertReviewsErr != nil {
		return s.m.InsertReviewsErr
	}
	// one statement in Postgres: a bad id fails the whole batch
	rows := make([]models.CardReview, 0, len(ratings))
	for _, r := range ratings {
		cardID, err := uuid.Parse(r.CardID)
		if err != nil {
			return fmt.Errorf("insert card reviews: invalid card id %q: %w", r.CardID, err)
		}
		rows = append(rows, models.CardReview{
			ID: uuid.New(), SessionID: sessionID, CardID: cardID, Rating: r.Rating, ReviewedAt: reviewedAt,
		})
	}
	s.m.reviews = append(s.m.reviews, rows...)
	return nil
}

func (s *Scope) PreviousSession(ctx context.Context, deckID, excludeID uuid.UUID) (*models.ReviewSession, error) {
	entries, err := s.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.DeckID == deckID && e.ID != excludeID {
			sess := e.ReviewSession
			return &sess, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Scope) ListSessions(ctx context.Context) ([]models.HistoryEntry, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.ListSessionsErr != nil {
		return nil, s.m.ListSessionsErr
	}
	out := []models.HistoryEntry{}
	for _, sess := range s.m.sessions {
		if sess.UserID != s.user {
			continue
		}
		out = append(out, models.HistoryEntry{ReviewSession: sess, DeckName: s.m.decks[sess.DeckID].Name})
	}
	sort.Slice(out, func(i, j int) bool { return startedAfter(out[i].ReviewSession, out[j].ReviewSession) })
	return out, nil
}

// startedAfter orders by started_at desc with missing values last, then
// created_at desc.
func startedAfter(a, b models.ReviewSession) bool {
	switch {
	case a.StartedAt == nil && b.StartedAt == nil:
	case a.StartedAt == nil:
		return false
	case b.StartedAt == nil:
		return true
	case !a.StartedAt.Equal(*b.StartedAt):
		return a.StartedAt.After(*b.StartedAt)
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func (s *Scope) PurgeAccount(ctx context.Context) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.PurgeErr != nil {
		return s.m.PurgeErr
	}
	for id, sess := range s.m.sessions {
		if sess.UserID == s.user {
			s.dropReviews(func(r models.CardReview) bool { return r.SessionID == id })
			delete(s.m.sessions, id)
		}
	}
	for id, c := range s.m.cards {
		if c.UserID == s.user {
			delete(s.m.cards, id)
		}
	}
	for id, d := range s.m.decks {
		if d.UserID == s.user {
			delete(s.m.decks, id)
		}
	}
	return nil
}
