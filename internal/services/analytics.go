package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"revi-backend/internal/models"
)

const (
	masteryWindow       = 3
	DefaultActivityDays = 30
	dayLayout           = "2006-01-02"
)

// AnalyticsService derives every figure from the caller's decks and
// sessions on each call; nothing is cached.
type AnalyticsService struct {
	scope ScopeFunc
	now   func() time.Time
}

func NewAnalyticsService(scope ScopeFunc) *AnalyticsService {
	return &AnalyticsService{scope: scope, now: time.Now}
}

type studyData struct {
	decks    []models.Deck
	cards    int
	sessions []models.HistoryEntry // started_at desc
}

func (s *AnalyticsService) load(ctx context.Context, id *models.Identity) (*studyData, error) {
	store := s.scope(id)
	decks, err := store.ListDecks(ctx)
	if err != nil {
		return nil, err
	}
	cards, err := store.CountCards(ctx)
	if err != nil {
		return nil, err
	}
	sessions, err := store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	return &studyData{decks: decks, cards: cards, sessions: sessions}, nil
}

// Overview reports raw rating counts.
func (s *AnalyticsService) Overview(ctx context.Context, id *models.Identity) (*models.Overview, error) {
	data, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &models.Overview{
		TotalDecks:    len(data.decks),
		TotalCards:    data.cards,
		TotalSessions: len(data.sessions),
		StudyStreak:   Streak(data.sessions, s.now()),
	}
	seconds := 0
	for i := range data.sessions {
		sess := &data.sessions[i]
		seconds += sess.DurationSeconds
		out.OverallRatings.Easy += sess.EasyCount
		out.OverallRatings.Medium += sess.MediumCount
		out.OverallRatings.Hard += sess.HardCount

		if sess.EndedAt != nil && (out.LastSessionAt == nil || sess.EndedAt.After(*out.LastSessionAt)) {
			out.LastSessionAt = sess.EndedAt
		}
		if sess.StartedAt != nil && (out.FirstSessionAt == nil || sess.StartedAt.Before(*out.FirstSessionAt)) {
			out.FirstSessionAt = sess.StartedAt
		}
	}
	out.TotalStudyMinutes = roundHalfUp(float64(seconds) / 60)
	return out, nil
}

// Dashboard reports rating percentages and per-deck mastery.
func (s *AnalyticsService) Dashboard(ctx context.Context, id *models.Identity) (*models.Dashboard, error) {
	data, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &models.Dashboard{
		TotalDecks:    len(data.decks),
		TotalCards:    data.cards,
		TotalAttempts: len(data.sessions),
		DeckMastery:   make([]models.DeckMastery, 0, len(data.decks)),
	}

	var counts models.RatingCounts
	byDeck := make(map[uuid.UUID][]models.HistoryEntry)
	for _, sess := range data.sessions {
		out.TotalStudyTime += sess.DurationSeconds
		counts.Easy += sess.EasyCount
		counts.Medium += sess.MediumCount
		counts.Hard += sess.HardCount
		byDeck[sess.DeckID] = append(byDeck[sess.DeckID], sess)
	}
	out.OverallRatings = ratingPercentages(counts)

	for _, deck := range data.decks {
		out.DeckMastery = append(out.DeckMastery, models.DeckMastery{
			DeckID:   deck.ID,
			DeckName: deck.Name,
			Mastery:  Mastery(byDeck[deck.ID]),
		})
	}
	return out, nil
}

// History lists every session, most recently started first.
func (s *AnalyticsService) History(ctx context.Context, id *models.Identity) ([]models.HistoryEntry, error) {
	return s.scope(id).ListSessions(ctx)
}

// Activity buckets sessions by the UTC day they started, for days in
// [from, to] inclusive. Zero values default to the last 30 days.
func (s *AnalyticsService) Activity(ctx context.Context, id *models.Identity, from, to time.Time) ([]models.ActivityDay, error) {
	today := utcDay(s.now())
	if to.IsZero() {
		to = today
	}
	if from.IsZero() {
		from = utcDay(to).AddDate(0, 0, -(DefaultActivityDays - 1))
	}
	from, to = utcDay(from), utcDay(to)
	if to.Before(from) {
		return nil, validationErrorf("from", "from must not be after to")
	}

	sessions, err := s.scope(id).ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	return AggregateActivity(sessions, from, to), nil
}

func (s *AnalyticsService) DeckPerformance(ctx context.Context, id *models.Identity, rawDeckID string) (*models.DeckPerformance, error) {
	deckID, err := parseDeckID(rawDeckID)
	if err != nil {
		return nil, err
	}
	store := s.scope(id)
	deck, err := store.GetDeck(ctx, deckID)
	if err != nil {
		return nil, mapNotFound(err, "Deck not found")
	}
	sessions, err := store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	out := &models.DeckPerformance{DeckID: deck.ID, DeckName: deck.Name}
	var deckSessions []models.HistoryEntry
	easy := 0
	for _, sess := range sessions {
		if sess.DeckID != deckID {
			continue
		}
		deckSessions = append(deckSessions, sess)
		out.TotalCardsReviewed += sess.TotalCards
		easy += sess.EasyCount

		last := sess.EndedAt
		if last == nil {
			last = sess.StartedAt
		}
		if last != nil && (out.LastStudiedAt == nil || last.After(*out.LastStudiedAt)) {
			out.LastStudiedAt = last
		}
	}
	out.TotalSessions = len(deckSessions)
	out.EasyRate = percent(easy, out.TotalCardsReviewed)
	out.Mastery = Mastery(deckSessions)
	return out, nil
}

// Mastery averages the easy share of the most recent sessions. sessions
// must be ordered by started_at descending.
func Mastery(sessions []models.HistoryEntry) int {
	if len(sessions) == 0 {
		return 0
	}
	recent := sessions[:min(masteryWindow, len(sessions))]
	sum := 0.0
	for _, sess := range recent {
		if sess.TotalCards > 0 {
			sum += float64(sess.EasyCount) * 100 / float64(sess.TotalCards)
		}
	}
	return roundHalfUp(sum / float64(len(recent)))
}

// Streak counts consecutive UTC days, ending today, with at least one
// session started.
func Streak(sessions []models.HistoryEntry, now time.Time) int {
	days := make(map[string]bool, len(sessions))
	for _, sess := range sessions {
		if sess.StartedAt != nil {
			days[sess.StartedAt.UTC().Format(dayLayout)] = true
		}
	}
	streak := 0
	for day := utcDay(now); days[day.Format(dayLayout)]; day = day.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}

func AggregateActivity(sessions []models.HistoryEntry, from, to time.Time) []models.ActivityDay {
	end := to.AddDate(0, 0, 1)
	byDay := make(map[string]*models.ActivityDay)
	for _, sess := range sessions {
		if sess.StartedAt == nil {
			continue
		}
		started := sess.StartedAt.UTC()
		if started.Before(from) || !started.Before(end) {
			continue
		}
		key := started.Format(dayLayout)
		day, ok := byDay[key]
		if !ok {
			day = &models.ActivityDay{Date: key}
			byDay[key] = day
		}
		day.Sessions++
		day.CardsStudied += sess.TotalCards
		day.Easy += sess.EasyCount
		day.Medium += sess.MediumCount
		day.Hard += sess.HardCount
		day.StudySeconds += sess.DurationSeconds
	}

	out := make([]models.ActivityDay, 0, len(byDay))
	for _, day := range byDay {
		out = append(out, *day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func ratingPercentages(c models.RatingCounts) models.RatingCounts {
	total := c.Easy + c.Medium + c.Hard
	return models.RatingCounts{
		Easy:   percent(c.Easy, total),
		Medium: percent(c.Medium, total),
		Hard:   percent(c.Hard, total),
	}
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay reads a YYYY-MM-DD query value; empty yields the zero time.
func ParseDay(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dayLayout, value)
	if err != nil {
		return time.Time{}, validationErrorf(field, "%s must be a date in YYYY-MM-DD format", field)
	}
	return t, nil
}
