package quiz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"heritagequest/internal/logger"
	"heritagequest/internal/models"
	"heritagequest/internal/progression"
)

// Progression is the part of the progression facade a quiz attempt drives
type Progression interface {
	CheckAndResetLives(ctx context.Context, userID string) (models.Profile, error)
	UpdateStreak(ctx context.Context, userID string) (models.Profile, error)
	IsQuestCompleted(ctx context.Context, userID, questID string) (bool, error)
	RecordCorrectAnswer(ctx context.Context, userID string) (models.Profile, error)
	LoseLife(ctx context.Context, userID string) (models.Profile, error)
	AddPoints(ctx context.Context, userID string, amount int) (models.Profile, error)
	CompleteQuest(ctx context.Context, userID, questID string) (models.Profile, bool, error)
}

// QuestStore loads quests with their questions. GetQuest returns nil, nil
// for an unknown id.
type QuestStore interface {
	GetQuest(ctx context.Context, questID string) (*models.Quest, error)
}

// QuestionView is a question as shown to the player. The answer and fun fact
// are only filled in once the question has been answered.
type QuestionView struct {
	ID            int64    `json:"id"`
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	Points        int      `json:"points"`
	CorrectAnswer *int     `json:"correctAnswer,omitempty"`
	FunFact       string   `json:"funFact,omitempty"`
}

// View is a session snapshot plus derived values
type View struct {
	Session
	Progress int           `json:"progress"`
	Question *QuestionView `json:"question,omitempty"`
}

// Engine runs quiz attempts. Calls for the same session are serialized;
// different sessions proceed in parallel.
type Engine struct {
	progression Progression
	quests      QuestStore
	sessions    SessionStore
	log         *logger.Logger
	now         func() time.Time
	locks       sessionLocks
}

// NewEngine creates a quiz engine
func NewEngine(p Progression, quests QuestStore, sessions SessionStore, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Discard()
	}
	return &Engine{
		progression: p,
		quests:      quests,
		sessions:    sessions,
		log:         log,
		now:         time.Now,
		locks:       sessionLocks{held: make(map[string]*sessionLock)},
	}
}

// WithClock replaces the engine clock
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Start opens a new attempt at questID
func (e *Engine) Start(ctx context.Context, userID, questID string, practice bool) (View, error) {
	if userID == "" {
		return View{}, progression.ErrUnauthorized
	}

	quest, err := e.loadQuest(ctx, questID)
	if err != nil {
		return View{}, err
	}

	completed, err := e.progression.IsQuestCompleted(ctx, userID, questID)
	if err != nil {
		return View{}, err
	}
	if practice && !completed {
		return View{}, ErrPracticeLocked
	}

	profile, err := e.progression.CheckAndResetLives(ctx, userID)
	if err != nil {
		return View{}, err
	}
	if !practice && (profile.Lives == 0 || profile.MaxLives == 0) {
		return View{}, ErrNoLives
	}

	if _, err := e.progression.UpdateStreak(ctx, userID); err != nil {
		return View{}, err
	}

	now := e.now().UTC()
	s := &Session{
		ID:             uuid.New().String(),
		UserID:         userID,
		QuestID:        questID,
		Practice:       practice,
		State:          StateAwaitingAnswer,
		TotalQuestions: len(quest.Questions),
		LivesRemaining: profile.Lives,
		QuestCompleted: completed,
		StartedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.sessions.Save(ctx, s); err != nil {
		return View{}, err
	}

	e.log.WithUserID(userID).WithFields(logrus.Fields{
		"session_id": s.ID,
		"quest_id":   questID,
		"practice":   practice,
	}).Info("quiz started")
	return buildView(s, quest), nil
}

// Get returns the current snapshot of a session
func (e *Engine) Get(ctx context.Context, userID, sessionID string) (View, error) {
	s, err := e.loadSession(ctx, userID, sessionID)
	if err != nil {
		return View{}, err
	}
	quest, err := e.loadQuest(ctx, s.QuestID)
	if err != nil {
		return View{}, err
	}
	return buildView(s, quest), nil
}

// SubmitAnswer answers the current question. A second submission for the
// same question is rejected with ErrAlreadyAnswered and changes nothing.
func (e *Engine) SubmitAnswer(ctx context.Context, userID, sessionID string, index int) (View, error) {
	defer e.locks.lock(sessionID)()

	s, err := e.loadSession(ctx, userID, sessionID)
	if err != nil {
		return View{}, err
	}
	quest, err := e.loadQuest(ctx, s.QuestID)
	if err != nil {
		return View{}, err
	}
	if s.State != StateAwaitingAnswer {
		if err := e.settle(ctx, s); err != nil {
			return buildView(s, quest), err
		}
		return buildView(s, quest), ErrAlreadyAnswered
	}
	if s.QuestionIndex >= len(quest.Questions) {
		return buildView(s, quest), fmt.Errorf("%w: quest changed during the attempt", ErrInvalidTransition)
	}

	next := *s
	outcome, err := next.submit(quest.Questions[s.QuestionIndex], index)
	if err != nil {
		return buildView(s, quest), err
	}

	effect := EffectNone
	switch {
	case next.Practice:
	case outcome.Correct:
		effect = EffectCorrectAnswer
	default:
		effect = EffectLoseLife
	}

	// The revealed state is stored before the profile changes, so a retry
	// after any later failure sees the question as answered.
	if err := e.save(ctx, &next); err != nil {
		return buildView(s, quest), err
	}
	if err := e.applyEffect(ctx, &next, effect); err != nil {
		return buildView(&next, quest), err
	}
	return buildView(&next, quest), nil
}

// applyEffect changes the profile for an answer already stored as revealed.
// On failure the effect is parked on the session for settle to retry.
func (e *Engine) applyEffect(ctx context.Context, s *Session, effect Effect) error {
	var (
		profile models.Profile
		err     error
	)
	switch effect {
	case EffectNone:
		return nil
	case EffectCorrectAnswer:
		_, err = e.progression.RecordCorrectAnswer(ctx, s.UserID)
	case EffectLoseLife:
		profile, err = e.progression.LoseLife(ctx, s.UserID)
	default:
		return fmt.Errorf("%w: unknown effect %q", ErrInvalidTransition, effect)
	}

	if err != nil {
		s.PendingEffect = effect
		if saveErr := e.save(ctx, s); saveErr != nil {
			e.log.WithUserID(s.UserID).WithError(saveErr).Error("failed to park pending quiz effect")
		}
		return err
	}

	if effect != EffectLoseLife {
		return nil
	}
	s.LivesRemaining = profile.Lives
	if profile.Lives == 0 {
		s.gameOver()
		e.log.WithUserID(s.UserID).WithField("session_id", s.ID).Info("quiz game over")
	}
	return e.save(ctx, s)
}

// settle applies an effect left behind by a failed submission. The marker is
// cleared before the effect runs, so an effect is applied at most once.
func (e *Engine) settle(ctx context.Context, s *Session) error {
	effect := s.PendingEffect
	if effect == EffectNone {
		return nil
	}

	s.PendingEffect = EffectNone
	if err := e.save(ctx, s); err != nil {
		s.PendingEffect = effect
		return err
	}
	return e.applyEffect(ctx, s, effect)
}

// Advance moves past a revealed question. After the last question the score
// is committed and the quest recorded as completed.
func (e *Engine) Advance(ctx context.Context, userID, sessionID string) (View, error) {
	defer e.locks.lock(sessionID)()

	s, err := e.loadSession(ctx, userID, sessionID)
	if err != nil {
		return View{}, err
	}
	quest, err := e.loadQuest(ctx, s.QuestID)
	if err != nil {
		return View{}, err
	}
	if err := e.settle(ctx, s); err != nil {
		return buildView(s, quest), err
	}

	next := *s
	last, err := next.advance()
	if err != nil {
		return buildView(s, quest), err
	}
	if !last {
		if err := e.save(ctx, &next); err != nil {
			return buildView(s, quest), err
		}
		return buildView(&next, quest), nil
	}

	if err := e.commit(ctx, &next); err != nil {
		return buildView(s, quest), err
	}
	if !next.Practice {
		if _, _, err := e.progression.CompleteQuest(ctx, userID, next.QuestID); err != nil {
			return buildView(&next, quest), err
		}
	}

	next.complete()
	if err := e.save(ctx, &next); err != nil {
		return buildView(&next, quest), err
	}
	e.log.WithUserID(userID).WithFields(logrus.Fields{
		"session_id": sessionID,
		"quest_id":   next.QuestID,
		"score":      next.Score,
	}).Info("quiz completed")
	return buildView(&next, quest), nil
}

// Exit abandons the session from any state. Outside practice mode an
// uncommitted score is credited before the session is dropped.
func (e *Engine) Exit(ctx context.Context, userID, sessionID string) (View, error) {
	defer e.locks.lock(sessionID)()

	s, err := e.loadSession(ctx, userID, sessionID)
	if err != nil {
		return View{}, err
	}

	if err := e.settle(ctx, s); err != nil {
		return View{}, err
	}
	if err := e.commit(ctx, s); err != nil {
		return View{}, err
	}
	if err := e.sessions.Delete(ctx, sessionID); err != nil {
		return View{}, err
	}

	e.log.WithUserID(userID).WithFields(logrus.Fields{
		"session_id": sessionID,
		"state":      string(s.State),
		"score":      s.Score,
	}).Info("quiz exited")
	return View{Session: *s, Progress: s.Progress()}, nil
}

// commit credits the session score once. The committed flag is persisted
// before the points are added so a retried request can never pay twice.
func (e *Engine) commit(ctx context.Context, s *Session) error {
	if !s.needsCommit() {
		return nil
	}

	s.Committed = true
	if err := e.save(ctx, s); err != nil {
		s.Committed = false
		return err
	}

	if _, err := e.progression.AddPoints(ctx, s.UserID, s.Score); err != nil {
		s.Committed = false
		if saveErr := e.save(ctx, s); saveErr != nil {
			e.log.WithUserID(s.UserID).WithError(saveErr).Error("failed to roll back quiz commit flag")
		}
		return err
	}
	return nil
}

func (e *Engine) save(ctx context.Context, s *Session) error {
	s.UpdatedAt = e.now().UTC()
	return e.sessions.Save(ctx, s)
}

func (e *Engine) loadSession(ctx context.Context, userID, sessionID string) (*Session, error) {
	if userID == "" {
		return nil, progression.ErrUnauthorized
	}
	s, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	// Someone else's session looks the same as a missing one
	if s == nil || s.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (e *Engine) loadQuest(ctx context.Context, questID string) (*models.Quest, error) {
	quest, err := e.quests.GetQuest(ctx, questID)
	if err != nil {
		return nil, err
	}
	if quest == nil {
		return nil, ErrQuestNotFound
	}
	if len(quest.Questions) == 0 {
		return nil, ErrEmptyQuest
	}
	return quest, nil
}

func buildView(s *Session, quest *models.Quest) View {
	v := View{Session: *s, Progress: s.Progress()}
	if s.State == StateCompleted || s.QuestionIndex >= len(quest.Questions) {
		return v
	}

	q := quest.Questions[s.QuestionIndex]
	v.Question = &QuestionView{
		ID:      q.ID,
		Text:    q.Text,
		Options: q.Options,
		Points:  q.Value(),
	}
	if s.State != StateAwaitingAnswer {
		answer := q.CorrectAnswer
		v.Question.CorrectAnswer = &answer
		v.Question.FunFact = q.FunFact
	}
	return v
}

// sessionLocks hands out one mutex per session id and forgets it once no
// caller holds or waits for it
type sessionLocks struct {
	mu   sync.Mutex
	held map[string]*sessionLock
}

type sessionLock struct {
	sync.Mutex
	refs int
}

func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	entry, ok := l.held[id]
	if !ok {
		entry = &sessionLock{}
		l.held[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.Lock()
	return func() {
		entry.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.held, id)
		}
		l.mu.Unlock()
	}
}
