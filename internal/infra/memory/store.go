package memory

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"skill-quiz-service/internal/app"
	"skill-quiz-service/internal/domain"
)

// Store is an in-process implementation of app.Store used in development
// mode and tests. Foreign keys and cascades mirror the SQL schema.
type Store struct {
	db *database
	tx *tables // set inside InTx
}

type database struct {
	mu    sync.RWMutex // guards data
	txMu  sync.Mutex   // serializes writers
	data  *tables
	clock func() time.Time

	faultMu sync.Mutex
	faults  map[string]error
}

type tables struct {
	seq       int64
	users     map[int64]domain.User
	skills    map[int64]domain.Skill
	quizzes   map[int64]domain.Quiz
	questions map[int64]domain.Question
	attempts  map[int64]domain.Attempt
	answers   map[int64]domain.Answer
}

var _ app.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{db: &database{
		data:   newTables(),
		clock:  time.Now,
		faults: make(map[string]error),
	}}
}

func newTables() *tables {
	return &tables{
		users:     make(map[int64]domain.User),
		skills:    make(map[int64]domain.Skill),
		quizzes:   make(map[int64]domain.Quiz),
		questions: make(map[int64]domain.Question),
		attempts:  make(map[int64]domain.Attempt),
		answers:   make(map[int64]domain.Answer),
	}
}

func (t *tables) clone() *tables {
	c := &tables{
		seq:       t.seq,
		users:     make(map[int64]domain.User, len(t.users)),
		skills:    make(map[int64]domain.Skill, len(t.skills)),
		quizzes:   make(map[int64]domain.Quiz, len(t.quizzes)),
		questions: make(map[int64]domain.Question, len(t.questions)),
		attempts:  make(map[int64]domain.Attempt, len(t.attempts)),
		answers:   make(map[int64]domain.Answer, len(t.answers)),
	}
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.skills {
		c.skills[k] = v
	}
	for k, v := range t.quizzes {
		c.quizzes[k] = v
	}
	for k, v := range t.questions {
		c.questions[k] = v
	}
	for k, v := range t.attempts {
		c.attempts[k] = v
	}
	for k, v := range t.answers {
		c.answers[k] = v
	}
	return c
}

func (t *tables) nextID() int64 {
	t.seq++
	return t.seq
}

// InjectFault makes the named write operation (e.g. "CreateAnswers") fail
// with err until cleared with a nil err.
func (s *Store) InjectFault(op string, err error) {
	s.db.faultMu.Lock()
	defer s.db.faultMu.Unlock()
	if err == nil {
		delete(s.db.faults, op)
		return
	}
	s.db.faults[op] = err
}

func (s *Store) fault(op string) error {
	s.db.faultMu.Lock()
	defer s.db.faultMu.Unlock()
	return s.db.faults[op]
}

// InTx runs fn against a private copy of the data that replaces the shared
// copy only when fn succeeds. Nested calls join the outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx app.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.db.txMu.Lock()
	defer s.db.txMu.Unlock()

	s.db.mu.RLock()
	work := s.db.data.clone()
	s.db.mu.RUnlock()

	if err := fn(&Store{db: s.db, tx: work}); err != nil {
		return err
	}
	s.db.mu.Lock()
	s.db.data = work
	s.db.mu.Unlock()
	return nil
}

func (s *Store) read(fn func(t *tables) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return fn(s.db.data)
}

func (s *Store) write(op string, fn func(t *tables, now time.Time) error) error {
	if err := s.fault(op); err != nil {
		return err
	}
	now := s.db.clock().UTC()
	if s.tx != nil {
		return fn(s.tx, now)
	}
	s.db.txMu.Lock()
	defer s.db.txMu.Unlock()
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(s.db.data, now)
}

// Skills

func (s *Store) CreateSkill(_ context.Context, skill *domain.Skill) error {
	return s.write("CreateSkill", func(t *tables, now time.Time) error {
		if t.skillNameTaken(skill.Name, 0) {
			return domain.Conflict("Skill name already exists", nil)
		}
		skill.ID = t.nextID()
		skill.CreatedAt, skill.UpdatedAt = now, now
		t.skills[skill.ID] = *skill
		return nil
	})
}

func (s *Store) ListSkills(_ context.Context) ([]domain.Skill, error) {
	var out []domain.Skill
	err := s.read(func(t *tables) error {
		out = make([]domain.Skill, 0, len(t.skills))
		for _, sk := range t.skills {
			out = append(out, sk)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (s *Store) GetSkill(_ context.Context, id int64) (domain.Skill, error) {
	var out domain.Skill
	err := s.read(func(t *tables) error {
		sk, ok := t.skills[id]
		if !ok {
			return domain.ErrSkillNotFound
		}
		out = sk
		return nil
	})
	return out, err
}

func (s *Store) SkillNameTaken(_ context.Context, name string, exceptID int64) (bool, error) {
	var taken bool
	err := s.read(func(t *tables) error {
		taken = t.skillNameTaken(name, exceptID)
		return nil
	})
	return taken, err
}

func (t *tables) skillNameTaken(name string, exceptID int64) bool {
	for _, sk := range t.skills {
		if sk.Name == name && sk.ID != exceptID {
			return true
		}
	}
	return false
}

func (s *Store) UpdateSkill(_ context.Context, skill *domain.Skill) error {
	return s.write("UpdateSkill", func(t *tables, now time.Time) error {
		prev, ok := t.skills[skill.ID]
		if !ok {
			return domain.ErrSkillNotFound
		}
		if t.skillNameTaken(skill.Name, skill.ID) {
			return domain.Conflict("Skill name already exists", nil)
		}
		skill.CreatedAt, skill.UpdatedAt = prev.CreatedAt, now
		t.skills[skill.ID] = *skill
		return nil
	})
}

func (s *Store) DeleteSkill(_ context.Context, id int64) error {
	return s.write("DeleteSkill", func(t *tables, _ time.Time) error {
		if _, ok := t.skills[id]; !ok {
			return domain.ErrSkillNotFound
		}
		for qid, quiz := range t.quizzes {
			if quiz.SkillID == id {
				t.deleteQuiz(qid)
			}
		}
		for qid, q := range t.questions {
			if q.SkillID != nil && *q.SkillID == id {
				q.SkillID = nil
				t.questions[qid] = q
			}
		}
		delete(t.skills, id)
		return nil
	})
}

// Quizzes

func (s *Store) CreateQuiz(_ context.Context, quiz *domain.Quiz) error {
	return s.write("CreateQuiz", func(t *tables, now time.Time) error {
		if _, ok := t.skills[quiz.SkillID]; !ok {
			return domain.ErrSkillNotFound
		}
		quiz.ID = t.nextID()
		quiz.CreatedAt, quiz.UpdatedAt = now, now
		t.quizzes[quiz.ID] = *quiz
		return nil
	})
}

func (s *Store) ListQuizzesBySkill(_ context.Context, skillID int64, publishedOnly bool) ([]domain.Quiz, error) {
	var out []domain.Quiz
	err := s.read(func(t *tables) error {
		out = []domain.Quiz{}
		for _, q := range t.quizzes {
			if q.SkillID != skillID || (publishedOnly && !q.IsPublished) {
				continue
			}
			out = append(out, q)
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].ID > out[j].ID
		})
		return nil
	})
	return out, err
}

func (s *Store) GetQuiz(_ context.Context, id int64) (domain.Quiz, error) {
	var out domain.Quiz
	err := s.read(func(t *tables) error {
		q, ok := t.quizzes[id]
		if !ok {
			return domain.ErrQuizNotFound
		}
		out = q
		return nil
	})
	return out, err
}

func (s *Store) UpdateQuiz(_ context.Context, quiz *domain.Quiz) error {
	return s.write("UpdateQuiz", func(t *tables, now time.Time) error {
		prev, ok := t.quizzes[quiz.ID]
		if !ok {
			return domain.ErrQuizNotFound
		}
		if _, ok := t.skills[quiz.SkillID]; !ok {
			return domain.ErrSkillNotFound
		}
		quiz.CreatedAt, quiz.UpdatedAt = prev.CreatedAt, now
		t.quizzes[quiz.ID] = *quiz
		return nil
	})
}

func (s *Store) DeleteQuiz(_ context.Context, id int64) error {
	return s.write("DeleteQuiz", func(t *tables, _ time.Time) error {
		if _, ok := t.quizzes[id]; !ok {
			return domain.ErrQuizNotFound
		}
		t.deleteQuiz(id)
		return nil
	})
}

func (t *tables) deleteQuiz(id int64) {
	for qid, q := range t.questions {
		if q.QuizID == id {
			t.deleteQuestion(qid)
		}
	}
	for aid, a := range t.attempts {
		if a.QuizID != nil && *a.QuizID == id {
			t.deleteAttempt(aid)
		}
	}
	delete(t.quizzes, id)
}

// Questions

func (s *Store) CreateQuestion(_ context.Context, q *domain.Question) error {
	return s.write("CreateQuestion", func(t *tables, now time.Time) error {
		if err := t.checkQuestionRefs(q); err != nil {
			return err
		}
		q.ID = t.nextID()
		q.CreatedAt, q.UpdatedAt = now, now
		t.questions[q.ID] = copyQuestion(*q)
		return nil
	})
}

func (t *tables) checkQuestionRefs(q *domain.Question) error {
	if _, ok := t.quizzes[q.QuizID]; !ok {
		return domain.ErrQuizNotFound
	}
	if q.SkillID != nil {
		if _, ok := t.skills[*q.SkillID]; !ok {
			return domain.ErrSkillNotFound
		}
	}
	return nil
}

func (s *Store) GetQuestion(_ context.Context, id int64) (domain.Question, error) {
	var out domain.Question
	err := s.read(func(t *tables) error {
		q, ok := t.questions[id]
		if !ok {
			return domain.ErrQuestionNotFound
		}
		out = copyQuestion(q)
		return nil
	})
	return out, err
}

func (s *Store) ListQuestions(_ context.Context, f domain.QuestionFilter) ([]domain.Question, int64, error) {
	var (
		out   []domain.Question
		total int64
	)
	err := s.read(func(t *tables) error {
		search := strings.ToLower(f.Search)
		matched := make([]domain.Question, 0)
		for _, q := range t.questions {
			if f.SkillID != nil && (q.SkillID == nil || *q.SkillID != *f.SkillID) {
				continue
			}
			if f.QuizID != nil && q.QuizID != *f.QuizID {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(q.QuestionText), search) {
				continue
			}
			if f.PublishedOnly && !t.quizzes[q.QuizID].IsPublished {
				continue
			}
			matched = append(matched, copyQuestion(q))
		}
		total = int64(len(matched))
		if f.Shuffle {
			rand.Shuffle(len(matched), func(i, j int) { matched[i], matched[j] = matched[j], matched[i] })
		} else {
			sortQuestions(matched, f.Sort, f.Desc)
		}
		out = page(matched, f.Offset, f.Limit)
		return nil
	})
	return out, total, err
}

func sortQuestions(qs []domain.Question, column string, desc bool) {
	less := func(a, b domain.Question) bool {
		switch column {
		case "points":
			if a.Points != b.Points {
				return a.Points < b.Points
			}
		case "question_text":
			if a.QuestionText != b.QuestionText {
				return a.QuestionText < b.QuestionText
			}
		case "created_at":
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	}
	sort.Slice(qs, func(i, j int) bool {
		if desc {
			return less(qs[j], qs[i])
		}
		return less(qs[i], qs[j])
	})
}

func (s *Store) QuestionsByQuiz(_ context.Context, quizID int64) ([]domain.Question, error) {
	var out []domain.Question
	err := s.read(func(t *tables) error {
		out = []domain.Question{}
		for _, q := range t.questions {
			if q.QuizID == quizID {
				out = append(out, copyQuestion(q))
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (s *Store) QuestionsByIDs(_ context.Context, ids []int64) ([]domain.Question, error) {
	var out []domain.Question
	err := s.read(func(t *tables) error {
		out = []domain.Question{}
		seen := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if q, ok := t.questions[id]; ok {
				out = append(out, copyQuestion(q))
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (s *Store) CountQuestionsBySkill(_ context.Context, skillID int64) (int64, error) {
	var n int64
	err := s.read(func(t *tables) error {
		for _, q := range t.questions {
			if q.SkillID != nil && *q.SkillID == skillID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (s *Store) UpdateQuestion(_ context.Context, q *domain.Question) error {
	return s.write("UpdateQuestion", func(t *tables, now time.Time) error {
		prev, ok := t.questions[q.ID]
		if !ok {
			return domain.ErrQuestionNotFound
		}
		if err := t.checkQuestionRefs(q); err != nil {
			return err
		}
		q.CreatedAt, q.UpdatedAt = prev.CreatedAt, now
		t.questions[q.ID] = copyQuestion(*q)
		return nil
	})
}

func (s *Store) DeleteQuestions(_ context.Context, ids []int64) (int64, error) {
	var n int64
	err := s.write("DeleteQuestions", func(t *tables, _ time.Time) error {
		for _, id := range ids {
			if _, ok := t.questions[id]; ok {
				t.deleteQuestion(id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (s *Store) DeleteQuestionsBySkill(_ context.Context, skillID int64) (int64, error) {
	var n int64
	err := s.write("DeleteQuestionsBySkill", func(t *tables, _ time.Time) error {
		for id, q := range t.questions {
			if q.SkillID != nil && *q.SkillID == skillID {
				t.deleteQuestion(id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (t *tables) deleteQuestion(id int64) {
	for aid, a := range t.answers {
		if a.QuestionID == id {
			delete(t.answers, aid)
		}
	}
	delete(t.questions, id)
}

// Users

func (s *Store) CreateUser(_ context.Context, u *domain.User) error {
	return s.write("CreateUser", func(t *tables, now time.Time) error {
		if t.emailTaken(u.Email, 0) {
			return domain.Conflict("Email already exists", nil)
		}
		u.ID = t.nextID()
		u.CreatedAt, u.UpdatedAt = now, now
		t.users[u.ID] = *u
		return nil
	})
}

func (t *tables) emailTaken(email string, exceptID int64) bool {
	for _, u := range t.users {
		if u.Email == email && u.ID != exceptID {
			return true
		}
	}
	return false
}

func (s *Store) GetUser(_ context.Context, id int64) (domain.User, error) {
	var out domain.User
	err := s.read(func(t *tables) error {
		u, ok := t.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		out = u
		return nil
	})
	return out, err
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	var out domain.User
	err := s.read(func(t *tables) error {
		for _, u := range t.users {
			if u.Email == email {
				out = u
				return nil
			}
		}
		return domain.ErrUserNotFound
	})
	return out, err
}

func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	var out []domain.User
	err := s.read(func(t *tables) error {
		out = make([]domain.User, 0, len(t.users))
		for _, u := range t.users {
			out = append(out, u)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (s *Store) UpdateUser(_ context.Context, u *domain.User) error {
	return s.write("UpdateUser", func(t *tables, now time.Time) error {
		prev, ok := t.users[u.ID]
		if !ok {
			return domain.ErrUserNotFound
		}
		if t.emailTaken(u.Email, u.ID) {
			return domain.Conflict("Email already exists", nil)
		}
		u.CreatedAt, u.UpdatedAt = prev.CreatedAt, now
		t.users[u.ID] = *u
		return nil
	})
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	return s.write("DeleteUser", func(t *tables, _ time.Time) error {
		if _, ok := t.users[id]; !ok {
			return domain.ErrUserNotFound
		}
		for aid, a := range t.attempts {
			if a.UserID == id {
				t.deleteAttempt(aid)
			}
		}
		delete(t.users, id)
		return nil
	})
}

// Attempts

func (s *Store) CreateAttempt(_ context.Context, a *domain.Attempt) error {
	return s.write("CreateAttempt", func(t *tables, now time.Time) error {
		if _, ok := t.users[a.UserID]; !ok {
			return domain.ErrUserNotFound
		}
		if a.QuizID != nil {
			if _, ok := t.quizzes[*a.QuizID]; !ok {
				return domain.ErrQuizNotFound
			}
		}
		a.ID = t.nextID()
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		t.attempts[a.ID] = *a
		return nil
	})
}

func (s *Store) CreateAnswers(_ context.Context, answers []domain.Answer) error {
	return s.write("CreateAnswers", func(t *tables, _ time.Time) error {
		for _, a := range answers {
			if _, ok := t.attempts[a.AttemptID]; !ok {
				return domain.ErrAttemptNotFound
			}
			if _, ok := t.questions[a.QuestionID]; !ok {
				return domain.ErrQuestionNotFound
			}
		}
		for i := range answers {
			answers[i].ID = t.nextID()
			t.answers[answers[i].ID] = answers[i]
		}
		return nil
	})
}

func (s *Store) ListAttempts(_ context.Context, f domain.AttemptFilter) ([]domain.AttemptRecord, int64, error) {
	var (
		out   []domain.AttemptRecord
		total int64
	)
	err := s.read(func(t *tables) error {
		matched := make([]domain.Attempt, 0)
		for _, a := range t.attempts {
			if a.UserID != f.UserID {
				continue
			}
			if f.QuizID != nil && (a.QuizID == nil || *a.QuizID != *f.QuizID) {
				continue
			}
			matched = append(matched, a)
		}
		sort.Slice(matched, func(i, j int) bool {
			if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
				return matched[i].CreatedAt.After(matched[j].CreatedAt)
			}
			return matched[i].ID > matched[j].ID
		})
		total = int64(len(matched))
		for _, a := range page(matched, f.Offset, f.Limit) {
			out = append(out, t.attemptRecord(a))
		}
		return nil
	})
	return out, total, err
}

func (t *tables) attemptRecord(a domain.Attempt) domain.AttemptRecord {
	r := domain.AttemptRecord{Attempt: a}
	if a.QuizID == nil {
		return r
	}
	quiz, ok := t.quizzes[*a.QuizID]
	if !ok {
		return r
	}
	title, desc, skillID := quiz.Title, quiz.Description, quiz.SkillID
	r.QuizTitle, r.QuizDescription, r.SkillID = &title, &desc, &skillID
	if sk, ok := t.skills[skillID]; ok {
		name := sk.Name
		r.SkillName = &name
	}
	return r
}

func (s *Store) AnswersByAttempts(_ context.Context, attemptIDs []int64) ([]domain.AnswerDetail, error) {
	var out []domain.AnswerDetail
	err := s.read(func(t *tables) error {
		wanted := make(map[int64]struct{}, len(attemptIDs))
		for _, id := range attemptIDs {
			wanted[id] = struct{}{}
		}
		out = []domain.AnswerDetail{}
		for _, a := range t.answers {
			if _, ok := wanted[a.AttemptID]; !ok {
				continue
			}
			d := domain.AnswerDetail{Answer: a}
			if q, ok := t.questions[a.QuestionID]; ok {
				d.QuestionText, d.CorrectAnswer = q.QuestionText, q.CorrectAnswer
			}
			out = append(out, d)
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].AttemptID != out[j].AttemptID {
				return out[i].AttemptID < out[j].AttemptID
			}
			return out[i].ID < out[j].ID
		})
		return nil
	})
	return out, err
}

func (t *tables) deleteAttempt(id int64) {
	for aid, a := range t.answers {
		if a.AttemptID == id {
			delete(t.answers, aid)
		}
	}
	delete(t.attempts, id)
}

func copyQuestion(q domain.Question) domain.Question {
	q.Options = append([]string(nil), q.Options...)
	if q.SkillID != nil {
		id := *q.SkillID
		q.SkillID = &id
	}
	return q
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
