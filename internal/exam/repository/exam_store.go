// Package repository holds the single-authority exam state and its
// supporting adapters. There is no distributed consensus: one store owns all
// live exams, with a lock per exam so unrelated exams never contend.
package repository

import (
	"sync"

	"examhall/internal/exam/model"
	appErr "examhall/pkg/errors"
)

// ExamStore is the in-memory authority for all live exams.
// The outer RWMutex guards the map; each entry carries its own mutex and all
// exam mutation runs under it. Reads hand out deep copies so pollers never
// observe in-progress mutation.
type ExamStore struct {
	mu    sync.RWMutex
	exams map[string]*examEntry
}

type examEntry struct {
	mu   sync.Mutex
	exam *model.Exam
}

// NewExamStore creates an empty exam store.
func NewExamStore() *ExamStore {
	return &ExamStore{exams: make(map[string]*examEntry)}
}

// Put inserts a new exam. Fails if the code is already present.
func (s *ExamStore) Put(exam *model.Exam) error {
	if exam == nil || exam.Code == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("exam code is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.exams[exam.Code]; exists {
		return appErr.New(appErr.ExamCreateFailed).WithDetail("code", exam.Code)
	}
	s.exams[exam.Code] = &examEntry{exam: exam}
	return nil
}

// Update runs fn on the exam under its lock. fn sees the live exam and may
// mutate it; returning an error discards nothing (mutations made before the
// error stand), so fn must validate before it mutates.
func (s *ExamStore) Update(code string, fn func(exam *model.Exam) error) error {
	entry, err := s.entry(code)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(entry.exam)
}

// Snapshot returns a deep copy of the exam taken under its lock.
func (s *ExamStore) Snapshot(code string) (*model.Exam, error) {
	entry, err := s.entry(code)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.exam.Clone(), nil
}

// CodeInUse reports whether the code belongs to an exam that has not
// completed. Completed exams release their code for reuse.
func (s *ExamStore) CodeInUse(code string) bool {
	entry, err := s.entry(code)
	if err != nil {
		return false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.exam.Status != model.StatusCompleted
}

// Len returns the number of exams held, completed included.
func (s *ExamStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.exams)
}

func (s *ExamStore) entry(code string) (*examEntry, error) {
	s.mu.RLock()
	entry, ok := s.exams[code]
	s.mu.RUnlock()
	if !ok {
		return nil, appErr.New(appErr.ExamNotFound).WithDetail("code", code)
	}
	return entry, nil
}
