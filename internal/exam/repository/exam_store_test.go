package repository_test

import (
	"sync"
	"testing"
	"time"

	"examhall/internal/exam/model"
	"examhall/internal/exam/repository"
	appErr "examhall/pkg/errors"
)

func newExam(code string) *model.Exam {
	return &model.Exam{
		Code:            code,
		Title:           "Test Exam",
		HostName:        "alice",
		Status:          model.StatusWaiting,
		DurationMinutes: 60,
		MaxParticipants: 10,
		CreatedAt:       time.Now(),
		Participants:    make(map[string]*model.Participant),
	}
}

func TestPutRejectsDuplicateCode(t *testing.T) {
	store := repository.NewExamStore()
	if err := store.Put(newExam("AAAAAA")); err != nil {
		t.Fatalf("first put failed: %v", err)
	}
	if err := store.Put(newExam("AAAAAA")); !appErr.Is(err, appErr.ExamCreateFailed) {
		t.Fatalf("expected ExamCreateFailed, got %v", err)
	}
}

func TestUpdateUnknownExam(t *testing.T) {
	store := repository.NewExamStore()
	err := store.Update("NOPE42", func(exam *model.Exam) error { return nil })
	if !appErr.Is(err, appErr.ExamNotFound) {
		t.Fatalf("expected ExamNotFound, got %v", err)
	}
}

func TestSnapshotIsIsolatedFromMutation(t *testing.T) {
	store := repository.NewExamStore()
	if err := store.Put(newExam("AAAAAA")); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	snap, err := store.Snapshot("AAAAAA")
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	err = store.Update("AAAAAA", func(exam *model.Exam) error {
		exam.Participants["bob"] = &model.Participant{Name: "bob", JoinedAt: time.Now()}
		exam.Status = model.StatusActive
		return nil
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if len(snap.Participants) != 0 {
		t.Fatalf("snapshot observed a later mutation")
	}
	if snap.Status != model.StatusWaiting {
		t.Fatalf("snapshot status changed underneath the reader")
	}
}

func TestConcurrentUpdatesSerialize(t *testing.T) {
	store := repository.NewExamStore()
	if err := store.Put(newExam("AAAAAA")); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Update("AAAAAA", func(exam *model.Exam) error {
				exam.DurationMinutes++
				return nil
			})
		}()
	}
	wg.Wait()

	snap, err := store.Snapshot("AAAAAA")
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if snap.DurationMinutes != 60+workers {
		t.Fatalf("lost updates: expected %d, got %d", 60+workers, snap.DurationMinutes)
	}
}

func TestCodeInUseReleasedOnCompletion(t *testing.T) {
	store := repository.NewExamStore()
	if err := store.Put(newExam("AAAAAA")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if !store.CodeInUse("AAAAAA") {
		t.Fatalf("waiting exam must hold its code")
	}
	if store.CodeInUse("ZZZZZZ") {
		t.Fatalf("unknown code must not be in use")
	}

	err := store.Update("AAAAAA", func(exam *model.Exam) error {
		exam.Status = model.StatusCompleted
		return nil
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if store.CodeInUse("AAAAAA") {
		t.Fatalf("completed exam must release its code")
	}
}
