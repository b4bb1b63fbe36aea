package biz

import (
	"github.com/anthropics/feishu-keyword-watch/internal/biz/repo"
	"github.com/anthropics/feishu-keyword-watch/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Reminder  *usecase.ReminderUsecase
	Ignore    *usecase.IgnoreUsecase
	Notify    *usecase.NotifyUsecase
	Lifecycle *usecase.LifecycleUsecase

	Keywords *usecase.KeywordCache
	Ignored  *usecase.IgnoreCache
}

// NewUsecases wires the business layer on top of the repositories. Both
// caches are shared between the mutation usecases and the dispatcher.
func NewUsecases(reminders repo.ReminderRepo, ignores repo.IgnoreRepo, chat repo.ChatRepo, caseInsensitive bool) *Usecases {
	keywordCache := usecase.NewKeywordCache(reminders)
	ignoreCache := usecase.NewIgnoreCache(ignores)

	return &Usecases{
		Reminder:  usecase.NewReminderUsecase(reminders, keywordCache),
		Ignore:    usecase.NewIgnoreUsecase(ignores, ignoreCache),
		Notify:    usecase.NewNotifyUsecase(reminders, chat, keywordCache, ignoreCache, caseInsensitive),
		Lifecycle: usecase.NewLifecycleUsecase(reminders, keywordCache, ignoreCache, chat),
		Keywords:  keywordCache,
		Ignored:   ignoreCache,
	}
}
