package usecase

import "sync"

// LeadLocker serializa mutações por lead_id: no máximo uma escrita em voo por
// lead. Evita lost-update quando um evento novo chega enquanto uma avaliação
// de estágio está em andamento para o mesmo lead. A mesma instância deve ser
// compartilhada entre o ScoringEngine e o TransitionEngine.
type LeadLocker struct {
	mu    sync.Mutex
	locks map[string]*leadLock
}

type leadLock struct {
	mu   sync.Mutex
	refs int
}

func NewLeadLocker() *LeadLocker {
	return &LeadLocker{
		locks: make(map[string]*leadLock),
	}
}

func (l *LeadLocker) Lock(leadID string) {
	l.mu.Lock()
	lk, ok := l.locks[leadID]
	if !ok {
		lk = &leadLock{}
		l.locks[leadID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
}

func (l *LeadLocker) Unlock(leadID string) {
	l.mu.Lock()
	lk, ok := l.locks[leadID]
	if ok {
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, leadID)
		}
	}
	l.mu.Unlock()

	if ok {
		lk.mu.Unlock()
	}
}
