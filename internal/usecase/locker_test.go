package usecase

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLeadLockerAllowsAtMostOneHolderPerLead(t *testing.T) {
	locker := NewLeadLocker()

	const goroutines = 50
	const iterations = 20

	var holders int32
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				locker.Lock("lead-123")
				if n := atomic.AddInt32(&holders, 1); n != 1 {
					t.Errorf("%d goroutines segurando o lock do mesmo lead ao mesmo tempo", n)
				}
				atomic.AddInt32(&holders, -1)
				locker.Unlock("lead-123")
			}
		}()
	}

	wg.Wait()

	// Com refs zerado, a entrada do lead é removida do mapa
	locker.mu.Lock()
	defer locker.mu.Unlock()
	assert.Empty(t, locker.locks)
}

func TestLeadLockerDoesNotBlockOtherLeads(t *testing.T) {
	locker := NewLeadLocker()

	locker.Lock("lead-a")
	defer locker.Unlock("lead-a")

	done := make(chan struct{})
	go func() {
		locker.Lock("lead-b")
		locker.Unlock("lead-b")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock de um lead não pode bloquear mutações de outro lead")
	}
}

func TestLeadLockerReusesEntryWhileWaitersExist(t *testing.T) {
	locker := NewLeadLocker()

	locker.Lock("lead-123")

	acquired := make(chan struct{})
	go func() {
		locker.Lock("lead-123")
		close(acquired)
		locker.Unlock("lead-123")
	}()

	// O waiter já registrou a referência: a entrada não pode sumir do mapa
	// enquanto ele espera
	assert.Eventually(t, func() bool {
		locker.mu.Lock()
		defer locker.mu.Unlock()
		lk, ok := locker.locks["lead-123"]
		return ok && lk.refs == 2
	}, 2*time.Second, 5*time.Millisecond)

	locker.Unlock("lead-123")

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter nunca adquiriu o lock liberado")
	}
}
