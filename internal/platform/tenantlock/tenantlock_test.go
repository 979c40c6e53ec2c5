package tenantlock_test

import (
	"sync"
	"testing"

	"github.com/hodlpay/treasury_backend/internal/platform/tenantlock"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_SerialisesSameTenant(t *testing.T) {
	r := tenantlock.NewRegistry()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Lock("tenant-a")
			defer r.Unlock("tenant-a")
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestRegistry_IndependentTenants(t *testing.T) {
	r := tenantlock.NewRegistry()

	r.Lock("tenant-a")
	done := make(chan struct{})
	go func() {
		// Must not block on tenant-a's lock.
		r.Lock("tenant-b")
		r.Unlock("tenant-b")
		close(done)
	}()
	<-done
	r.Unlock("tenant-a")
}
