package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeAfter(t *testing.T) {
	fk := NewFake(time.Unix(0, 0))
	fired := 0
	fk.After(time.Minute, func() { fired++ })

	fk.Advance(59 * time.Second)
	assert.Equal(t, 0, fired)

	fk.Advance(time.Second)
	assert.Equal(t, 1, fired)

	// one-shots do not re-arm
	fk.Advance(time.Hour)
	assert.Equal(t, 1, fired)
}

func TestFakeEvery(t *testing.T) {
	fk := NewFake(time.Unix(0, 0))
	fired := 0
	fk.Every(10*time.Second, func() { fired++ })

	fk.Advance(35 * time.Second)
	assert.Equal(t, 3, fired)

	fk.Advance(5 * time.Second)
	assert.Equal(t, 4, fired)
}

func TestFakeCancel(t *testing.T) {
	fk := NewFake(time.Unix(0, 0))
	fired := 0
	h := fk.After(time.Minute, func() { fired++ })
	h.Cancel()

	fk.Advance(time.Hour)
	assert.Equal(t, 0, fired)
}

func TestFakeFiresInChronologicalOrder(t *testing.T) {
	fk := NewFake(time.Unix(0, 0))
	var order []string
	fk.After(2*time.Minute, func() { order = append(order, "second") })
	fk.After(time.Minute, func() { order = append(order, "first") })

	fk.Advance(3 * time.Minute)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestFakeCallbackSeesAdvancedNow(t *testing.T) {
	fk := NewFake(time.Unix(0, 0))
	var at time.Time
	fk.After(time.Minute, func() { at = fk.Now() })

	fk.Advance(10 * time.Minute)
	assert.Equal(t, time.Unix(60, 0), at)
}

func TestFakeCallbackCanCancelAnother(t *testing.T) {
	fk := NewFake(time.Unix(0, 0))
	fired := 0
	h := fk.After(2*time.Minute, func() { fired++ })
	fk.After(time.Minute, func() { h.Cancel() })

	fk.Advance(5 * time.Minute)
	assert.Equal(t, 0, fired)
}
