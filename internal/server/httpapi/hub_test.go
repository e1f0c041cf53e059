package httpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func kicked(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestHub_KicksDocAndCollectionWatchers(t *testing.T) {
	hub := NewHub()

	docCh, releaseDoc := hub.Watch("users/u1/allergies/a1")
	defer releaseDoc()
	colCh, releaseCol := hub.Watch("users/u1/allergies")
	defer releaseCol()
	otherCh, releaseOther := hub.Watch("users/u1/records")
	defer releaseOther()

	hub.DocumentChanged("users/u1/allergies/a1", "users/u1/allergies")

	assert.True(t, kicked(docCh))
	assert.True(t, kicked(colCh))
	assert.False(t, kicked(otherCh))
}

func TestHub_KicksCoalesce(t *testing.T) {
	hub := NewHub()

	ch, release := hub.Watch("products")
	defer release()

	hub.DocumentChanged("products/b1", "products")
	hub.DocumentChanged("products/b2", "products")
	hub.DocumentChanged("products/b3", "products")

	// a burst collapses into a single pending kick
	assert.True(t, kicked(ch))
	assert.False(t, kicked(ch))
}

func TestHub_ReleaseStopsKicks(t *testing.T) {
	hub := NewHub()

	ch, release := hub.Watch("products")
	release()

	hub.DocumentChanged("products/b1", "products")
	assert.False(t, kicked(ch))
}

func TestHub_ReleaseIsIdempotent(t *testing.T) {
	hub := NewHub()
	_, release := hub.Watch("products")
	release()
	release()
}
