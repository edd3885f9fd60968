// Package interpolation renders smooth motion from discrete server snapshots.
// A client pushes every snapshot it receives and renders a little behind real
// time, so there is usually a pair of snapshots either side of the render time.
package interpolation

import (
	"sort"
	"sync"
	"time"

	"snakeball-backend/models"
)

const (
	DefaultDelay  = 80 * time.Millisecond
	DefaultWindow = 2 * time.Second
)

// Buffer holds recent snapshots in timestamp order.
type Buffer struct {
	mu     sync.Mutex
	delay  time.Duration
	window time.Duration
	snaps  []models.Snapshot
}

func NewBuffer(delay, window time.Duration) *Buffer {
	return &Buffer{delay: delay, window: window}
}

// Push stores s unless it is not newer than the newest held snapshot, which
// covers duplicate and out-of-order delivery. Snapshots older than the window
// are pruned.
func (b *Buffer) Push(s models.Snapshot) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n := len(b.snaps); n > 0 && s.Timestamp <= b.snaps[n-1].Timestamp {
		return false
	}
	b.snaps = append(b.snaps, s)

	cutoff := s.Timestamp - b.window.Milliseconds()
	drop := 0
	for drop < len(b.snaps)-1 && b.snaps[drop].Timestamp < cutoff {
		drop++
	}
	if drop > 0 {
		b.snaps = append(b.snaps[:0:0], b.snaps[drop:]...)
	}
	return true
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.snaps)
}

func (b *Buffer) Latest() (models.Snapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.snaps) == 0 {
		return models.Snapshot{}, false
	}
	return b.snaps[len(b.snaps)-1], true
}

// RenderNow renders at now minus the interpolation delay.
func (b *Buffer) RenderNow(now time.Time) (snap models.Snapshot, interpolated, ok bool) {
	return b.Render(now.Add(-b.delay).UnixMilli())
}

// Render returns the state at timestamp at (unix ms). When no pair of
// snapshots brackets at, the newest snapshot is returned as is and
// interpolated is false. ok is false only for an empty buffer.
func (b *Buffer) Render(at int64) (snap models.Snapshot, interpolated, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.snaps)
	if n == 0 {
		return models.Snapshot{}, false, false
	}

	// First snapshot strictly after at.
	i := sort.Search(n, func(i int) bool { return b.snaps[i].Timestamp > at })
	if i == 0 || i == n {
		return b.snaps[n-1], false, true
	}

	older, newer := b.snaps[i-1], b.snaps[i]
	t := float64(at-older.Timestamp) / float64(newer.Timestamp-older.Timestamp)
	return Interpolate(older, newer, t), true, true
}

// Interpolate blends the positions of two snapshots by t in [0,1]. Avatars
// present in only one of them are taken from older, and every other field
// comes from older too.
func Interpolate(older, newer models.Snapshot, t float64) models.Snapshot {
	out := older
	out.Timestamp = older.Timestamp + int64(float64(newer.Timestamp-older.Timestamp)*t)
	out.Ball.X = lerp(older.Ball.X, newer.Ball.X, t)
	out.Ball.Y = lerp(older.Ball.Y, newer.Ball.Y, t)

	out.Avatars = make(map[string]models.AvatarView, len(older.Avatars))
	for id, a := range older.Avatars {
		body := make([]models.Position, len(a.Body))
		copy(body, a.Body)

		if next, ok := newer.Avatars[id]; ok {
			segments := len(body)
			if len(next.Body) < segments {
				segments = len(next.Body)
			}
			for s := 0; s < segments; s++ {
				body[s] = models.Position{
					X: lerp(a.Body[s].X, next.Body[s].X, t),
					Y: lerp(a.Body[s].Y, next.Body[s].Y, t),
				}
			}
		}

		a.Body = body
		out.Avatars[id] = a
	}
	return out
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
