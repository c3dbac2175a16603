package app

import (
	"context"
	"fmt"

	"github.com/ayusman/handwheel/internal/session"
	"github.com/ayusman/handwheel/internal/store"
)

// ReplayStats summarizes a replay run.
type ReplayStats struct {
	Frames  int
	Tracked int
}

// Replay feeds a stored recording through sess, frame by frame, as the
// live pipeline would have. Each frame is processed with the mirror mode it
// was recorded under.
func Replay(ctx context.Context, s *store.Store, id string, sess *session.Session) (ReplayStats, error) {
	var stats ReplayStats

	rec, err := s.Recordings().GetByID(id)
	if err != nil {
		return stats, fmt.Errorf("load recording %s: %w", id, err)
	}
	frames, err := s.Recordings().Frames(id)
	if err != nil {
		return stats, fmt.Errorf("load frames of %s: %w", id, err)
	}

	for _, f := range frames {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		mirror := f.Mirror

		res, err := sess.Process(session.Frame{
			Hands:   f.Hands,
			Width:   rec.Width,
			Height:  rec.Height,
			Elapsed: f.Elapsed,
			Mirror:  &mirror,
		})
		stats.Frames++
		if err != nil {
			if skippable(err) {
				continue
			}
			return stats, fmt.Errorf("frame %d: %w", f.Sequence, err)
		}
		if res.Tracked {
			stats.Tracked++
		}
	}

	return stats, nil
}
