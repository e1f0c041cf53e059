package sync

// MapFeed derives a feed by transforming every emission of in. Closing the
// derived feed closes in (and with it the remote listener); ordering and
// the terminal error carry over.
func MapFeed[A, B any](in *Feed[A], fn func(A) B) *Feed[B] {
	out := newFeed[B]()
	out.bind(in.Close)

	go func() {
		defer out.finish()
		for v := range in.Updates() {
			if !out.emit(fn(v)) {
				return
			}
		}
		if err := in.Err(); err != nil {
			out.fail(err)
			return
		}
		out.end()
	}()
	return out
}
