package rfutils

import (
	"sync"
)

/*ProcessTranscripts fixed-size worker pool over a shared queue of transcript
IDs. Each worker dequeues one ID under the queue mutex and processes it to
completion; per-transcript work is a single synchronous pass */
func ProcessTranscripts(threadNB int, ids []string, work func(thread int, id string)) {
	if threadNB < 1 {
		threadNB = 1
	}

	var queueMutex sync.Mutex
	var waiting sync.WaitGroup

	cursor := 0

	dequeue := func() (string, bool) {
		queueMutex.Lock()
		defer queueMutex.Unlock()

		if cursor >= len(ids) {
			return "", false
		}

		id := ids[cursor]
		cursor++

		return id, true
	}

	for thread := 0; thread < threadNB; thread++ {
		waiting.Add(1)

		go func(thread int) {
			defer waiting.Done()

			for {
				id, ok := dequeue()

				if !ok {
					return
				}

				work(thread, id)
			}
		}(thread)
	}

	waiting.Wait()
}
