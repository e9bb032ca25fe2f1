package geom

import (
	"runtime"
)

// Workers returns the number of workers to use when n <= 0 is requested.
func Workers(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// Parallel runs f on workers goroutines. Worker id is responsible for the
// indices low, low+jump, low+2*jump, ... below high, so every index in
// [0, n) is visited by exactly one worker. Parallel returns once every
// worker has finished.
func Parallel(workers, n int, f func(id, low, high, jump int)) {
	workers = Workers(workers)
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		f(0, 0, n, 1)
		return
	}

	out := make(chan int, workers)
	for id := 0; id < workers-1; id++ {
		go chanRun(id, workers, n, f, out)
	}
	chanRun(workers-1, workers, n, f, out)

	for i := 0; i < workers; i++ {
		<-out
	}
}

func chanRun(id, workers, n int, f func(id, low, high, jump int), out chan<- int) {
	f(id, id, n, workers)
	out <- id
}
