package handlers

import (
	"strconv"
	"time"

	"github.com/kolayne/go-tpool/internal/resp"
)

// SleepTask is the "sleep" pool's work function: it blocks for the
// requested number of seconds and then returns. It exists so the pool
// has something genuinely IO-shaped to schedule, instead of a handler
// that merely delegates to time.Sleep inline on the request goroutine.
func SleepTask(params map[string]string) resp.Result {
	secStr, ok := params["seconds"]
	if !ok {
		return resp.BadReq("seconds", "seconds is required (integer >= 0)")
	}
	sec, err := strconv.Atoi(secStr)
	if err != nil || sec < 0 {
		return resp.BadReq("seconds", "must be integer >= 0")
	}
	time.Sleep(time.Duration(sec) * time.Second)
	return resp.PlainOK("slept " + secStr + "s\n")
}

// SpinTask is the "spin" pool's work function: it burns CPU for roughly
// the requested number of seconds, standing in for a CPU-bound job.
func SpinTask(params map[string]string) resp.Result {
	secStr, ok := params["seconds"]
	if !ok {
		return resp.BadReq("seconds", "seconds is required (integer >= 0)")
	}
	sec, err := strconv.Atoi(secStr)
	if err != nil || sec < 0 {
		return resp.BadReq("seconds", "must be integer >= 0")
	}
	deadline := time.Now().Add(time.Duration(sec) * time.Second)
	iters := 0
	for time.Now().Before(deadline) {
		iters++
	}
	return resp.PlainOK("spun " + secStr + "s\n")
}
