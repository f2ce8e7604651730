// Package router dispatches HTTP/1.0 requests to handlers, including the
// ones backed by named tpool.Pool instances and the async job-tracking
// layer in internal/jobs.
package router

import (
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kolayne/go-tpool/internal/config"
	"github.com/kolayne/go-tpool/internal/handlers"
	"github.com/kolayne/go-tpool/internal/http10"
	"github.com/kolayne/go-tpool/internal/jobs"
	"github.com/kolayne/go-tpool/internal/resp"
	"github.com/kolayne/go-tpool/tpool"
)

// Router owns every named pool the demo server exposes, plus the job
// manager layered on top of them.
type Router struct {
	cfg    *config.Config
	log    *zap.Logger
	pools  map[string]*tpool.Pool
	fns    map[string]jobs.TaskFunc
	jobman *jobs.Manager
}

// New builds a Router from cfg, spawning one tpool.Pool per configured
// named task and wiring it into both direct (synchronous) dispatch and
// the async job manager.
func New(cfg *config.Config, log *zap.Logger) (*Router, error) {
	if log == nil {
		log = zap.NewNop()
	}

	fns := map[string]jobs.TaskFunc{
		"sleep":   handlers.SleepTask,
		"spin":    handlers.SpinTask,
		"isprime": handlers.IsPrime,
		"factor":  handlers.Factor,
	}

	pools := make(map[string]*tpool.Pool, len(fns))
	for name := range fns {
		pc := cfg.Pools[name]
		if pc.Workers <= 0 {
			pc.Workers = 1
		}
		p, err := tpool.NewPool(pc.Workers, tpool.WithLogger(log.Named(name)))
		if err != nil {
			return nil, err
		}
		pools[name] = p
	}

	jobman := jobs.NewManager(pools, fns, cfg.JobTTL, log.Named("jobs"))

	return &Router{cfg: cfg, log: log, pools: pools, fns: fns, jobman: jobman}, nil
}

// Close shuts the job manager and every pool down. Pools are only closed
// once their work has drained; callers should stop serving new requests
// before calling Close.
func (rt *Router) Close() {
	rt.jobman.Close()
	for name, p := range rt.pools {
		if err := p.Close(); err != nil {
			rt.log.Warn("pool did not close cleanly", zap.String("pool", name), zap.Error(err))
		}
	}
}

// Dispatch resolves one HTTP/1.0 GET request into a resp.Result.
func (rt *Router) Dispatch(method, target string) resp.Result {
	if method != "GET" {
		return resp.BadReq("method", "only GET")
	}

	path, q := http10.SplitTarget(target)
	args := http10.ParseQuery(q)

	switch path {
	case "/":
		return resp.PlainOK("hello world\n")
	case "/help":
		return handlers.Help()
	case "/timestamp":
		return handlers.Timestamp(nil)
	case "/reverse":
		return handlers.Reverse(args)
	case "/toupper":
		return handlers.ToUpper(args)
	case "/hash":
		return handlers.Hash(args)
	case "/random":
		return handlers.Random(args)
	case "/fibonacci":
		return handlers.Fibonacci(args)

	case "/sleep":
		return rt.submitSync("sleep", args, rt.cfg.IOTimeout)
	case "/simulate":
		task := args["task"]
		if task != "sleep" && task != "spin" {
			return resp.BadReq("task", "use task=sleep|spin")
		}
		tout := rt.cfg.CPUTimeout
		if task == "sleep" {
			tout = rt.cfg.IOTimeout
		}
		return rt.submitSync(task, args, tout)
	case "/loadtest":
		return rt.loadTest(args)

	case "/isprime":
		return rt.submitSync("isprime", args, rt.cfg.CPUTimeout)
	case "/factor":
		return rt.submitSync("factor", args, rt.cfg.CPUTimeout)

	case "/metrics":
		return resp.JSONOK(rt.metricsJSON())

	case "/jobs/submit":
		return rt.jobsSubmit(args)
	case "/jobs/status":
		return rt.jobsStatus(args)
	case "/jobs/result":
		return rt.jobsResult(args)
	case "/jobs/cancel":
		return rt.jobsCancel(args)
	case "/jobs/list":
		return rt.jobsList()
	}

	return resp.NotFound("not_found", "route")
}

// submitSync pushes a task onto the named pool and blocks for its result,
// exercising tpool.Push/Join directly instead of going through the async
// job layer — the synchronous demo endpoints are a straight line test of
// the pool's joinable-task contract.
func (rt *Router) submitSync(name string, args map[string]string, timeout_ time.Duration) resp.Result {
	p, ok := rt.pools[name]
	if !ok {
		return resp.IntErr("no_pool", "pool not found")
	}
	fn, ok := rt.fns[name]
	if !ok {
		return resp.IntErr("no_pool", "pool not found")
	}

	task := tpool.New(fn, args)
	if err := tpool.Push(p, task); err != nil {
		return resp.TooMany("too_many_tasks", err.Error())
	}
	res, err := task.TimedJoin(timeout_)
	if err != nil {
		_ = task.Detach()
		return resp.Unavail("timeout", "task did not complete in time")
	}
	return res
}

func (rt *Router) loadTest(args map[string]string) resp.Result {
	n, errN := strconv.Atoi(args["tasks"])
	s, errS := strconv.Atoi(args["sleep"])
	if errN != nil || n <= 0 {
		return resp.BadReq("tasks", "must be integer > 0")
	}
	if errS != nil || s < 0 {
		return resp.BadReq("sleep", "must be integer >= 0")
	}

	ok := 0
	for i := 0; i < n; i++ {
		r := rt.submitSync("sleep", map[string]string{"seconds": strconv.Itoa(s)}, rt.cfg.IOTimeout)
		if r.Status == 200 {
			ok++
		}
	}
	return resp.PlainOK("ok " + strconv.Itoa(ok) + "/" + strconv.Itoa(n) + "\n")
}

func (rt *Router) jobsSubmit(args map[string]string) resp.Result {
	task := args["task"]
	if task == "" {
		return resp.BadReq("task", "task=<pool_name> required")
	}
	params := make(map[string]string, len(args))
	for k, v := range args {
		if k == "task" {
			continue
		}
		params[k] = v
	}
	id := rt.jobman.Submit(task, params, rt.cfg.CPUTimeout)
	if id == "" {
		return resp.NotFound("no_pool", "pool not found")
	}
	out := map[string]any{"job_id": id, "status": "queued"}
	b, _ := json.Marshal(out)
	return resp.JSONOK(string(b))
}

func (rt *Router) jobsStatus(args map[string]string) resp.Result {
	id := args["id"]
	if id == "" {
		return resp.BadReq("id", "id required")
	}
	job, ok := rt.jobman.Snapshot(id)
	if !ok {
		return resp.NotFound("not_found", "job not found")
	}
	b, _ := json.Marshal(job)
	return resp.JSONOK(string(b))
}

func (rt *Router) jobsResult(args map[string]string) resp.Result {
	id := args["id"]
	if id == "" {
		return resp.BadReq("id", "id required")
	}
	res, ok, err := rt.jobman.Result(id)
	if !ok {
		return resp.NotFound("not_found", "job not found")
	}
	if err != nil {
		return resp.BadReq("not_ready", "job not finished yet")
	}
	b, _ := json.Marshal(res)
	return resp.JSONOK(string(b))
}

func (rt *Router) jobsCancel(args map[string]string) resp.Result {
	id := args["id"]
	if id == "" {
		return resp.BadReq("id", "id required")
	}
	status, ok := rt.jobman.Cancel(id)
	if !ok {
		return resp.NotFound("not_found", "job not found")
	}
	out := map[string]any{"status": status}
	b, _ := json.Marshal(out)
	return resp.JSONOK(string(b))
}

func (rt *Router) jobsList() resp.Result {
	b, _ := json.Marshal(rt.jobman.List())
	return resp.JSONOK(string(b))
}

// PoolsSummary reports worker counts per pool, for /status.
func (rt *Router) PoolsSummary() map[string]any {
	out := make(map[string]any, len(rt.pools))
	for name, p := range rt.pools {
		out[name] = map[string]any{"workers_spawned": p.ThreadCount()}
	}
	return out
}

func (rt *Router) metricsJSON() string {
	b, _ := json.Marshal(rt.PoolsSummary())
	return string(b)
}
