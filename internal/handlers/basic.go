// Package handlers implements the demo server's request handlers. Each
// exported handler validates its parameters and returns a resp.Result;
// the "pure" logic lives in small unexported core functions that don't
// know about HTTP and are easy to test directly.
package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/kolayne/go-tpool/internal/resp"
)

func timestampCore() string {
	now := time.Now().UTC()
	out := map[string]any{
		"unix": now.Unix(),
		"utc":  now.Format(time.RFC3339),
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func reverseCore(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r) + "\n"
}

func toUpperCore(s string) string {
	return strings.ToUpper(s) + "\n"
}

func hashCore(text string) string {
	sum := sha256.Sum256([]byte(text))
	b, _ := json.Marshal(map[string]string{
		"algo": "sha256",
		"hex":  hex.EncodeToString(sum[:]),
	})
	return string(b)
}

// randomCore generates n uniform integers in [min, max].
// Preconditions (guaranteed by the wrapper): n >= 1, min <= max.
func randomCore(n, min, max int) string {
	arr := make([]int, n)
	span := max - min + 1
	for i := 0; i < n; i++ {
		arr[i] = rand.Intn(span) + min
	}
	b, _ := json.Marshal(map[string]any{"values": arr})
	return string(b)
}

// fibonacciCore returns the n-th Fibonacci number, O(n) time, O(1) space.
// Precondition: n >= 0 (the wrapper validates).
func fibonacciCore(n int) string {
	if n == 0 {
		return "0\n"
	}
	if n == 1 {
		return "1\n"
	}
	a, b := 0, 1
	for i := 2; i <= n; i++ {
		a, b = b, a+b
	}
	return fmt.Sprintf("%d\n", b)
}

// Help lists the available routes as plain text.
func Help() resp.Result {
	return resp.PlainOK(strings.TrimSpace(`
/                      -> hello world
/help                  -> this listing
/status                -> process status + pools (pid, uptime, conns, workers)

/fibonacci?num=N       -> n-th Fibonacci (iterative)
/reverse?text=abc      -> reverse text
/toupper?text=abc      -> uppercase
/random?count=n&min=a&max=b -> n random integers
/timestamp             -> JSON with epoch/UTC
/hash?text=abc         -> SHA-256 (hex)

# Pools
/sleep?seconds=s
/simulate?seconds=s&task=sleep|spin
/loadtest?tasks=n&sleep=s

# CPU-bound
/isprime?n=NUM
/factor?n=NUM

/jobs/submit?task=TASK&<params>
/jobs/status?id=JOBID
/jobs/result?id=JOBID
/jobs/cancel?id=JOBID
/jobs/list
`) + "\n")
}

// Timestamp returns JSON with the current epoch and UTC time.
func Timestamp(_ map[string]string) resp.Result {
	return resp.JSONOK(timestampCore())
}

// Reverse reverses the ?text=... parameter (UTF-8 safe).
func Reverse(params map[string]string) resp.Result {
	txt, ok := params["text"]
	if !ok {
		return resp.BadReq("missing_param", "text is required")
	}
	return resp.PlainOK(reverseCore(txt))
}

// ToUpper uppercases the ?text=... parameter.
func ToUpper(params map[string]string) resp.Result {
	txt, ok := params["text"]
	if !ok {
		return resp.BadReq("missing_param", "text is required")
	}
	return resp.PlainOK(toUpperCore(txt))
}

// Hash computes SHA-256 of ?text=... and returns JSON {algo, hex}.
func Hash(params map[string]string) resp.Result {
	txt, ok := params["text"]
	if !ok {
		return resp.BadReq("missing_param", "text is required")
	}
	return resp.JSONOK(hashCore(txt))
}

// Random generates count integers in [min, max].
func Random(params map[string]string) resp.Result {
	cStr, ok := params["count"]
	if !ok {
		return resp.BadReq("count", "count is required (integer >= 1)")
	}
	count, err := strconv.Atoi(cStr)
	if err != nil || count < 1 {
		return resp.BadReq("count", "must be integer >= 1")
	}

	minStr, ok := params["min"]
	if !ok {
		return resp.BadReq("min", "min is required (integer)")
	}
	min, err := strconv.Atoi(minStr)
	if err != nil {
		return resp.BadReq("min", "min must be integer")
	}

	maxStr, ok := params["max"]
	if !ok {
		return resp.BadReq("max", "max is required (integer)")
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil {
		return resp.BadReq("max", "max must be integer")
	}
	if min > max {
		return resp.BadReq("range", "min must be <= max")
	}

	return resp.JSONOK(randomCore(count, min, max))
}

// Fibonacci returns the n-th Fibonacci number as plain text.
func Fibonacci(params map[string]string) resp.Result {
	v, ok := params["num"]
	if !ok {
		return resp.BadReq("missing_param", "num is required")
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return resp.BadReq("num", "num must be integer >= 0")
	}
	return resp.PlainOK(fibonacciCore(n))
}
