// CPU-bound handlers. These run on their own tpool pools rather than the
// request goroutine so a slow computation can't starve the connection
// accept loop; see internal/router for how they're wired up.
package handlers

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/kolayne/go-tpool/internal/resp"
)

// IsPrime reports whether n is prime by trial division up to sqrt(n).
// JSON: {"n", "is_prime", "elapsed_ms"}.
func IsPrime(params map[string]string) resp.Result {
	n, err := strconv.ParseInt(params["n"], 10, 64)
	if err != nil || n < 0 {
		return resp.BadReq("n", "n must be integer >= 0")
	}

	start := time.Now()
	isPrime := false
	switch {
	case n < 2:
	case n == 2 || n == 3:
		isPrime = true
	case n%2 == 0:
	default:
		isPrime = true
		limit := int64(math.Sqrt(float64(n)))
		for d := int64(3); d <= limit; d += 2 {
			if n%d == 0 {
				isPrime = false
				break
			}
		}
	}

	out := struct {
		N       int64 `json:"n"`
		IsPrime bool  `json:"is_prime"`
		Elapsed int64 `json:"elapsed_ms"`
	}{N: n, IsPrime: isPrime, Elapsed: time.Since(start).Milliseconds()}
	b, _ := json.Marshal(out)
	return resp.JSONOK(string(b))
}

// Factor returns n's prime factorization as a list of (prime, exponent)
// pairs. JSON: {"n", "factors":[[p,e],...], "elapsed_ms"}.
func Factor(params map[string]string) resp.Result {
	n, err := strconv.ParseInt(params["n"], 10, 64)
	if err != nil || n < 2 {
		return resp.BadReq("n", "n must be integer >= 2")
	}

	start := time.Now()
	orig := n
	var facts [][2]int64

	if n%2 == 0 {
		c := int64(0)
		for n%2 == 0 {
			n /= 2
			c++
		}
		facts = append(facts, [2]int64{2, c})
	}
	for d := int64(3); d <= n/d; d += 2 {
		if n%d == 0 {
			c := int64(0)
			for n%d == 0 {
				n /= d
				c++
			}
			facts = append(facts, [2]int64{d, c})
		}
	}
	if n > 1 {
		facts = append(facts, [2]int64{n, 1})
	}

	out := struct {
		N       int64      `json:"n"`
		Factors [][2]int64 `json:"factors"`
		Elapsed int64      `json:"elapsed_ms"`
	}{N: orig, Factors: facts, Elapsed: time.Since(start).Milliseconds()}
	b, _ := json.Marshal(out)
	return resp.JSONOK(string(b))
}
