// relbench measures follow/unfollow latency against one heavily followed
// account and the cost of reading its follower pages.
//
//	N=10000 CONC=4 PAGE=50 go run ./cmd/relbench
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/warbler/config"
	"github.com/d60-Lab/warbler/internal/authz"
	"github.com/d60-Lab/warbler/internal/model"
	"github.com/d60-Lab/warbler/internal/repository"
	"github.com/d60-Lab/warbler/internal/service"
	"github.com/d60-Lab/warbler/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

// timed runs fn for every index with conc workers and returns per-call latency.
func timed(n, conc int, fn func(i int) error) ([]time.Duration, int) {
	if conc > n {
		conc = n
	}
	feed := make(chan int, n)
	for i := 0; i < n; i++ {
		feed <- i
	}
	close(feed)

	type result struct {
		d   time.Duration
		err error
	}
	out := make(chan result, n)
	done := make(chan struct{}, conc)
	for w := 0; w < conc; w++ {
		go func() {
			for i := range feed {
				st := time.Now()
				err := fn(i)
				out <- result{time.Since(st), err}
			}
			done <- struct{}{}
		}()
	}
	for w := 0; w < conc; w++ {
		<-done
	}
	close(out)

	recs := make([]time.Duration, 0, n)
	failed := 0
	for r := range out {
		recs = append(recs, r.d)
		if r.err != nil {
			failed++
		}
	}
	return recs, failed
}

func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	defer func() { _ = database.Close(db) }()
	if err := database.Migrate(db); err != nil {
		panic(err)
	}

	store := repository.NewStore(db)
	relSvc := service.NewRelationshipService(store)
	ctx := context.Background()

	N := envInt("N", 10000)
	CONC := envInt("CONC", 1)
	PAGE := envInt("PAGE", 50)

	// seed: celeb plus N followers
	tag := uuid.NewString()[:8]
	celeb := model.User{Username: "celeb-" + tag, Email: "celeb-" + tag + "@example.com", Password: "p"}
	must(0, db.Create(&celeb).Error)
	users := make([]model.User, N)
	for i := range users {
		id := uuid.NewString()[:12]
		users[i] = model.User{Username: "u" + id, Email: id + "@example.com", Password: "p"}
	}
	must(0, db.CreateInBatches(&users, 500).Error)

	followRecs, followErr := timed(N, CONC, func(i int) error {
		return relSvc.Follow(ctx, authz.Authenticated(users[i].ID), celeb.ID)
	})

	q0 := time.Now()
	followers := must(relSvc.ListFollowers(ctx, celeb.ID, 1, PAGE))
	firstPage := time.Since(q0)

	q1 := time.Now()
	_ = must(relSvc.ListFollowers(ctx, celeb.ID, N/PAGE, PAGE))
	deepPage := time.Since(q1)

	checkRecs, _ := timed(N, CONC, func(i int) error {
		_, err := relSvc.IsFollowing(ctx, users[i].ID, celeb.ID)
		return err
	})
	count := must(store.Follows.CountFollowers(ctx, celeb.ID))

	unfollowRecs, unfollowErr := timed(N, CONC, func(i int) error {
		return relSvc.Unfollow(ctx, authz.Authenticated(users[i].ID), celeb.ID)
	})

	fmt.Printf("driver=%s N=%d CONC=%d PAGE=%d\n", cfg.Database.Driver, N, CONC, PAGE)
	fmt.Printf("Follow: p50=%v p95=%v p99=%v errors=%d\n",
		pct(followRecs, 0.50), pct(followRecs, 0.95), pct(followRecs, 0.99), followErr)
	fmt.Printf("Followers page 1 (%d rows): %v\n", len(followers), firstPage)
	fmt.Printf("Followers page %d: %v\n", N/PAGE, deepPage)
	fmt.Printf("IsFollowing: p50=%v p99=%v (followers=%d)\n", pct(checkRecs, 0.50), pct(checkRecs, 0.99), count)
	fmt.Printf("Unfollow: p50=%v p95=%v p99=%v errors=%d\n",
		pct(unfollowRecs, 0.50), pct(unfollowRecs, 0.95), pct(unfollowRecs, 0.99), unfollowErr)
}
