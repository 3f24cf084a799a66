// timelinebench seeds a follow graph with messages and measures posting and
// home timeline reads.
//
//	USERS=2000 FOLLOWS=100 POSTS=20 READS=500 go run ./cmd/timelinebench
package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
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

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range vs {
		sum += d
	}
	return sum / time.Duration(len(vs))
}

func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	defer func() { _ = database.Close(db) }()
	if err := database.Migrate(db); err != nil {
		panic(err)
	}

	store := repository.NewStore(db)
	msgSvc := service.NewMessageService(store, cfg.Warbler)
	ctx := context.Background()

	USERS := envInt("USERS", 2000)
	FOLLOWS := envInt("FOLLOWS", 100) // 每个用户关注的人数
	POSTS := envInt("POSTS", 20)      // 每个用户发布的消息数
	READS := envInt("READS", 500)
	if FOLLOWS >= USERS {
		FOLLOWS = USERS - 1
	}

	users := make([]model.User, USERS)
	for i := range users {
		id := uuid.NewString()[:12]
		users[i] = model.User{Username: "u" + id, Email: id + "@example.com", Password: "p"}
	}
	must(0, db.CreateInBatches(&users, 500).Error)

	rng := rand.New(rand.NewSource(1))
	for i := range users {
		for _, j := range rng.Perm(USERS)[:FOLLOWS+1] {
			if j == i {
				continue
			}
			_ = store.Follows.Create(ctx, users[i].ID, users[j].ID)
		}
	}

	postRecs := make([]time.Duration, 0, USERS*POSTS)
	for p := 0; p < POSTS; p++ {
		for i := range users {
			st := time.Now()
			_, err := msgSvc.Create(ctx, authz.Authenticated(users[i].ID), fmt.Sprintf("hello %d from %s", p, users[i].Username))
			if err != nil {
				panic(err)
			}
			postRecs = append(postRecs, time.Since(st))
		}
	}

	readRecs := make([]time.Duration, 0, READS)
	rows := 0
	for r := 0; r < READS; r++ {
		u := users[rng.Intn(USERS)]
		st := time.Now()
		tl := must(msgSvc.Timeline(ctx, authz.Authenticated(u.ID)))
		readRecs = append(readRecs, time.Since(st))
		rows += len(tl)
	}

	fmt.Printf("driver=%s USERS=%d FOLLOWS=%d POSTS=%d READS=%d\n", cfg.Database.Driver, USERS, FOLLOWS, POSTS, READS)
	fmt.Printf("Post latency: avg=%v p95=%v p99=%v\n", avg(postRecs), pct(postRecs, 0.95), pct(postRecs, 0.99))
	fmt.Printf("Timeline read (limit=%d): avg=%v p50=%v p95=%v p99=%v avg_rows=%d\n",
		cfg.Warbler.TimelineLimit, avg(readRecs), pct(readRecs, 0.50), pct(readRecs, 0.95), pct(readRecs, 0.99), rows/READS)
}
