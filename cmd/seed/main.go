package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agaaaptr/open-socmed/configs"
	"github.com/agaaaptr/open-socmed/internal/client"
	"github.com/agaaaptr/open-socmed/internal/follow"
	"github.com/agaaaptr/open-socmed/internal/migrate"
	"github.com/agaaaptr/open-socmed/internal/post"
	"github.com/agaaaptr/open-socmed/internal/profile"
	"github.com/agaaaptr/open-socmed/internal/shared/db"
	"github.com/agaaaptr/open-socmed/internal/shared/jwt"
	"github.com/agaaaptr/open-socmed/internal/shared/logx"
)

var (
	users      int
	follows    int
	postsEach  int
	baseURL    string
	seed       int64
	concurrent int
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill a development database with fake users, follows and posts",
	Long: `seed creates profiles and follow edges directly in Postgres, then
publishes posts through the running API with locally minted tokens, so
timelines and notifications are built the same way as for real traffic.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx)
	},
}

func init() {
	rootCmd.Flags().IntVar(&users, "users", 20, "Profiles to create")
	rootCmd.Flags().IntVar(&follows, "follows", 5, "Accounts each profile follows")
	rootCmd.Flags().IntVar(&postsEach, "posts", 3, "Posts per profile")
	rootCmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:8080", "API base URL")
	rootCmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 picks one)")
	rootCmd.Flags().IntVar(&concurrent, "concurrency", 8, "Parallel API requests")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := configs.LoadConfig()
	log, err := logx.New(cfg.LogLevel, "console")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	log.Info("seeding", zap.Int64("seed", seed), zap.Int("users", users))

	store, err := db.Open(ctx, db.Options{DSN: cfg.DatabaseURL, Log: log})
	if err != nil {
		return err
	}
	defer store.Close()
	if err := migrate.AutoMigrateAll(store); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	profiles := profile.NewRepository(store.Base)
	created := make([]profile.Profile, 0, users)
	for i := 0; i < users; i++ {
		p := fakeProfile(i)
		if err := profiles.Create(ctx, &p); err != nil {
			return fmt.Errorf("create profile %s: %w", p.Username, err)
		}
		created = append(created, p)
	}
	log.Info("profiles created", zap.Int("count", len(created)))

	edges := follow.NewRepository(store.Base)
	added := 0
	for _, pair := range followPairs(len(created), follows) {
		ok, err := edges.Create(ctx, &follow.Follow{
			ID:          uuid.New(),
			FollowerID:  created[pair[0]].ID,
			FollowingID: created[pair[1]].ID,
			CreatedAt:   time.Now(),
		})
		if err != nil {
			return fmt.Errorf("create follow: %w", err)
		}
		if ok {
			added++
		}
	}
	log.Info("follows created", zap.Int("count", added))

	secret := []byte(cfg.JWTSecret)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrent)
	for _, p := range created {
		api := client.New(baseURL, &jwt.DevTokenSource{Secret: secret, UserID: p.ID.String()}, client.WithLogger(log))
		for j := 0; j < postsEach; j++ {
			g.Go(func() error {
				if _, err := api.Create(gctx, fakeContent()); err != nil {
					return fmt.Errorf("post as %s: %w", p.Username, err)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("posts created", zap.Int("count", len(created)*postsEach))
	return nil
}

func fakeProfile(i int) profile.Profile {
	person := gofakeit.Person()
	return profile.Profile{
		ID:        uuid.New(),
		Username:  username(person.FirstName, i),
		FullName:  person.FirstName + " " + person.LastName,
		AvatarURL: person.Image,
		Website:   gofakeit.URL(),
	}
}

// username derives a handle that passes profile validation and stays
// unique within one run.
func username(first string, i int) string {
	var b strings.Builder
	for _, r := range strings.ToLower(first) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() >= 20 {
			break
		}
	}
	if b.Len() == 0 {
		b.WriteString("user")
	}
	return fmt.Sprintf("%s_%d", b.String(), i)
}

// followPairs picks up to per distinct accounts for every account, never
// itself.
func followPairs(n, per int) [][2]int {
	if n < 2 || per <= 0 {
		return nil
	}
	per = min(per, n-1)
	var out [][2]int
	for i := 0; i < n; i++ {
		offs := make([]int, 0, n-1)
		for off := 1; off < n; off++ {
			offs = append(offs, off)
		}
		gofakeit.ShuffleInts(offs)
		for _, off := range offs[:per] {
			out = append(out, [2]int{i, (i + off) % n})
		}
	}
	return out
}

func fakeContent() string {
	s := gofakeit.Sentence(gofakeit.Number(4, 30))
	r := []rune(s)
	if len(r) > post.MaxContentLength {
		s = string(r[:post.MaxContentLength])
	}
	return s
}
