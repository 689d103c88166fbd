package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"aivisibility/backend-go/internal/brand"
	"aivisibility/backend-go/internal/config"
	"aivisibility/backend-go/internal/handlers"
	internalhttp "aivisibility/backend-go/internal/http"
	"aivisibility/backend-go/internal/ranking"
	"aivisibility/backend-go/internal/services"
)

func main() {
	_ = godotenv.Load(
		".env",
		".env.local",
		"../.env",
		"../.env.local",
		"backend-go/.env",
		"backend-go/.env.local",
	)
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	aliases, err := brand.LoadAliases(cfg.AliasFile)
	if err != nil {
		log.Fatalf("aliases: %v", err)
	}
	canon, err := brand.NewCanonicalizer(aliases)
	if err != nil {
		log.Fatalf("aliases: %v", err)
	}
	merge, err := ranking.ParseMergeStrategy(cfg.MergeStrategy)
	if err != nil {
		log.Printf("ranking: %v, using %s", err, ranking.MergeRunningAverage)
		merge = ranking.MergeRunningAverage
	}

	cache := services.NewCache(cfg)

	store, closeStore, err := services.NewDomainStore(ctx, cfg, cache)
	if err != nil {
		log.Fatalf("domain store: %v", err)
	}
	defer closeStore()
	domains := brand.NewDomainCache(store)
	loadCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	_ = domains.Load(loadCtx)
	cancel()

	logos := brand.NewResolver(domains, brand.ResolverConfig{Size: cfg.FaviconSize})
	norm := ranking.NewNormalizer(canon, logos, merge)
	client := services.NewAnalyticsClient(cfg)
	svc := services.NewRankingService(cfg, cache, client, norm, domains)

	h := internalhttp.NewRouter(cfg, handlers.New(cfg, cache, svc, client, canon, logos))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = domains.Save(shutdownCtx)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("ranking backend listening on %s (%d aliases, %d cached domains, merge=%s)", srv.Addr, canon.Len(), domains.Len(), merge)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	<-done
}
