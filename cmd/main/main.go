package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/knights-analytics/hugot"
	_ "github.com/mattn/go-sqlite3"
	"github.com/neurosnap/sentences/english"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/medkbase/medrag"
	googlegenai "github.com/medkbase/medrag/adapter/google-genai"
	hugotAdapter "github.com/medkbase/medrag/adapter/hugot"
	redisAdapter "github.com/medkbase/medrag/adapter/redis"
	"github.com/medkbase/medrag/adapter/rest"
	"github.com/medkbase/medrag/adapter/store"
	weaviateAdapter "github.com/medkbase/medrag/adapter/weaviate"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal("fatal error config file: ", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("logger: ", err)
	}
	defer logger.Sync()

	// The client gets the API key from the environment variable `GEMINI_API_KEY`.
	genaiClient, err := genai.NewClient(ctx, nil)
	if err != nil {
		log.Fatal("genai client: ", err)
	}

	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		log.Fatal("sentence tokenizer: ", err)
	}

	// Connect to the database
	log.Println("connecting to db:", viper.GetString("db.name"))
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=rwc&cache=shared", viper.GetString("db.name")))
	if err != nil {
		log.Fatal("db open: ", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatal("db ping: ", err)
	}

	// Run db migrations
	if err := medrag.Migrate(db, viper.GetString("db.migrations")); err != nil {
		log.Fatal("db migrate: ", err)
	}

	var hugotSession *hugot.Session
	if viper.GetString("adapter.embed.name") == "hugot" || viper.GetString("adapter.generative.name") == "hugot" {
		hugotSession, err = hugot.NewGoSession()
		if err != nil {
			log.Fatal("hugot session: ", err)
		}
		defer func() {
			err := hugotSession.Destroy()
			if err != nil {
				log.Fatal("hugot session destroy: ", err)
			}
		}()
	}

	var embedder medrag.Embedder
	switch name := viper.GetString("adapter.embed.name"); name {
	case "google-genai":
		log.Println("embed adapter: google-genai")
		embedder = googlegenai.New(
			genaiClient,
			googlegenai.WithEmbeddingModel(viper.GetString("adapter.embed.model")),
			googlegenai.WithLogger(logger),
		)
	case "hugot":
		log.Println("embed adapter: hugot")
		embedder, err = hugotAdapter.New(
			ctx,
			hugotSession,
			hugotAdapter.WithEmbeddingModelName(viper.GetString("adapter.embed.model")),
			hugotAdapter.WithModelsDir(viper.GetString("adapter.embed.models_dir")),
		)
		if err != nil {
			log.Fatal("hugot adapter: ", err)
		}
	default:
		log.Fatalf("unknown embed adapter: %s", name)
	}

	var generator medrag.Generator
	switch name := viper.GetString("adapter.generative.name"); name {
	case "google-genai":
		log.Println("generative adapter: google-genai")
		generator = googlegenai.New(
			genaiClient,
			googlegenai.WithGenerativeModel(viper.GetString("adapter.generative.model")),
			googlegenai.WithLogger(logger),
		)
	case "hugot":
		log.Println("generative adapter: hugot")
		generator, err = hugotAdapter.New(
			ctx,
			hugotSession,
			hugotAdapter.WithGenerativeModelName(viper.GetString("adapter.generative.model")),
			hugotAdapter.WithModelsDir(viper.GetString("adapter.generative.models_dir")),
		)
		if err != nil {
			log.Fatal("hugot adapter: ", err)
		}
	default:
		log.Fatalf("unknown generative adapter: %s", name)
	}

	wvClient, err := weaviate.NewClient(weaviate.Config{
		Host:   viper.GetString("weaviate.addr"),
		Scheme: viper.GetString("weaviate.scheme"),
	})
	if err != nil {
		log.Fatal("weaviate client: ", err)
	}
	dense, err := weaviateAdapter.New(ctx, wvClient)
	if err != nil {
		log.Fatal("weaviate adapter: ", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     viper.GetString("redis.addr"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
		Protocol: viper.GetInt("redis.protocol"),
	})
	keyword, err := redisAdapter.New(
		ctx,
		rdb,
		redisAdapter.WithIndexName(viper.GetString("redis.index")),
		redisAdapter.WithIndexPrefix(viper.GetString("redis.index_prefix")),
		redisAdapter.WithDialectVersion(viper.GetInt("redis.dialect_version")),
	)
	if err != nil {
		log.Fatal("redis adapter: ", err)
	}

	m, err := medrag.New(
		embedder,
		dense,
		keyword,
		generator,
		tokenizer,
		medrag.WithConfig(pipelineConfigFromViper()),
		medrag.WithStore(store.New(db)),
		medrag.WithLogger(logger),
	)
	if err != nil {
		log.Fatal("medrag: ", err)
	}

	if corpusPath := viper.GetString("corpus.path"); corpusPath != "" {
		if err := indexCorpus(ctx, m, corpusPath); err != nil {
			log.Fatal("index corpus: ", err)
		}
	}

	var (
		restAdapter = rest.New(
			m,
			rest.WithLogger(logger),
			rest.WithTimeout(viper.GetDuration("http.timeout")),
			rest.WithComponents(map[string]string{
				"embedder":  embedder.Name(),
				"dense":     dense.Name(),
				"keyword":   keyword.Name(),
				"generator": generator.Name(),
			}),
		)
		address = viper.GetString("http.host") + ":" + viper.GetString("http.port")
	)

	httpServer := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       10 * time.Second,
		Addr:              address,
		Handler:           restAdapter.Handler(),
	}

	log.Println("listening on", address)

	go func() {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
		log.Println("Stopped serving new connections.")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownRelease()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP shutdown error: %v", err)
	}
	log.Println("Graceful shutdown complete.")
}

func pipelineConfigFromViper() medrag.Config {
	config := medrag.DefaultConfig()

	if viper.IsSet("pipeline.uncertainty_threshold") {
		config.UncertaintyThreshold = viper.GetFloat64("pipeline.uncertainty_threshold")
	}
	if viper.IsSet("pipeline.min_keyword_overlap") {
		config.MinKeywordOverlap = viper.GetFloat64("pipeline.min_keyword_overlap")
	}
	if viper.IsSet("pipeline.max_retries") {
		config.MaxRetries = viper.GetInt("pipeline.max_retries")
	}
	if viper.IsSet("pipeline.top_k") {
		config.TopK = viper.GetInt("pipeline.top_k")
	}
	if viper.IsSet("pipeline.temperature") {
		config.Temperature = viper.GetFloat64("pipeline.temperature")
	}
	if viper.IsSet("pipeline.max_tokens") {
		config.MaxTokens = viper.GetInt("pipeline.max_tokens")
	}
	if viper.IsSet("pipeline.fusion_alpha") {
		config.FusionAlpha = viper.GetFloat64("pipeline.fusion_alpha")
	}
	if viper.IsSet("pipeline.single_method_weight") {
		config.SingleMethodWeight = viper.GetFloat64("pipeline.single_method_weight")
	}
	if viper.IsSet("pipeline.branch_timeout") {
		config.BranchTimeout = viper.GetDuration("pipeline.branch_timeout")
	}
	if viper.IsSet("pipeline.enable_citation_checking") {
		config.EnableCitationChecking = viper.GetBool("pipeline.enable_citation_checking")
	}
	if viper.IsSet("pipeline.enable_uncertainty_handling") {
		config.EnableUncertaintyHandling = viper.GetBool("pipeline.enable_uncertainty_handling")
	}

	return config
}

type corpusIndexer interface {
	IndexCorpus(ctx context.Context, chunks []medrag.Chunk) error
}

func indexCorpus(ctx context.Context, m corpusIndexer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	chunks, err := medrag.LoadCorpus(f)
	if err != nil {
		return err
	}

	log.Printf("indexing %d corpus chunks from %s", len(chunks), path)
	return m.IndexCorpus(ctx, chunks)
}
