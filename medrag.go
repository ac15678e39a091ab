package medrag

import (
	"errors"
	"time"

	"github.com/neurosnap/sentences"
	"go.uber.org/zap"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUnknownMethod    = errors.New("unknown retrieval method")
	ErrRetrievalFailed  = errors.New("retrieval failed")
	ErrInvalidConfig    = errors.New("invalid config")
	ErrMissingTokenizer = errors.New("missing sentence tokenizer")
)

type clock func() time.Time

type medRAG struct {
	embedder  Embedder
	dense     DenseRanker
	keyword   KeywordRanker
	generator Generator
	store     Store
	tokenizer *sentences.DefaultSentenceTokenizer
	config    Config
	logger    *zap.Logger
	now       clock
}

type Option func(*medRAG)

func WithConfig(config Config) Option {
	return func(m *medRAG) {
		m.config = config
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(m *medRAG) {
		m.logger = logger
	}
}

// WithStore enables the query audit log. Without it answered queries are
// not persisted.
func WithStore(store Store) Option {
	return func(m *medRAG) {
		m.store = store
	}
}

func WithClock(now clock) Option {
	return func(m *medRAG) {
		m.now = now
	}
}

// New assembles the answer pipeline. The embedder, rankers and generator are
// external collaborators; everything between them (safety gate, fusion,
// confidence gate, prompt assembly, validation, retries) lives here.
func New(embedder Embedder, dense DenseRanker, keyword KeywordRanker, generator Generator, tokenizer *sentences.DefaultSentenceTokenizer, options ...Option) (*medRAG, error) {
	m := &medRAG{
		embedder:  embedder,
		dense:     dense,
		keyword:   keyword,
		generator: generator,
		tokenizer: tokenizer,
		config:    DefaultConfig(),
		logger:    zap.NewNop(),
		now:       func() time.Time { return time.Now().UTC() },
	}

	for _, o := range options {
		o(m)
	}

	if m.tokenizer == nil {
		return nil, ErrMissingTokenizer
	}

	if err := m.config.Valid(); err != nil {
		return nil, err
	}

	m.logger.Sugar().With(
		"embedder", embedder.Name(),
		"dense ranker", dense.Name(),
		"keyword ranker", keyword.Name(),
		"generator", generator.Name(),
		"uncertainty threshold", m.config.UncertaintyThreshold,
		"max retries", m.config.MaxRetries,
	).Info("init medrag pipeline")

	return m, nil
}
