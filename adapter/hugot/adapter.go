package hugot

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelineBackends"
	"github.com/knights-analytics/hugot/pipelines"
)

type modelConfig struct {
	name             string
	onxFilePath      string
	externalDataPath string
}

type Adapter struct {
	session          *hugot.Session
	embedding        *pipelines.FeatureExtractionPipeline
	generative       *pipelines.TextGenerationPipeline
	embeddingConfig  modelConfig
	generativeConfig modelConfig
	modelsDir        string
}

type Option func(*Adapter)

func WithEmbeddingModelName(name string) Option {
	return func(a *Adapter) {
		a.embeddingConfig.name = name
	}
}

func WithGenerativeModelName(name string) Option {
	return func(a *Adapter) {
		a.generativeConfig.name = name
	}
}

func WithEmbeddingModelOnnxFilePath(path string) Option {
	return func(a *Adapter) {
		a.embeddingConfig.onxFilePath = path
	}
}

func WithGenerativeModelOnnxFilePath(path string) Option {
	return func(a *Adapter) {
		a.generativeConfig.onxFilePath = path
	}
}

func WithGenerativeModelExternalDataPath(path string) Option {
	return func(a *Adapter) {
		a.generativeConfig.externalDataPath = path
	}
}

func WithModelsDir(path string) Option {
	return func(a *Adapter) {
		a.modelsDir = path
	}
}

const (
	defaultModelsDir   = "/models"
	defaultOnxFilePath = "onnx/model.onnx"
)

func New(ctx context.Context, session *hugot.Session, options ...Option) (*Adapter, error) {
	a := &Adapter{
		session:          session,
		embeddingConfig:  modelConfig{onxFilePath: defaultOnxFilePath},
		generativeConfig: modelConfig{onxFilePath: defaultOnxFilePath},
		modelsDir:        defaultModelsDir,
	}

	for _, o := range options {
		o(a)
	}

	log.Println(
		"init hugot adapter,",
		"embedding model config:", a.embeddingConfig,
		"generative model config:", a.generativeConfig,
		"models dir:", a.modelsDir,
	)

	if err := a.init(ctx); err != nil {
		return nil, err
	}

	return a, nil
}

const adapterName = "hugot"

func (a *Adapter) Name() string {
	return adapterName
}

// init resolves the configured models and builds a pipeline for each. The
// pipelines share one session, so a single adapter can serve both the
// embedding and the generation port.
func (a *Adapter) init(ctx context.Context) error {
	if a.embeddingConfig.name == "" && a.generativeConfig.name == "" {
		return fmt.Errorf("either embedding model or generative model must be specified")
	}

	if a.embeddingConfig.name != "" {
		modelPath, err := a.resolveModel(a.embeddingConfig)
		if err != nil {
			return fmt.Errorf("embedding model: %w", err)
		}

		a.embedding, err = hugot.NewPipeline(a.session, hugot.FeatureExtractionConfig{
			ModelPath: modelPath,
			Name:      "embeddingPipeline",
		})
		if err != nil {
			return fmt.Errorf("create embedding pipeline: %w", err)
		}
	}

	if a.generativeConfig.name != "" {
		modelPath, err := a.resolveModel(a.generativeConfig)
		if err != nil {
			return fmt.Errorf("generative model: %w", err)
		}

		a.generative, err = hugot.NewPipeline(a.session, hugot.TextGenerationConfig{
			ModelPath:    modelPath,
			Name:         "textGenerationPipeline",
			OnnxFilename: a.generativeConfig.onxFilePath,
			Options: []pipelineBackends.PipelineOption[*pipelines.TextGenerationPipeline]{
				pipelines.WithMaxTokens(2096),
				pipelines.WithGemmaTemplate(),
			},
		})
		if err != nil {
			return fmt.Errorf("create generative pipeline: %w", err)
		}
	}

	return nil
}

// resolveModel returns the local path of a model, downloading it into the
// models dir on first use.
func (a *Adapter) resolveModel(config modelConfig) (string, error) {
	modelPath, err := localModelPath(a.modelsDir, config.name)
	if err != nil {
		return "", fmt.Errorf("checking local model: %w", err)
	}
	if modelPath != "" {
		log.Println("model already present, skipping download:", modelPath)
		return modelPath, nil
	}

	log.Println("downloading model:", config.name)
	downloadOptions := hugot.NewDownloadOptions()
	downloadOptions.OnnxFilePath = config.onxFilePath
	if config.externalDataPath != "" {
		downloadOptions.ExternalDataPath = config.externalDataPath
	}

	modelPath, err = hugot.DownloadModel(config.name, a.modelsDir, downloadOptions)
	if err != nil {
		return "", fmt.Errorf("downloading model: %w", err)
	}
	log.Println("downloaded model:", config.name)

	return modelPath, nil
}

// localModelPath reports where a previously downloaded model lives, or ""
// when it has not been downloaded yet. Variant suffixes after ":" are not
// part of the on-disk name.
func localModelPath(destination, modelName string) (string, error) {
	name, _, _ := strings.Cut(modelName, ":")
	modelPath := path.Join(destination, strings.ReplaceAll(name, "/", "_"))

	if _, err := os.Stat(modelPath); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	return modelPath, nil
}
