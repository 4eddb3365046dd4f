package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"articleqa/internal/config"
	"articleqa/internal/database/milvus"
	"articleqa/internal/embedding"
	"articleqa/internal/llm"
	"articleqa/internal/metadata"
	"articleqa/internal/qafile"
	"articleqa/internal/rag/errs"
	"articleqa/internal/rag/service"
	"articleqa/pkg/logger"
)

func main() {
	configPath := "config/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.Init(level)
	appLogger := logger.New("articleqa")
	appLogger.Info("Starting article QA run...")

	embedder, err := embedding.New(cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.Key(), cfg.Embedding.BaseURL)
	if err != nil {
		log.Fatalf("Failed to create embedding client: %v", err)
	}
	generator, err := llm.New(cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.Key(), cfg.LLM.BaseURL)
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}

	var milvusClient *milvus.MilvusClient
	if cfg.Milvus.Enabled {
		milvusClient, err = milvus.GetClient(context.Background(), &cfg.Milvus)
		if err != nil {
			log.Fatalf("Failed to connect to Milvus: %v", err)
		}
		defer milvusClient.Close()
	}

	engine, err := service.NewEngine(cfg, embedder, generator, milvusClient, appLogger)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	questions, err := qafile.ReadQuestions(cfg.Files.Questions)
	if err != nil {
		log.Fatalf("Failed to read question table: %v", err)
	}
	appLogger.Info(fmt.Sprintf("Loaded %d questions from %s", len(questions), cfg.Files.Questions))

	pubmed := metadata.NewClient(cfg.PubMed.BaseURL, time.Duration(cfg.PubMed.TimeoutSeconds)*time.Second, appLogger)

	// Articles are independent sessions with no shared mutable state, so they
	// run concurrently. Questions within one article stay strictly in order.
	answersByArticle := make([][]qafile.Answer, len(cfg.Articles))
	eg, ctx := errgroup.WithContext(context.Background())
	for i, article := range cfg.Articles {
		eg.Go(func() error {
			answers, err := processArticle(ctx, engine, pubmed, article, questions, appLogger)
			if err != nil {
				return err
			}
			answersByArticle[i] = answers
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	var allAnswers []qafile.Answer
	for _, answers := range answersByArticle {
		allAnswers = append(allAnswers, answers...)
	}
	if err := qafile.WriteAnswers(cfg.Files.Answers, allAnswers); err != nil {
		log.Fatalf("Failed to write answers table: %v", err)
	}

	appLogger.Info(fmt.Sprintf("Wrote %d answers to %s", len(allAnswers), cfg.Files.Answers))
}

// processArticle answers every question of the table against one article,
// in order, within a fresh session. Provider failures, whether during
// indexing or on a single question, are recorded as error entries and never
// abort the batch; only a configuration error does.
func processArticle(ctx context.Context, engine *service.Engine, pubmed *metadata.Client, article config.ArticleConfig, questions []qafile.Question, appLogger *logger.Logger) ([]qafile.Answer, error) {
	if article.DOI != "" {
		meta, err := pubmed.LookupDOI(ctx, article.DOI)
		switch {
		case errors.Is(err, metadata.ErrNotFound):
			appLogger.Warn(fmt.Sprintf("No PubMed record for DOI %s", article.DOI))
		case err != nil:
			appLogger.Warn(fmt.Sprintf("PubMed lookup for DOI %s failed: %v", article.DOI, err))
		default:
			appLogger.WithPayload(map[string]interface{}{
				"title":   meta.Title,
				"journal": meta.Journal,
				"authors": strings.Join(meta.Authors, ", "),
				"pubdate": meta.PubDate,
			}).Info("Fetched article metadata")
		}
	}

	idx, doc, err := engine.BuildIndex(ctx, article.Path)
	if err != nil {
		if errs.IsConfig(err) {
			return nil, err
		}
		// Fatal for this article only: record an error entry per question so
		// the answers table stays complete, and let the other articles finish.
		appLogger.Error(fmt.Sprintf("Failed to index %s: %v", article.Path, err))
		articleID := filepath.Base(article.Path)
		answers := make([]qafile.Answer, 0, len(questions))
		for _, q := range questions {
			answers = append(answers, qafile.Answer{
				ArticleID: articleID,
				Field:     q.Field,
				Question:  q.Question,
				Error:     err.Error(),
			})
		}
		return answers, nil
	}

	history := engine.NewSession()
	answers := make([]qafile.Answer, 0, len(questions))

	for _, q := range questions {
		contextualized := q.Question
		if q.Field != "" {
			contextualized = fmt.Sprintf("In the %s, %s", strings.ToLower(q.Field), q.Question)
		}

		row := qafile.Answer{
			ArticleID:              doc.ID,
			Field:                  q.Field,
			Question:               q.Question,
			ContextualizedQuestion: contextualized,
		}

		result, err := engine.Answer(ctx, idx, contextualized, history)
		switch {
		case errs.IsConfig(err):
			return nil, err
		case err != nil:
			// Recoverable per question: record the failure and move on. The
			// session history was not touched, so later questions condense
			// against the successful turns only.
			appLogger.WithDocument(doc.ID).Error(fmt.Sprintf("Question %q failed: %v", contextualized, err))
			row.Error = err.Error()
		default:
			row.Answer = result.Answer
			if len(result.Sources) > 0 {
				row.SourcePassage = result.Sources[0].Text
			}
		}
		answers = append(answers, row)
	}

	return answers, nil
}
