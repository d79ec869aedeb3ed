package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/lexi-backend/internal/data/repos"
	"github.com/yungbote/lexi-backend/internal/jobs/reindex"
	"github.com/yungbote/lexi-backend/internal/modules/chat"
	"github.com/yungbote/lexi-backend/internal/modules/documents"
	"github.com/yungbote/lexi-backend/internal/modules/ingestion"
	"github.com/yungbote/lexi-backend/internal/modules/retrieval"
	"github.com/yungbote/lexi-backend/internal/modules/vault"
	"github.com/yungbote/lexi-backend/internal/platform/logger"
)

type Services struct {
	Cipher     *vault.Cipher
	Vectorizer *ingestion.Vectorizer
	Documents  *documents.Service
	Retriever  *retrieval.Retriever
	History    *chat.History
	Chat       *chat.Service

	ReindexWorker  *reindex.Worker
	ReindexSweeper *reindex.Sweeper
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet repos.Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	key, err := vault.DecodeKey(cfg.Cipher.Key)
	if err != nil {
		return Services{}, fmt.Errorf("cipher key: %w", err)
	}
	alg, err := vault.ParseAlgorithm(cfg.Cipher.Algorithm)
	if err != nil {
		return Services{}, err
	}
	cipher, err := vault.New(key, vault.WithAlgorithm(alg))
	if err != nil {
		return Services{}, fmt.Errorf("init cipher: %w", err)
	}
	log.Info("Vault cipher ready", "algorithm", cipher.Algorithm())

	vectorizer, err := ingestion.NewVectorizer(log, clients.Inference, clients.Index,
		ingestion.WithChunker(ingestion.NewChunker(
			ingestion.WithChunkSize(cfg.Ingestion.ChunkSize),
			ingestion.WithOverlap(cfg.Ingestion.ChunkOverlap),
		)),
		ingestion.WithEmbedBatchSize(cfg.Inference.EmbedBatchSize),
		ingestion.WithEmbedConcurrency(cfg.Inference.EmbedConcurrency),
	)
	if err != nil {
		return Services{}, fmt.Errorf("init vectorizer: %w", err)
	}

	docs, err := documents.NewService(log, reposet.Documents, reposet.Matters, cipher, vectorizer,
		documents.WithQueue(clients.Queue),
		documents.WithVerification(cfg.Ingestion.VerifyRetries, cfg.Ingestion.RetryDelay),
	)
	if err != nil {
		return Services{}, fmt.Errorf("init document service: %w", err)
	}

	retriever, err := retrieval.NewRetriever(log, clients.Inference, clients.Index, cfg.Retrieval.MinScore)
	if err != nil {
		return Services{}, fmt.Errorf("init retriever: %w", err)
	}

	history := chat.NewHistory(db, log, reposet.ChatSessions, reposet.ChatMessages)
	chatSvc, err := chat.NewService(
		log,
		reposet.Principals,
		history,
		chat.NewRouter(log, clients.Inference),
		retriever,
		chat.NewGenerator(log, clients.Inference),
		chat.Config{HistoryTurns: cfg.Chat.HistoryTurns, TopK: cfg.Retrieval.TopK},
	)
	if err != nil {
		return Services{}, fmt.Errorf("init chat service: %w", err)
	}

	return Services{
		Cipher:     cipher,
		Vectorizer: vectorizer,
		Documents:  docs,
		Retriever:  retriever,
		History:    history,
		Chat:       chatSvc,
		ReindexWorker: reindex.NewWorker(log, clients.Queue, docs,
			cfg.Reindex.Workers, cfg.Reindex.JobTimeout),
		ReindexSweeper: reindex.NewSweeper(log, reposet.Documents, clients.Queue, reindex.SweeperConfig{
			Interval: cfg.Reindex.SweepInterval,
			MinAge:   cfg.Reindex.SweepMinAge,
			Batch:    cfg.Reindex.SweepBatch,
		}),
	}, nil
}
