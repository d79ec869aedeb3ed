package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"strings"

	"github.com/yungbote/lexi-backend/internal/platform/logger"
	"github.com/yungbote/lexi-backend/internal/platform/qdrant"
	"github.com/yungbote/lexi-backend/internal/platform/vectorindex"
	"github.com/yungbote/lexi-backend/internal/platform/vectorindex/memory"
)

var (
	newQdrantIndex = func(log *logger.Logger, cfg qdrant.Config) (vectorindex.Index, error) {
		return qdrant.NewIndex(log, cfg)
	}
	newMemoryIndex = func(log *logger.Logger, dim int) vectorindex.Index {
		return memory.New(log, dim)
	}
)

type VectorProviderBootstrapErrorCode string

const (
	VectorProviderBootstrapErrorInvalidProvider     VectorProviderBootstrapErrorCode = "invalid_provider"
	VectorProviderBootstrapErrorMissingQdrantURL    VectorProviderBootstrapErrorCode = "missing_qdrant_url"
	VectorProviderBootstrapErrorInvalidQdrantURL    VectorProviderBootstrapErrorCode = "invalid_qdrant_url"
	VectorProviderBootstrapErrorMissingQdrantColl   VectorProviderBootstrapErrorCode = "missing_qdrant_collection"
	VectorProviderBootstrapErrorMissingQdrantVector VectorProviderBootstrapErrorCode = "missing_qdrant_vector_dim"
	VectorProviderBootstrapErrorInvalidQdrantVector VectorProviderBootstrapErrorCode = "invalid_qdrant_vector_dim"
	VectorProviderBootstrapErrorQdrantConfigFailed  VectorProviderBootstrapErrorCode = "qdrant_config_failed"
	VectorProviderBootstrapErrorDimensionMismatch   VectorProviderBootstrapErrorCode = "dimension_mismatch"
	VectorProviderBootstrapErrorConnectFailed       VectorProviderBootstrapErrorCode = "connect_failed"
	VectorProviderBootstrapErrorProviderInitFailed  VectorProviderBootstrapErrorCode = "provider_init_failed"
)

type VectorProviderBootstrapError struct {
	Code     VectorProviderBootstrapErrorCode
	Provider string
	Cause    error
}

func (e *VectorProviderBootstrapError) Error() string {
	if e == nil {
		return "vector provider bootstrap failed"
	}
	return fmt.Sprintf("vector provider bootstrap failed (code=%s provider=%q): %v", e.Code, e.Provider, e.Cause)
}

func (e *VectorProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveVectorIndex builds the configured index, bootstraps its collection,
// and wraps it with latency metrics.
func resolveVectorIndex(ctx context.Context, log *logger.Logger, cfg Config) (vectorindex.Index, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Vector.Provider))

	var idx vectorindex.Index
	switch provider {
	case VectorProviderQdrant:
		log.Info(
			"Selecting vector index provider",
			"provider", provider,
			"qdrant_url", cfg.Vector.URL,
			"qdrant_collection", cfg.Vector.Collection,
			"qdrant_vector_dim", cfg.Vector.Dim,
		)
		q, err := newQdrantIndex(log, cfg.qdrantConfig())
		if err != nil {
			return nil, bootstrapFailed(log, provider, err)
		}
		idx = q
	case VectorProviderMemory:
		log.Warn("In-memory vector index selected; vectors are lost on restart and rebuilt by the reindex sweep")
		idx = newMemoryIndex(log, cfg.Vector.Dim)
	default:
		err := &VectorProviderBootstrapError{
			Code:     VectorProviderBootstrapErrorInvalidProvider,
			Provider: provider,
			Cause:    fmt.Errorf("unsupported vector provider %q", provider),
		}
		log.Error("Vector index provider selection failed", "provider", provider, "error_code", err.Code, "error", err)
		return nil, err
	}

	if err := idx.EnsureCollection(ctx); err != nil {
		return nil, bootstrapFailed(log, provider, err)
	}
	return instrumentVectorIndex(provider, idx), nil
}

func bootstrapFailed(log *logger.Logger, provider string, err error) error {
	classified := classifyVectorProviderBootstrapError(provider, err)
	log.Error(
		"Vector index provider bootstrap failed",
		"provider", provider,
		"error_code", vectorProviderBootstrapErrorCode(classified),
		"error", classified,
	)
	return classified
}

func classifyVectorProviderBootstrapError(provider string, err error) error {
	wrap := func(code VectorProviderBootstrapErrorCode) error {
		return &VectorProviderBootstrapError{Code: code, Provider: provider, Cause: err}
	}

	if errors.Is(err, vectorindex.ErrDimensionMismatch) {
		return wrap(VectorProviderBootstrapErrorDimensionMismatch)
	}
	var urlErr *neturl.Error
	if errors.As(err, &urlErr) {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}
	var opErr *qdrant.OperationError
	if errors.As(err, &opErr) && (opErr.Code == qdrant.OperationErrorTransportFailed || opErr.Code == qdrant.OperationErrorTimeout) {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}

	var cfgErr *qdrant.ConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case qdrant.ConfigErrorMissingURL:
			return wrap(VectorProviderBootstrapErrorMissingQdrantURL)
		case qdrant.ConfigErrorInvalidURL:
			return wrap(VectorProviderBootstrapErrorInvalidQdrantURL)
		case qdrant.ConfigErrorMissingCollection:
			return wrap(VectorProviderBootstrapErrorMissingQdrantColl)
		case qdrant.ConfigErrorMissingVectorDim:
			return wrap(VectorProviderBootstrapErrorMissingQdrantVector)
		case qdrant.ConfigErrorInvalidVectorDim:
			return wrap(VectorProviderBootstrapErrorInvalidQdrantVector)
		default:
			return wrap(VectorProviderBootstrapErrorQdrantConfigFailed)
		}
	}

	return wrap(VectorProviderBootstrapErrorProviderInitFailed)
}

func vectorProviderBootstrapErrorCode(err error) VectorProviderBootstrapErrorCode {
	var bootstrapErr *VectorProviderBootstrapError
	if errors.As(err, &bootstrapErr) {
		if bootstrapErr.Code != "" {
			return bootstrapErr.Code
		}
	}
	return VectorProviderBootstrapErrorConnectFailed
}
