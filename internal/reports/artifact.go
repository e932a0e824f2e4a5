package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"brineguard/internal/climate"
	"brineguard/internal/spraysim"
	"brineguard/internal/types"
)

// Artifact is the JSON bundle persisted per run: everything needed to audit
// the verdict without re-running the simulation.
type Artifact struct {
	RunID       string                     `json:"run_id"`
	ProjectID   string                     `json:"project_id"`
	GeneratedAt time.Time                  `json:"generated_at"`
	Environment climate.Context            `json:"environment"`
	Simulation  *spraysim.SimulationResult `json:"simulation"`
	Judgment    *types.JudgmentResult      `json:"judgment,omitempty"`
	Decision    *types.DecisionResult      `json:"decision,omitempty"`
	ReportText  string                     `json:"report_text"`
}

// StoreConfig configures the MinIO-backed artifact store.
type StoreConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store persists run artifacts as zstd-compressed JSON objects.
type Store struct {
	client  *minio.Client
	bucket  string
	region  string
	encoder *zstd.Encoder
	decoder *zstd.Decoder

	initOnce sync.Once
	initErr  error
}

// NewStore creates an artifact store against the configured MinIO endpoint.
func NewStore(cfg StoreConfig) (*Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("artifact store endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("artifact store bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init artifact store client: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("init zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("init zstd decoder: %w", err)
	}

	return &Store{
		client:  client,
		bucket:  bucket,
		region:  region,
		encoder: encoder,
		decoder: decoder,
	}, nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// ObjectKey is the storage key for a run's artifact.
func ObjectKey(projectID, runID string) string {
	return fmt.Sprintf("projects/%s/runs/%s/artifact.json.zst", projectID, runID)
}

// Put serializes, compresses, and uploads the artifact.
func (s *Store) Put(ctx context.Context, artifact *Artifact) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", types.NewAppError(types.ErrCodeInternalArtifact, "ensuring artifact bucket", err)
	}

	raw, err := json.Marshal(artifact)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalArtifact, "encoding artifact", err)
	}
	compressed := s.encoder.EncodeAll(raw, nil)

	key := ObjectKey(artifact.ProjectID, artifact.RunID)
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(compressed), int64(len(compressed)), minio.PutObjectOptions{
		ContentType: "application/zstd",
	})
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalArtifact, "uploading artifact", err)
	}
	return key, nil
}

// Get downloads and decodes the artifact for a run.
func (s *Store) Get(ctx context.Context, projectID, runID string) (*Artifact, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, ObjectKey(projectID, runID), minio.GetObjectOptions{})
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalArtifact, "fetching artifact", err)
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(obj); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalArtifact, "reading artifact", err)
	}

	raw, err := s.decoder.DecodeAll(buf.Bytes(), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalArtifact, "decompressing artifact", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalArtifact, "decoding artifact", err)
	}
	return &artifact, nil
}
