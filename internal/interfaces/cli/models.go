package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/MultiNLU/internal/config"
	"github.com/turtacn/MultiNLU/internal/intelligence/interpreter"
	minioinfra "github.com/turtacn/MultiNLU/internal/infrastructure/storage/minio"
	"github.com/turtacn/MultiNLU/pkg/errors"
)

// NewModelsCmd manages model artifacts in object storage.
func NewModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Publish and inspect model artifacts in object storage",
		Long: "Model artifacts live in the configured MinIO bucket under <prefix><lang>/.\n" +
			"A server with artifacts.source=minio downloads the newest one at startup.",
	}
	cmd.AddCommand(newModelsPushCmd(), newModelsLatestCmd(), newModelsPullCmd())
	return cmd
}

var modelsCreateBucket bool

func newModelsPushCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push <lang> <artifact.tar.gz>",
		Short: "Upload a trained model artifact for a language",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withArtifactStore(cmd, modelsCreateBucket, func(ctx context.Context, store *minioinfra.ArtifactStore, _ *config.Config) error {
				key, err := store.Upload(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				PrintSuccess(cmd, "uploaded "+key)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&modelsCreateBucket, "create-bucket", false, "create the bucket when it does not exist")
	return cmd
}

func newModelsLatestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "latest <lang>",
		Short: "Show the artifact a server would load for a language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withArtifactStore(cmd, false, func(ctx context.Context, store *minioinfra.ArtifactStore, _ *config.Config) error {
				obj, err := store.Latest(ctx, args[0])
				if err != nil {
					return err
				}
				return PrintResult(cmd, artifactInfo{
					Locale:       args[0],
					Key:          obj.Key,
					Size:         obj.Size,
					LastModified: obj.LastModified,
				})
			})
		},
	}
}

func newModelsPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull <lang>",
		Short: "Download the newest artifact into the local model directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withArtifactStore(cmd, false, func(ctx context.Context, store *minioinfra.ArtifactStore, cfg *config.Config) error {
				dir := interpreter.NewResolver(cfg.NLU.ModelRoot, cfg.NLU.ModelDirPrefix).ModelDir(args[0])
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return errors.Wrap(err, errors.ErrCodeStorageError, "cannot create model directory").WithDetail(dir)
				}
				path, err := store.FetchLatest(ctx, args[0], dir)
				if err != nil {
					return err
				}
				PrintSuccess(cmd, path)
				return nil
			})
		},
	}
}

type artifactInfo struct {
	Locale       string    `json:"locale"`
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

func (a artifactInfo) String() string {
	return fmt.Sprintf("%s: %s (%d bytes, %s)", a.Locale, a.Key, a.Size, a.LastModified.Format(time.RFC3339))
}

func withArtifactStore(cmd *cobra.Command, createBucket bool,
	fn func(ctx context.Context, store *minioinfra.ArtifactStore, cfg *config.Config) error) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg, err := cliCtx.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.Artifacts.MinIO.Endpoint == "" {
		return errors.InvalidParam("artifacts.minio.endpoint is not configured")
	}

	ctx, cancel := clientContext(cmd, cliCtx)
	defer cancel()

	mc, err := minioinfra.NewMinIOClient(ctx, cfg.Artifacts.MinIO, createBucket, cliCtx.Logger)
	if err != nil {
		return err
	}
	return fn(ctx, minioinfra.NewArtifactStore(mc, nil, cliCtx.Logger), cfg)
}

//Personal.AI order the ending
