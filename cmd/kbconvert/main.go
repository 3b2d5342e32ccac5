package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/SaiNageswarS/go-api-boot/dotenv"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/repo-advisor/ingest"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	input  string
	outDir string
	bucket string
	prefix string
	region string
	format string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "kbconvert",
		Short: "Convert the repository classification CSV into knowledge base documents",
		Long: "kbconvert reads the repository classification CSV and writes one JSON document per repository, " +
			"either to a local directory or to an S3 prefix that the knowledge base data source ingests.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "classification_results_awslabs.csv", "classification CSV file")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "data/repos", "output directory (ignored with --bucket)")
	cmd.Flags().StringVar(&opts.bucket, "bucket", "", "upload to this S3 bucket instead of a local directory")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "repos_bedrock", "S3 key prefix")
	cmd.Flags().StringVar(&opts.region, "region", "", "AWS region (default from the environment)")
	cmd.Flags().StringVar(&opts.format, "format", string(ingest.FormatKnowledgeBase), "document format: full or bedrock")

	return cmd
}

func run(ctx context.Context, opts *options) error {
	format := ingest.Format(opts.format)
	if format != ingest.FormatFull && format != ingest.FormatKnowledgeBase {
		return fmt.Errorf("unknown format %q", opts.format)
	}

	f, err := os.Open(opts.input)
	if err != nil {
		return fmt.Errorf("error opening csv: %w", err)
	}
	defer f.Close()

	sink, err := newSink(ctx, opts)
	if err != nil {
		return err
	}

	stats, err := ingest.Convert(ctx, f, sink, format)
	if err != nil {
		return err
	}

	if stats.Processed == 0 {
		return errors.New("no repositories converted")
	}
	return nil
}

func newSink(ctx context.Context, opts *options) (ingest.Sink, error) {
	if opts.bucket == "" {
		logger.Info("Writing documents to directory", zap.String("dir", opts.outDir))
		return ingest.NewDirSink(opts.outDir)
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}

	logger.Info("Uploading documents to S3", zap.String("bucket", opts.bucket), zap.String("prefix", opts.prefix))
	return ingest.NewS3Sink(cfg, opts.bucket, opts.prefix), nil
}

func main() {
	dotenv.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger.Error("kbconvert failed", zap.Error(err))
		stop()
		os.Exit(1)
	}
}
