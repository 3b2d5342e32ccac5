package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/SaiNageswarS/go-api-boot/config"
	"github.com/SaiNageswarS/go-api-boot/dotenv"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/repo-advisor/agentboot"
	"github.com/SaiNageswarS/repo-advisor/appconfig"
	"github.com/SaiNageswarS/repo-advisor/llm"
	"github.com/SaiNageswarS/repo-advisor/metrics"
	"github.com/SaiNageswarS/repo-advisor/retrieval"
	"github.com/SaiNageswarS/repo-advisor/services"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

func main() {
	dotenv.LoadEnv()

	// load config file
	ccfgg := &appconfig.AppConfig{}
	err := config.LoadConfig("config.ini", ccfgg)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx := getCancellableContext()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(ccfgg.AWSRegion))
	if err != nil {
		logger.Fatal("Failed to load AWS config", zap.Error(err))
	}

	metrics.InitMetrics()

	agent := agentboot.NewAgentBuilder().
		WithLLM(provideLLMClient(awsCfg, ccfgg)).
		WithSearcher(provideSearcher(awsCfg, ccfgg)).
		WithMaxHistory(ccfgg.MaxHistory).
		WithContextWindow(ccfgg.ContextWindow).
		WithMaxTurns(ccfgg.MaxTurns).
		WithMaxTokens(ccfgg.MaxTokens).
		WithTemperature(ccfgg.Temperature).
		WithMaxResults(ccfgg.MaxResults).
		WithMinScore(ccfgg.MinScore).
		WithUpstreamTimeout(ccfgg.UpstreamTimeout()).
		WithRetrievalTimeout(ccfgg.RetrievalTimeout()).
		WithMaxMessageLength(ccfgg.MaxMessageLength).
		Build()

	mux := http.NewServeMux()
	mux.Handle("/chat", services.ProvideChatService(agent, ccfgg.AllowOrigin))
	mux.Handle("/metrics", metrics.Handler())

	httpServer := &http.Server{
		Addr:              ccfgg.HTTPPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer := grpc.NewServer(getStreamingOptimizations()...)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", ccfgg.GRPCPort)
	if err != nil {
		logger.Fatal("Failed to listen for gRPC", zap.String("port", ccfgg.GRPCPort), zap.Error(err))
	}

	go func() {
		logger.Info("Starting gRPC server", zap.String("port", ccfgg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server stopped", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", ccfgg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	grpcServer.GracefulStop()
}

func provideLLMClient(awsCfg aws.Config, ccfgg *appconfig.AppConfig) llm.LLMClient {
	switch ccfgg.LLMProvider {
	case "bedrock":
		model := ccfgg.ModelID
		if model == "" {
			model = llm.DefaultBedrockModel
		}
		return llm.NewBedrockClient(awsCfg, model)
	case "groq":
		return llm.NewGroqClient(ccfgg.ModelID)
	case "ollama", "":
		model := ccfgg.ModelID
		if model == "" {
			model = "gpt-oss:20b"
		}
		return llm.NewOllamaClient(model)
	default:
		logger.Fatal("Unknown llm provider", zap.String("provider", ccfgg.LLMProvider))
		return nil
	}
}

// provideSearcher returns nil when no knowledge base is configured; the agent
// then answers from the model alone.
func provideSearcher(awsCfg aws.Config, ccfgg *appconfig.AppConfig) retrieval.Searcher {
	if ccfgg.KnowledgeBaseEnabled() {
		kb, err := retrieval.NewBedrockKnowledgeBase(awsCfg, strings.TrimSpace(ccfgg.KnowledgeBaseID))
		if err != nil {
			logger.Fatal("Failed to create knowledge base client", zap.Error(err))
		}
		return kb
	}

	if ccfgg.LocalIndexDir == "" {
		logger.Info("No knowledge base configured, answering without retrieval")
		return nil
	}

	idx, err := retrieval.LoadLocalIndex(ccfgg.LocalIndexDir)
	if err != nil {
		logger.Error("Failed to load local index, answering without retrieval",
			zap.String("dir", ccfgg.LocalIndexDir), zap.Error(err))
		return nil
	}
	logger.Info("Loaded local index", zap.String("dir", ccfgg.LocalIndexDir), zap.Int("documents", idx.Len()))
	return idx
}

func getCancellableContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sig
		cancel()
	}()

	return ctx
}

func getStreamingOptimizations() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle: 30 * time.Second,
			Time:              30 * time.Second,
			Timeout:           5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             10 * time.Second,
			PermitWithoutStream: true,
		}),
	}
}
