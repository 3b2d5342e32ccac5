package appconfig

import (
	"strings"
	"time"

	"github.com/SaiNageswarS/go-api-boot/config"
)

type AppConfig struct {
	config.BootConfig `ini:",extends"`

	HTTPPort string `env:"HTTP-PORT" ini:"http_port"`
	GRPCPort string `env:"GRPC-PORT" ini:"grpc_port"`
	// AllowOrigin is sent as Access-Control-Allow-Origin.
	AllowOrigin string `env:"ALLOW-ORIGIN" ini:"allow_origin"`

	AWSRegion string `env:"AWS-REGION" ini:"aws_region"`

	// LLMProvider is one of bedrock, groq or ollama.
	LLMProvider string `env:"LLM-PROVIDER" ini:"llm_provider"`
	ModelID     string `env:"MODEL-ID" ini:"model_id"`

	// KnowledgeBaseID selects the managed knowledge base. When it is empty the
	// documents under LocalIndexDir are searched instead.
	KnowledgeBaseID string `env:"KNOWLEDGE-BASE-ID" ini:"knowledge_base_id"`
	LocalIndexDir   string `env:"LOCAL-INDEX-DIR" ini:"local_index_dir"`

	MaxHistory    int `ini:"max_history"`
	ContextWindow int `ini:"context_window"`
	MaxTurns      int `ini:"max_turns"`

	MaxTokens   int     `ini:"max_tokens"`
	Temperature float64 `ini:"temperature"`

	MaxResults int     `ini:"max_results"`
	MinScore   float64 `ini:"min_score"`

	UpstreamTimeoutSeconds  int `ini:"upstream_timeout_seconds"`
	RetrievalTimeoutSeconds int `ini:"retrieval_timeout_seconds"`
	MaxMessageLength        int `ini:"max_message_length"`
}

// KnowledgeBaseEnabled reports whether a managed knowledge base id has been
// filled in. PLACEHOLDER is the value shipped before the knowledge base exists.
func (c *AppConfig) KnowledgeBaseEnabled() bool {
	id := strings.TrimSpace(c.KnowledgeBaseID)
	return id != "" && id != "PLACEHOLDER"
}

func (c *AppConfig) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutSeconds) * time.Second
}

func (c *AppConfig) RetrievalTimeout() time.Duration {
	return time.Duration(c.RetrievalTimeoutSeconds) * time.Second
}
