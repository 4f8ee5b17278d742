package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/activity-timeline/internal/adapters/cache"
	"github.com/mikey/activity-timeline/internal/config"
	"github.com/mikey/activity-timeline/internal/core"
	"github.com/mikey/activity-timeline/internal/factory"
	"github.com/mikey/activity-timeline/internal/logging"
	"github.com/mikey/activity-timeline/internal/preprocess"
)

var (
	// Inference provider flags
	provider = flag.String("provider", "huggingface", "Inference provider (huggingface, openai)")

	// Hugging Face flags
	hfToken         = flag.String("hf-token", "", "Hugging Face API token")
	hfClassifier    = flag.String("hf-classifier", "facebook/bart-large-mnli", "Hugging Face zero-shot classification model")
	hfSentiment     = flag.String("hf-sentiment", "cardiffnlp/twitter-roberta-base-sentiment-latest", "Hugging Face sentiment model")
	hfSummarizer    = flag.String("hf-summarizer", "facebook/bart-large-cnn", "Hugging Face summarization model")
	hfMaxAttempts   = flag.Int("hf-max-attempts", 3, "Maximum attempts while the model is loading")
	hfModelLoadWait = flag.Duration("hf-model-load-wait", 10*time.Second, "Wait between attempts while the model is loading")

	// OpenAI flags
	openaiAPIKey    = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiModelName = flag.String("openai-model", "gpt-4o-mini", "OpenAI model name")

	// Analysis flags
	labelSet      = flag.String("labels", "", "Comma-separated candidate labels (overrides the built-in sets)")
	maxTextLength = flag.Int("max-text-length", 512, "Maximum text length sent to the classifier")
	timestampFlag = flag.String("timestamp", "", "Message timestamp in RFC 3339 format (defaults to the Date header, then now)")

	// Input flags
	inputFile  = flag.String("file", "", "Input email file (use stdin if not specified)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

func main() {
	flag.Parse()

	var cfg *config.Config
	var err error

	// Initialize logger
	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration from file if specified
	if *configFile != "" {
		cfg, err = config.New()
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		// Create config from command line flags
		cfg = createConfigFromFlags()
	}

	// Initialize inference client
	inferenceFactory := factory.NewInferenceFactory(cfg, logger, nil)
	client, err := inferenceFactory.CreateInferenceClient()
	if err != nil {
		logger.Fatal("Failed to create inference client", zap.Error(err))
	}

	labels := cfg.GetLabelSets()
	if *labelSet != "" {
		custom := strings.Split(*labelSet, ",")
		for i, l := range custom {
			custom[i] = strings.TrimSpace(l)
		}
		labels = map[string][]string{"general_activities": custom}
	}

	analysisCfg := cfg.GetAnalysis()
	service := core.NewActivityService(
		client,
		cache.NewMemoryCache(logger, 0),
		preprocess.NewProcessor(logger),
		logger,
		nil,
		labels,
		false,
		0,
		analysisCfg.ConfidenceThreshold,
		analysisCfg.MaxTextLength,
		analysisCfg.SummarizeOver,
		0,
	)

	// Read email from file or stdin
	var emailReader io.Reader
	if *inputFile != "" {
		file, err := os.Open(*inputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", *inputFile))
		}
		defer file.Close()
		emailReader = file
		logger.Info("Reading email from file", zap.String("file", *inputFile))
	} else {
		emailReader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	// Parse email
	msg, err := mail.ReadMessage(bufio.NewReader(emailReader))
	if err != nil {
		logger.Fatal("Failed to parse email", zap.Error(err))
	}

	from := msg.Header.Get("From")
	subject := msg.Header.Get("Subject")

	bodyBytes, err := io.ReadAll(msg.Body)
	if err != nil {
		logger.Fatal("Failed to read email body", zap.Error(err))
	}
	body := string(bodyBytes)

	ts := resolveTimestamp(msg, logger)

	// Print message summary
	fmt.Printf("\n=== Message Summary ===\n")
	fmt.Printf("From: %s\n", from)
	fmt.Printf("Subject: %s\n", subject)
	fmt.Printf("Timestamp: %s\n", ts.Format(time.RFC3339))
	fmt.Printf("Body length: %d bytes\n", len(body))
	fmt.Printf("\n")

	fmt.Printf("=== Analysis ===\n")
	fmt.Printf("Provider: %s\n", cfg.GetString("inference.provider"))
	fmt.Printf("Confidence threshold: %.2f\n", analysisCfg.ConfidenceThreshold)

	startTime := time.Now()
	event, err := service.AnalyzeMessage(context.Background(), core.Message{
		Text:      body,
		Subject:   subject,
		Sender:    from,
		Timestamp: ts,
	})
	if err != nil {
		logger.Fatal("Failed to analyze message", zap.Error(err))
	}
	duration := time.Since(startTime)

	// Print results
	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Activity: %s\n", event.Label)
	fmt.Printf("Confidence: %.4f\n", event.Confidence)
	fmt.Printf("High confidence: %t\n", event.HighConfidence)
	fmt.Printf("Sentiment: %s (%.4f)\n", event.Sentiment, event.SentimentScore)
	if event.Summary != "" {
		fmt.Printf("Summary: %s\n", event.Summary)
	}
	fmt.Printf("Model used: %s\n", event.ModelUsed)
	fmt.Printf("Processing time: %v\n", duration)

	if len(event.AllScores) > 0 {
		fmt.Printf("\n=== Candidate Scores ===\n")
		for label, score := range event.AllScores {
			fmt.Printf("%-30s %.4f\n", label, score)
		}
	}
}

// resolveTimestamp prefers the -timestamp flag, then the Date header
func resolveTimestamp(msg *mail.Message, logger *zap.Logger) time.Time {
	if *timestampFlag != "" {
		ts, err := time.Parse(time.RFC3339, *timestampFlag)
		if err != nil {
			logger.Fatal("Invalid -timestamp value", zap.Error(err))
		}
		return ts
	}
	if ts, err := msg.Header.Date(); err == nil {
		return ts
	}
	return time.Now()
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	v.Set("inference.provider", *provider)

	switch *provider {
	case "huggingface":
		v.Set("huggingface.api_token", *hfToken)
		v.Set("huggingface.models.classification", *hfClassifier)
		v.Set("huggingface.models.sentiment", *hfSentiment)
		v.Set("huggingface.models.summarization", *hfSummarizer)
		v.Set("huggingface.retry.max_attempts", *hfMaxAttempts)
		v.Set("huggingface.retry.model_load_wait", *hfModelLoadWait)
	case "openai":
		v.Set("openai.api_key", *openaiAPIKey)
		v.Set("openai.model_name", *openaiModelName)
	}

	v.Set("analysis.max_text_length", *maxTextLength)

	return config.NewFromViper(v)
}
