package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/scholiast/scholia/internal/cache"
	"github.com/scholiast/scholia/internal/corpus"
	"github.com/scholiast/scholia/internal/model"
	"github.com/scholiast/scholia/internal/pipeline"
	"github.com/scholiast/scholia/internal/retrieval"
)

var (
	outJSON           string
	outMD             string
	timeout           time.Duration
	passagesFile      string
	corpusDir         string
	sourceURLs        []string
	retrievalURL      string
	topK              int
	strategy          string
	maxTokens         int
	citationStyle     string
	cacheDir          string
	noCache           bool
	noFooter          bool
	answerFile        string
	strictAttribution bool
	httpProxy         string
	httpsProxy        string
	llmEnabled        bool
	llmProvider       string
	llmModel          string
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from sources and audit its citations",
	Long: `Ask retrieves passages for a question, composes them into a bounded
context, generates an answer from that context, and audits the result:
- Extract every citation the answer makes (quotes, references, paraphrases)
- Validate each citation against the passages it was generated from
- Record provenance and detect relationships between citations
- Render a report with the answer, verdicts, and source attribution

Example:
  scholia ask "What is the allegory of the cave?" --corpus ./texts
  scholia ask "What is virtue?" --passages passages.json --llm --llm-provider openai
  scholia ask "What is courage?" --passages passages.json --answer-file draft.txt --md report.md`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	// Output flags
	askCmd.Flags().StringVar(&outJSON, "json", "report.json", "output JSON path")
	askCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	askCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall processing timeout")

	registerSourceFlags(askCmd)
	registerComposerFlags(askCmd)
	registerLLMFlags(askCmd)

	askCmd.Flags().StringVar(&answerFile, "answer-file", "", "audit an existing answer instead of generating one")
	askCmd.Flags().BoolVar(&strictAttribution, "strict-attribution", false, "fail citations that do not name their source")
}

// registerSourceFlags adds the passage-source flags shared by ask and
// batch.
func registerSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&passagesFile, "passages", "", "pre-ranked passages JSON file")
	cmd.Flags().StringVar(&corpusDir, "corpus", "", "local corpus directory (txt/md/html files plus optional manifest.json)")
	cmd.Flags().StringSliceVar(&sourceURLs, "source", nil, "source page URL to fetch into the corpus (repeatable)")
	cmd.Flags().StringVar(&retrievalURL, "retrieval-url", "", "ranked-passage retrieval service URL")
	cmd.Flags().IntVar(&topK, "top-k", 12, "passages to retrieve per question")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "disk cache directory for fetched pages")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching (force fresh fetches and composition)")
	cmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	cmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

func registerComposerFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&strategy, "strategy", "stitching", "composition strategy (stitching, map_reduce, semantic, simple)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 4000, "context token budget")
	cmd.Flags().StringVar(&citationStyle, "style", "classical", "citation style (classical, modern, footnote)")
	cmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
}

func registerLLMFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable LLM answer generation")
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name (provider default when empty)")
}

// buildConfig assembles the pipeline configuration from the flags. API
// keys come from the environment, never from flags.
func buildConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	cfg.Composer.Strategy = model.Strategy(strategy)
	cfg.Composer.MaxTokens = maxTokens
	cfg.Composer.CitationStyle = citationStyle
	cfg.Retrieval.TopK = topK
	cfg.Retrieval.BaseURL = retrievalURL
	cfg.Cache.Enabled = !noCache
	cfg.Cache.Dir = cacheDir
	cfg.Corpus.HTTPProxy = httpProxy
	cfg.Corpus.HTTPSProxy = httpsProxy
	cfg.Validator.StrictAttribution = strictAttribution
	cfg.Output.Verbose = verbose
	cfg.Output.IncludeFooter = !noFooter

	// Configure LLM if enabled
	if llmEnabled {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.Model = llmModel

		// Get API key from environment
		switch llmProvider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
			if cfg.LLM.APIKey == "" {
				return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
			}
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
			if cfg.LLM.APIKey == "" {
				return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
			}
		case "ollama":
			// Ollama doesn't need an API key
			if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
				cfg.LLM.BaseURL = baseURL
			}
		}
	}

	return cfg, nil
}

// buildRetriever selects the passage source: a pre-ranked passage
// file, a local or fetched corpus, or a remote retrieval service.
func buildRetriever(ctx context.Context, cfg *model.Config) (retrieval.Retriever, error) {
	switch {
	case passagesFile != "":
		return retrieval.NewFileRetriever(passagesFile)

	case corpusDir != "" || len(sourceURLs) > 0:
		if corpusDir != "" && len(sourceURLs) > 0 {
			return nil, fmt.Errorf("use either --corpus or --source, not both (a manifest.json in the corpus dir can list remote pages)")
		}

		// Memory in front, disk behind when a cache dir is configured.
		var store cache.Cache
		if cfg.Cache.Enabled {
			store = cache.NewMemoryCache(cfg.Cache.TTL)
			if cfg.Cache.Dir != "" {
				store = cache.NewLayeredCache(store, cache.NewDiskCache(cfg.Cache.Dir, cfg.Cache.TTL))
			}
		}
		loader := corpus.NewLoader(cfg.Corpus, store)

		var (
			c   *corpus.Corpus
			err error
		)
		if corpusDir != "" {
			c, err = loader.LoadDir(ctx, corpusDir)
		} else {
			c, err = loader.LoadURLs(ctx, sourceURLs)
		}
		if err != nil {
			return nil, fmt.Errorf("load corpus: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Loaded corpus: %d documents, %d words\n", c.Len(), c.TotalWords())
		}
		return retrieval.NewCorpusRetriever(c), nil

	case cfg.Retrieval.BaseURL != "":
		return retrieval.NewHTTPRetriever(cfg.Retrieval), nil
	}

	return nil, fmt.Errorf("no passage source configured (use --passages, --corpus, --source, or --retrieval-url)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	query := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Question: %s\n", query)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", !noCache)
		fmt.Fprintln(os.Stderr)
	}

	// Build configuration from flags
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	retriever, err := buildRetriever(ctx, cfg)
	if err != nil {
		return err
	}

	// Read an externally produced answer when auditing one
	var answerText string
	if answerFile != "" {
		data, err := os.ReadFile(answerFile)
		if err != nil {
			return fmt.Errorf("read answer file: %w", err)
		}
		answerText = strings.TrimSpace(string(data))
		if answerText == "" {
			return fmt.Errorf("answer file %s is empty", answerFile)
		}
	}

	// Create pipeline
	p, err := pipeline.NewPipeline(cfg, retriever)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Retrieving passages from %s source...\n", retriever.Name())
	}

	report, err := p.Process(ctx, query, answerText)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Composed %d tokens from %d documents\n", report.Context.TotalTokens, report.Context.DocumentCount)
		if report.Answer != nil && report.Answer.Provider != "" && report.Answer.Provider != "external" {
			fmt.Fprintf(os.Stderr, "✓ Generated answer using %s/%s\n", report.Answer.Provider, report.Answer.Model)
		}
		fmt.Fprintf(os.Stderr, "✓ Extracted %d citations\n", len(report.Citations))
		if report.Validation != nil {
			fmt.Fprintf(os.Stderr, "✓ Validated %d/%d citations (quality %.2f)\n",
				report.Validation.ValidCount, report.Validation.TotalCount, report.Validation.QualityScore)
		}
		fmt.Fprintln(os.Stderr)
	}

	// Render outputs
	if err := p.RenderReport(report, outJSON, outMD); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	return nil
}
