// Package main is the semrank CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/relicta/semrank/internal/cache"
	"github.com/relicta/semrank/internal/config"
	"github.com/relicta/semrank/internal/embedding"
	"github.com/relicta/semrank/internal/indexer"
	"github.com/relicta/semrank/internal/keyword"
	"github.com/relicta/semrank/internal/models"
	"github.com/relicta/semrank/internal/search"
	"github.com/relicta/semrank/internal/server"
	"github.com/relicta/semrank/internal/storage"
	"github.com/relicta/semrank/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/semrank/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists it
// is used, so that "semrank server" from the project dir picks up the project's
// config. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "add":
		runAdd()
	case "delete":
		runDelete()
	case "reindex":
		runReindex()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("semrank version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (embedding calls, indexing, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(
		components.Engine,
		components.Indexer,
		components.Storage,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: semrank search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Results are ordered by similarity to the query. When the embedding provider is
unreachable the server answers with keyword ordering instead; the "mode" field
in JSON output says which ordering applied.
  • Use --threshold to override the similarity cutoff for this query.
  • --limit and --offset page through results.

Examples:
  semrank search machine learning
  semrank search "machine learning"          # same as above
  semrank search --threshold 0.7 neural networks
  semrank search --output json --limit 20 your query
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the
// query to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument, so "semrank search query
// -threshold 0.7" would otherwise leave -threshold unparsed.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPathFlag := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	limit := fs.Int("limit", 10, "number of results")
	offset := fs.Int("offset", 0, "pagination offset")
	threshold := fs.Float64("threshold", -1, "similarity threshold override (default: from server config)")
	outputFormat := fs.String("output", "text", "output format: text (human-readable) or json (parseable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	if fs.NArg() < 1 {
		printSearchUsage(fs)
		os.Exit(1)
	}
	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}

	searchQuery := &models.SearchQuery{
		Query:  queryStr,
		Limit:  *limit,
		Offset: *offset,
	}
	if *threshold >= 0 {
		searchQuery.Threshold = threshold
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		// Use the HTTP API when the server is running (avoids a Bleve/SQLite
		// lock conflict with the server process).
		res, err := searchViaHTTP(*serverURL, searchQuery)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		response = res
	} else {
		cfg, _, err := loadConfig(*configPathFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		components, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()

		response, err = components.Engine.Search(context.Background(), searchQuery)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(response); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		writeSearchText(os.Stdout, response)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func writeSearchText(w io.Writer, response *models.SearchResponse) {
	if response.Mode == models.ModeKeywordFallback {
		fmt.Fprintln(w, "(semantic ranking unavailable; showing keyword results)")
	}
	if len(response.Results) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	for _, r := range response.Results {
		title := r.Item.Title
		if title == "" {
			title = r.Item.ID
		}
		fmt.Fprintf(w, "%3d. [%.3f] %s\n", r.Rank, r.Score, title)
		snippet := utils.Truncate(r.Item.Body, 120)
		if snippet != "" {
			fmt.Fprintf(w, "     %s\n", snippet)
		}
	}
	fmt.Fprintf(w, "\n%d result(s) in %dms\n", response.Total, response.QueryTime)
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runAdd() {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	id := fs.String("id", "", "item ID (generated when empty)")
	title := fs.String("title", "", "item title")
	contentType := fs.String("type", "", "content type label")
	status := fs.String("status", models.StatusPublished, "item status: published or draft")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: semrank add [flags] <body text or file>")
		os.Exit(1)
	}
	bodyText := buildSearchQuery(fs.Args())
	if info, err := os.Stat(bodyText); err == nil && !info.IsDir() {
		raw, readErr := os.ReadFile(bodyText)
		if readErr != nil {
			fmt.Printf("Failed to read file: %v\n", readErr)
			os.Exit(1)
		}
		if *title == "" {
			base := filepath.Base(bodyText)
			*title = strings.TrimSuffix(base, filepath.Ext(base))
		}
		bodyText = string(raw)
	}

	input := models.ItemInput{
		ID:          *id,
		Title:       *title,
		Body:        bodyText,
		ContentType: *contentType,
		Status:      *status,
	}
	payload, _ := json.Marshal(input)
	resp, err := http.Post(*serverURL+"/api/v1/items", "application/json", bytes.NewReader(payload))
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		fmt.Printf("Add failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var item models.Item
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		fmt.Printf("Parse failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Item added: %s\n", item.ID)
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: semrank delete [flags] <item-id>")
		os.Exit(1)
	}
	id := fs.Arg(0)
	req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/items/"+id, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Printf("Delete failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	fmt.Printf("Item deleted: %s\n", id)
}

func runReindex() {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	contentType := fs.String("type", "", "restrict backfill to one content type")
	limit := fs.Int("limit", 0, "maximum items to embed (0 = server default)")
	_ = fs.Parse(os.Args[2:])

	payload, _ := json.Marshal(map[string]interface{}{
		"content_type": *contentType,
		"limit":        *limit,
	})
	resp, err := http.Post(*serverURL+"/api/v1/reindex", "application/json", bytes.NewReader(payload))
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Printf("Reindex failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var out struct {
		Embedded int `json:"embedded"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Printf("Parse failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Embedded %d item(s)\n", out.Embedded)
}

// statusResponse is the shape of GET /api/v1/status.
type statusResponse struct {
	Items   int64 `json:"items"`
	Vectors int64 `json:"vectors"`
	Config  struct {
		Model               string  `json:"model"`
		SimilarityThreshold float64 `json:"similarity_threshold"`
		CacheTTL            string  `json:"cache_ttl"`
	} `json:"config"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "Decode response: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("items:      %d   # stored items\n", status.Items)
		fmt.Printf("vectors:    %d   # items with an embedding\n", status.Vectors)
		fmt.Println()
		fmt.Println("# configuration")
		fmt.Printf("model:      %s\n", status.Config.Model)
		fmt.Printf("threshold:  %g\n", status.Config.SimilarityThreshold)
		fmt.Printf("cache_ttl:  %s\n", status.Config.CacheTTL)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	Embedder     embedding.Embedder
	KeywordIndex keyword.Index
	Engine       *search.Engine
	Indexer      *indexer.Indexer
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var provider embedding.Embedder
	openai, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
		Endpoint: cfg.Embedding.Endpoint,
		APIKey:   cfg.Embedding.APIKey,
		Model:    cfg.Embedding.Model,
		Timeout:  cfg.Embedding.Timeout,
	})
	if err != nil {
		// No API key configured. The mock keeps local development working;
		// vectors it produces are deterministic per input text.
		if logger != nil {
			logger.Warn("embedding provider unavailable, using mock embedder", zap.Error(err))
		}
		provider = embedding.NewMockEmbedder(1536)
	} else {
		provider = openai
	}
	embedder := embedding.NewCachedEmbedder(provider, cache.New(store, cfg.Embedding.CacheTTL))

	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	idxOpts := []indexer.Option{}
	if debug && logger != nil {
		idxOpts = append(idxOpts, indexer.WithLogger(logger))
	}
	idx := indexer.New(store, embedder, keywordIndex, idxOpts...)
	engine := search.NewEngine(store, embedder, keywordIndex, &cfg.Search, logger)

	return &Components{
		Storage:      store,
		Embedder:     embedder,
		KeywordIndex: keywordIndex,
		Engine:       engine,
		Indexer:      idx,
	}, nil
}

func printUsage() {
	fmt.Println(`semrank - Semantic search re-ranking server

Usage:
  semrank server [flags]           Start the HTTP server
  semrank search [flags] <query>   Search items
  semrank add [flags] <body>       Add an item (body text or a file path)
  semrank delete [flags] <id>      Delete an item
  semrank reindex [flags]          Backfill embeddings for un-embedded items
  semrank status [flags]           Show item/vector counts and config
  semrank version                  Show version
  semrank help                     Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/semrank/config.yaml)
  --debug            Enable debug logging (embedding calls, indexing, etc.)

Search Flags:
  --server string      Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage when the server is not running.
  --config string      Config file path (direct storage mode only)
  --limit int          Number of results (default: 10)
  --offset int         Pagination offset
  --threshold float    Similarity threshold override for this query
  --output string      Output format: text or json (default: text)

Add Flags:
  --server string    Server URL (default: http://localhost:8080)
  --id string        Item ID (generated when empty)
  --title string     Item title
  --type string      Content type label
  --status string    published or draft (default: published)

Reindex Flags:
  --server string    Server URL (default: http://localhost:8080)
  --type string      Restrict backfill to one content type
  --limit int        Maximum items to embed (0 = server default)

Examples:
  semrank server
  semrank search "machine learning algorithms"
  semrank search --output json --threshold 0.7 "query"
  semrank add --title "My Note" "the body text"
  semrank add notes.md
  semrank reindex --limit 25
  semrank status`)
}
