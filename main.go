package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"

	"github.com/AEYohn/Quizly-sub000/internal/bot"
	"github.com/AEYohn/Quizly-sub000/internal/config"
	"github.com/AEYohn/Quizly-sub000/internal/content"
	"github.com/AEYohn/Quizly-sub000/internal/database"
	"github.com/AEYohn/Quizly-sub000/internal/engine"
	"github.com/AEYohn/Quizly-sub000/internal/excel"
	"github.com/AEYohn/Quizly-sub000/internal/scheduler"
)

func main() {
	importCards := flag.String("import-cards", "", "import a card bank from an Excel/CSV file and exit")
	importTopology := flag.String("import-topology", "", "import the concept topology from an Excel/CSV file and exit")
	flag.Parse()

	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env: %v", err)
	}

	if err := database.Connect(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if *importCards != "" || *importTopology != "" {
		runImport(*importCards, *importTopology)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	graph, err := database.NewTopologyRepository().LoadGraph(ctx)
	if err != nil {
		log.Fatalf("Failed to load concept topology: %v", err)
	}

	var generator content.Generator
	if cfg.OpenAIAPIKey != "" {
		generator = content.NewOpenAIGenerator(openai.NewClient(cfg.OpenAIAPIKey), cfg.OpenAIModel)
	} else {
		log.Println("OPENAI_API_KEY not set, card generation disabled")
	}
	provider := content.NewProvider(database.NewCardRepository(), generator, cfg.BanditSeed)

	eng := engine.New(engine.Config{
		Seed:          cfg.BanditSeed,
		CardsPerBatch: cfg.CardsPerBatch,
	}, graph, database.NewMasteryRepository(), database.NewSessionRepository(), provider)

	b, err := bot.New(cfg, eng)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	var sched *scheduler.Scheduler
	if cfg.RemindersEnabled {
		sched = scheduler.New(b)
		sched.Start()
		defer sched.Stop()
	}

	go b.Start()
	log.Println("Bot started. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received signal: %v", sig)

	b.Stop()
	log.Println("Bot stopped successfully")
}

func runImport(cardsPath, topologyPath string) {
	ctx := context.Background()

	if topologyPath != "" {
		cfg := excel.DefaultImportConfig()
		cfg.FilePath = topologyPath
		result, err := excel.ImportTopology(ctx, cfg)
		if err != nil {
			log.Fatalf("Topology import failed: %v", err)
		}
		log.Printf("Topology import: %d rows processed, %d concepts stored, %d skipped",
			result.TotalProcessed, result.Created, result.Skipped)
		for _, e := range result.Errors {
			log.Printf("  %s", e)
		}
	}

	if cardsPath != "" {
		cfg := excel.DefaultImportConfig()
		cfg.FilePath = cardsPath
		result, err := excel.ImportCards(ctx, cfg)
		if err != nil {
			log.Fatalf("Card import failed: %v", err)
		}
		log.Printf("Card import: %d rows processed, %d created, %d skipped",
			result.TotalProcessed, result.Created, result.Skipped)
		for _, e := range result.Errors {
			log.Printf("  %s", e)
		}
	}
}
