package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	aiservice "github.com/finnflow/lebensessenz-kursbot/internal/core/ai/service"
	"github.com/finnflow/lebensessenz-kursbot/internal/core/trennkost"
	"github.com/finnflow/lebensessenz-kursbot/internal/infrastructure/config"
	"github.com/finnflow/lebensessenz-kursbot/internal/pkg/common"
)

func main() {
	mode := flag.String("mode", "strict", "analysis mode: strict or assumption")
	asJSON := flag.Bool("json", false, "print results as JSON instead of the explanation block")
	withQuery := flag.Bool("query", false, "also print the reference-material search query")
	timeout := flag.Duration("timeout", 30*time.Second, "overall analysis timeout")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("啟動應用",
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
		zap.String("model", cfg.OpenRouter.Model),
	)

	text := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			common.LogFatal("讀取輸入失敗", zap.Error(err))
		}
		text = strings.TrimSpace(string(data))
	}
	if text == "" {
		fmt.Println("Usage: kursbot [flags] <meal description>")
		os.Exit(1)
	}

	// 靜態資料表載入失敗直接終止，引擎不以不完整的資料運作
	ontology, err := trennkost.LoadOntology(
		cfg.Data.OntologyPath, cfg.Data.CompoundsPath, cfg.Data.UnknownLogPath)
	if err != nil {
		common.LogFatal("本體論載入失敗", zap.Error(err))
	}
	engine, err := trennkost.NewEngine(ontology, cfg.Data.RulesPath)
	if err != nil {
		common.LogFatal("規則表載入失敗", zap.Error(err))
	}

	// 模型能力是可選的：沒有 API key 就走純確定性模式
	var caps *trennkost.Capabilities
	if cfg.OpenRouter.Enabled && cfg.OpenRouter.APIKey != "" {
		ai, err := aiservice.NewService(cfg)
		if err != nil {
			common.LogFatal("模型能力服務啟動失敗", zap.Error(err))
		}
		defer ai.Close()
		caps = ai.Capabilities()
	} else {
		common.LogInfo("模型能力停用，使用純確定性模式")
	}

	analyzer := trennkost.NewAnalyzer(ontology, engine, caps)
	detector := analyzer.Detector()

	// 先後進食有專屬的說明路徑，不進規則引擎
	if seq := detector.DetectSequentialEating(text); seq != nil {
		fmt.Println(trennkost.FormatSequentialNote(*seq))
		return
	}

	if !detector.IsFoodCombinationQuery(text) {
		fmt.Println("This does not look like a food-combination question.")
		common.LogInfo("分析結束", zap.String("原因", "not a food query"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	results := analyzer.AnalyzeText(ctx, text, trennkost.AnalysisMode(*mode))
	breakfast := detector.DetectBreakfastContext(text)

	if *asJSON {
		out, err := common.ToJSON(results)
		if err != nil {
			common.LogFatal("結果序列化失敗", zap.Error(err))
		}
		fmt.Println(out)
	} else {
		fmt.Println(trennkost.FormatForExplanationLayer(results, breakfast))
	}

	if *withQuery {
		fmt.Println()
		fmt.Println("Reference query: " + trennkost.BuildReferenceQuery(results, breakfast))
	}

	common.LogInfo("分析結束", zap.Int("結果數", len(results)))
}
