package trennkost

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/finnflow/lebensessenz-kursbot/internal/pkg/common"
)

// AnalysisMode 評估模式
type AnalysisMode string

const (
	// ModeStrict 只有明確食材參與判定，推測食材轉成待澄清問題
	ModeStrict AnalysisMode = "strict"
	// ModeAssumption 推測食材也參與判定
	ModeAssumption AnalysisMode = "assumption"
)

// Analyzer 分析流程的單一入口：
// 文字或影像輸入 → 解析 → 正規化 → 規則引擎 → 結果。
type Analyzer struct {
	ontology   *Ontology
	engine     *Engine
	normalizer *Normalizer
	parser     DishParser
	detector   *Detector
}

// NewAnalyzer 組裝分析器。caps 為 nil 時全程不呼叫模型。
func NewAnalyzer(ontology *Ontology, engine *Engine, caps *Capabilities) *Analyzer {
	return &Analyzer{
		ontology:   ontology,
		engine:     engine,
		normalizer: NewNormalizer(ontology, caps),
		parser:     NewHeuristicParser(ontology),
		detector:   NewDetector(ontology),
	}
}

// Detector 回傳內部的偵測器，呼叫端用它做前置的語境判斷
func (a *Analyzer) Detector() *Detector {
	return a.detector
}

// AnalyzeText 分析自由文字輸入，每道解析出的菜一個結果
func (a *Analyzer) AnalyzeText(ctx context.Context, text string, mode AnalysisMode) []Result {
	requestID := common.GenerateUUID()
	start := time.Now()

	dishes := a.parser.Parse(text)
	common.LogInfo("開始分析",
		zap.String("請求ID", requestID),
		zap.String("模式", string(mode)),
		zap.Int("菜數", len(dishes)),
	)

	results := make([]Result, 0, len(dishes))
	for _, dish := range dishes {
		analysis := a.normalizer.Normalize(ctx, dish.Name, dish.Items)
		results = append(results, a.evaluateWithMode(ctx, analysis, mode))
	}

	common.LogInfo("分析完成",
		zap.String("請求ID", requestID),
		zap.Duration("耗時", time.Since(start)),
		zap.Int("結果數", len(results)),
	)
	return results
}

// AnalyzeVision 分析影像辨識層送來的菜色。辨識不確定的食材
// 以「影像上無法確定辨識」為由轉成推測食材。
func (a *Analyzer) AnalyzeVision(ctx context.Context, dishes []VisionDish, mode AnalysisMode) []Result {
	requestID := common.GenerateUUID()
	common.LogInfo("開始影像結果分析",
		zap.String("請求ID", requestID),
		zap.Int("菜數", len(dishes)),
	)

	results := make([]Result, 0, len(dishes))
	for _, dish := range dishes {
		name := dish.Name
		if name == "" {
			name = "meal"
		}

		var items, assumed []FoodItem
		var unknowns []string
		for _, raw := range dish.Items {
			fi := a.ontology.LookupToFoodItem(raw, StatusConfirmed, "")
			if fi.Group == GroupUnknown {
				unknowns = append(unknowns, raw)
			}
			items = append(items, fi)
		}
		hasExplicit := len(items) > 0
		for _, raw := range dish.UncertainItems {
			fi := a.ontology.LookupToFoodItem(raw, StatusAssumed, "not confidently recognized in the image")
			if fi.Group == GroupUnknown {
				unknowns = append(unknowns, raw)
			}
			// 不確定的香草不影響判定，直接視為確認，不追問
			if fi.Group == GroupNeutral && fi.Subgroup == SubHerb {
				fi.Status = StatusConfirmed
				fi.AssumptionReason = ""
				items = append(items, fi)
				continue
			}
			assumed = append(assumed, fi)
		}

		analysis := DishAnalysis{
			DishName:         name,
			Items:            items,
			AssumedItems:     assumed,
			UnknownItems:     unknowns,
			HasExplicitItems: hasExplicit,
		}
		results = append(results, a.evaluateWithMode(ctx, analysis, mode))
	}
	return results
}

// evaluateWithMode 依模式評估。嚴格模式下推測食材不參與判定，
// 改以問題形式帶出；若納入推測食材會讓 OK 變 NOT_OK，把結果
// 降為 CONDITIONAL 提醒使用者確認。
func (a *Analyzer) evaluateWithMode(ctx context.Context, analysis DishAnalysis, mode AnalysisMode) Result {
	if mode != ModeStrict || len(analysis.AssumedItems) == 0 {
		return a.engine.Evaluate(analysis)
	}

	strict := DishAnalysis{
		DishName:         analysis.DishName,
		Items:            analysis.Items,
		UnknownItems:     analysis.UnknownItems,
		HasExplicitItems: analysis.HasExplicitItems,
	}
	result := a.engine.Evaluate(strict)

	names := make([]string, 0, len(analysis.AssumedItems))
	labeled := make([]string, 0, len(analysis.AssumedItems))
	for _, it := range analysis.AssumedItems {
		names = append(names, it.RawName)
		labeled = append(labeled, fmt.Sprintf("%s (%s)", it.RawName, it.Group))
	}

	// 已經 NOT_OK 時推測食材只會雪上加霜，不必再問
	if result.Verdict != VerdictNotOK {
		result.RequiredQuestions = append(result.RequiredQuestions, RequiredQuestion{
			Question: fmt.Sprintf("Typical additional ingredients in %s: %s. Are these included? That could change the assessment.",
				analysis.DishName, common.StringSliceToString(labeled)),
			Reason:       "Assumed ingredients could affect the combination.",
			AffectsItems: names,
		})
	}

	if result.Verdict == VerdictOK {
		if a.engine.Evaluate(analysis).Verdict == VerdictNotOK {
			result.Verdict = VerdictConditional
			result.Summary = fmt.Sprintf("%s: conditionally OK, with typical additional ingredients it would be NOT OK.", analysis.DishName)
		}
	}

	// 嚴格模式剛才沒有問題但補了問題時，判定跟著升級
	if result.Verdict == VerdictOK && len(result.RequiredQuestions) > 0 {
		result.Verdict = VerdictConditional
	}

	return result
}
