package trennkost

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/finnflow/lebensessenz-kursbot/internal/pkg/common"
)

// CompletionFunc 模型呼叫的統一介面：指令加輸入，回傳原始文字。
// 模型只負責擷取與分類，判定結果永遠由規則引擎決定。
type CompletionFunc func(ctx context.Context, instruction, input string) (string, error)

// Capabilities 正規化流程可選用的模型能力，nil 代表純確定性模式
type Capabilities struct {
	Extract  CompletionFunc // 從菜名擷取食材
	Classify CompletionFunc // 分類本體論查不到的食材
}

const classifyInstruction = `You are a food classifier for a food-combining system.

Given a list of foods, assign EVERY single one to a group.

GROUPS:
- FRESH_FRUIT: Fresh fruit (apple, banana, berries, etc.)
- DRIED_FRUIT: Dried fruit (dates, figs, raisins)
- NEUTRAL: Low-starch vegetables, salad, herbs, sprouts (broccoli, cucumber, tomato, spinach, parsley)
- STARCH_CARB: Complex carbohydrates such as grains, pseudograins, starchy vegetables (rice, pasta, bread, potato, corn, quinoa)
- LEGUME: Legumes (lentils, chickpeas, beans, tofu, tempeh)
- ANIMAL_PROTEIN: Animal protein such as fish, meat, eggs (salmon, chicken, steak, egg)
- DAIRY: Dairy products (cheese, yogurt, cream, milk) but NOT butter/ghee (those are FAT)
- FAT: Fats and oils, nuts, seeds, avocado, butter, ghee (olive oil, almonds, walnuts)
- UNKNOWN: If you are not sure

IMPORTANT:
- Answer ONLY as a JSON array
- No explanations, just the assignment
- If an item is ambiguous, set "ambiguous": true

Example input: ["spaghetti", "tomato sauce", "parmesan", "basil"]
Example output:
[
  {"item": "spaghetti", "group": "STARCH_CARB", "canonical": "pasta"},
  {"item": "tomato sauce", "group": "NEUTRAL", "canonical": "tomato"},
  {"item": "parmesan", "group": "DAIRY", "canonical": "cheese"},
  {"item": "basil", "group": "NEUTRAL", "canonical": "basil"}
]`

const extractInstruction = `You are a food extractor. Given a dish or a description, extract ALL individual ingredients.

RULES:
- List EVERY single ingredient separately
- Break down compound dishes (e.g. "carbonara" becomes pasta, egg, bacon, parmesan)
- Mark assumed ingredients with "assumed": true
- If sauces or doughs are involved, break down their components
- Be specific: "wheat flour" instead of just "flour"

Answer ONLY as JSON:
{
  "dish_name": "name of the dish",
  "items": [
    {"name": "ingredient", "assumed": false},
    {"name": "assumed ingredient", "assumed": true, "reason": "why assumed"}
  ]
}

IMPORTANT: ALWAYS mark ingredients you are merely assuming with "assumed": true.
Ingredients that are clearly visible or named: "assumed": false.`

type extractedItem struct {
	Name    string `json:"name"`
	Assumed bool   `json:"assumed"`
	Reason  string `json:"reason"`
}

type extractResponse struct {
	DishName string          `json:"dish_name"`
	Items    []extractedItem `json:"items"`
}

type classifiedItem struct {
	Item      string `json:"item"`
	Group     string `json:"group"`
	Canonical string `json:"canonical"`
	Ambiguous bool   `json:"ambiguous"`
}

// Normalizer 把菜名或食材清單轉成分類完成的 DishAnalysis。
// 流程：複合菜色查表 → 本體論查找 → 模型擷取與分類兜底。
type Normalizer struct {
	ontology *Ontology
	caps     *Capabilities
}

// NewNormalizer 建立正規化器。caps 為 nil 時跳過所有模型呼叫。
func NewNormalizer(ontology *Ontology, caps *Capabilities) *Normalizer {
	return &Normalizer{ontology: ontology, caps: caps}
}

// Normalize 正規化一道菜。rawItems 為 nil 代表使用者沒有列出食材，
// 此時先查複合菜色表，再退而使用模型擷取；非 nil（含空清單）代表
// 食材是明確給定的，複合菜色的預設食材不再套用。
func (n *Normalizer) Normalize(ctx context.Context, dishName string, rawItems []string) DishAnalysis {
	var items, assumedItems []FoodItem
	var unknownItems []string

	// 複合菜色查表。只在沒有明確食材時使用，使用者自己列的
	// 食材優先於表內的預設組成。
	if rawItems == nil {
		if compound := n.ontology.GetCompound(dishName); compound != nil {
			for _, name := range compound.BaseItems {
				items = append(items, n.ontology.LookupToFoodItem(name, StatusConfirmed, ""))
			}
			for _, name := range compound.OptionalItems {
				assumedItems = append(assumedItems, n.ontology.LookupToFoodItem(
					name, StatusAssumed, "Typical optional ingredient in "+dishName))
			}
			common.LogInfo("複合菜色命中",
				zap.String("菜名", dishName),
				zap.Int("基本食材", len(items)),
				zap.Int("推測食材", len(assumedItems)),
			)
		}
	}

	if rawItems != nil {
		for _, raw := range rawItems {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			fi := n.ontology.LookupToFoodItem(raw, StatusConfirmed, "")
			if fi.Group == GroupUnknown {
				unknownItems = append(unknownItems, raw)
			}
			items = append(items, fi)
		}
	}

	// 還是空的就讓模型從菜名擷取食材
	if len(items) == 0 && len(assumedItems) == 0 && n.caps != nil && n.caps.Extract != nil {
		for _, ext := range n.extractItems(ctx, dishName) {
			status := StatusConfirmed
			if ext.Assumed {
				status = StatusAssumed
			}
			fi := n.ontology.LookupToFoodItem(ext.Name, status, ext.Reason)
			if ext.Assumed {
				assumedItems = append(assumedItems, fi)
			} else {
				items = append(items, fi)
			}
			if fi.Group == GroupUnknown {
				unknownItems = append(unknownItems, ext.Name)
			}
		}
	}

	// 最後讓模型分類剩下的未知食材
	n.classifyUnknowns(ctx, items, assumedItems)

	// 分類後重算未知清單
	unknownItems = unknownItems[:0]
	for _, it := range items {
		if it.Group == GroupUnknown {
			unknownItems = append(unknownItems, it.RawName)
		}
	}
	for _, it := range assumedItems {
		if it.Group == GroupUnknown {
			unknownItems = append(unknownItems, it.RawName)
		}
	}

	return DishAnalysis{
		DishName:         dishName,
		Items:            items,
		AssumedItems:     assumedItems,
		UnknownItems:     unknownItems,
		HasExplicitItems: rawItems != nil && len(items) > 0,
	}
}

// extractItems 模型擷取。失敗只記 warning，回傳空清單。
func (n *Normalizer) extractItems(ctx context.Context, dishName string) []extractedItem {
	response, err := n.caps.Extract(ctx, extractInstruction, "Dish: "+dishName)
	if err != nil {
		common.LogWarn("模型擷取失敗", zap.String("菜名", dishName), zap.Error(err))
		return nil
	}

	var parsed extractResponse
	if err := common.ParseModelJSON(response, &parsed); err != nil {
		common.LogWarn("模型擷取輸出無法解析", zap.String("菜名", dishName), zap.Error(err))
		return nil
	}
	return parsed.Items
}

// classifyUnknowns 把 UNKNOWN 群組的食材送給模型分類，成功分類的
// 就地更新，信心固定 0.6（低於本體論命中）。任何失敗保持 UNKNOWN。
func (n *Normalizer) classifyUnknowns(ctx context.Context, items, assumedItems []FoodItem) {
	if n.caps == nil || n.caps.Classify == nil {
		return
	}

	var unknowns []*FoodItem
	for i := range items {
		if items[i].Group == GroupUnknown {
			unknowns = append(unknowns, &items[i])
		}
	}
	for i := range assumedItems {
		if assumedItems[i].Group == GroupUnknown {
			unknowns = append(unknowns, &assumedItems[i])
		}
	}
	if len(unknowns) == 0 {
		return
	}

	names := make([]string, len(unknowns))
	for i, it := range unknowns {
		names[i] = it.RawName
	}
	input, err := common.ToJSON(names)
	if err != nil {
		return
	}

	response, err := n.caps.Classify(ctx, classifyInstruction, input)
	if err != nil {
		common.LogWarn("模型分類失敗", zap.Error(err))
		return
	}

	var classified []classifiedItem
	if err := common.ParseModelJSON(response, &classified); err != nil {
		common.LogWarn("模型分類輸出無法解析", zap.Error(err))
		return
	}

	byName := make(map[string]classifiedItem, len(classified))
	for _, c := range classified {
		byName[strings.ToLower(c.Item)] = c
	}

	for _, it := range unknowns {
		cls, ok := byName[strings.ToLower(it.RawName)]
		if !ok {
			continue
		}
		group := FoodGroup(cls.Group)
		if !group.Valid() || group == GroupUnknown {
			continue
		}
		it.Group = group
		it.Canonical = cls.Canonical
		if it.Canonical == "" {
			it.Canonical = it.RawName
		}
		it.Confidence = 0.6
	}
}
