package trennkost

import (
	"fmt"
)

// FoodGroup 食物群組（封閉枚舉），組合規則以群組為單位判定
type FoodGroup string

const (
	GroupFreshFruit    FoodGroup = "FRESH_FRUIT"    // 新鮮水果
	GroupDriedFruit    FoodGroup = "DRIED_FRUIT"    // 乾果
	GroupNeutral       FoodGroup = "NEUTRAL"        // 低澱粉蔬菜、沙拉、香草
	GroupStarchCarb    FoodGroup = "STARCH_CARB"    // 複合碳水：穀物、澱粉類蔬菜
	GroupLegume        FoodGroup = "LEGUME"         // 豆類（特殊規則）
	GroupAnimalProtein FoodGroup = "ANIMAL_PROTEIN" // 動物性蛋白：魚、肉、蛋
	GroupDairy         FoodGroup = "DAIRY"          // 乳製品（與其他蛋白分開）
	GroupFat           FoodGroup = "FAT"            // 油脂、堅果、酪梨、奶油
	GroupUnknown       FoodGroup = "UNKNOWN"        // 不在本體論中
)

var allFoodGroups = map[FoodGroup]bool{
	GroupFreshFruit:    true,
	GroupDriedFruit:    true,
	GroupNeutral:       true,
	GroupStarchCarb:    true,
	GroupLegume:        true,
	GroupAnimalProtein: true,
	GroupDairy:         true,
	GroupFat:           true,
	GroupUnknown:       true,
}

// ParseFoodGroup 嚴格解析群組值，未知值回傳錯誤（載入期就失敗）
func ParseFoodGroup(s string) (FoodGroup, error) {
	g := FoodGroup(s)
	if !allFoodGroups[g] {
		return "", fmt.Errorf("unknown food group %q", s)
	}
	return g, nil
}

// Valid 檢查群組值是否屬於封閉枚舉
func (g FoodGroup) Valid() bool {
	return allFoodGroups[g]
}

// FoodSubgroup 子群組，只在規則需要更細分類時使用
type FoodSubgroup string

const (
	// FRESH_FRUIT
	SubFresh FoodSubgroup = "FRESH"
	SubBerry FoodSubgroup = "BERRY"
	// DRIED_FRUIT
	SubDried FoodSubgroup = "DRIED"
	// NEUTRAL
	SubLowStarchVeg FoodSubgroup = "LOW_STARCH_VEG"
	SubSalad        FoodSubgroup = "SALAD"
	SubHerb         FoodSubgroup = "HERB"
	SubSprout       FoodSubgroup = "SPROUT"
	SubLeafyGreen   FoodSubgroup = "LEAFY_GREEN" // 特殊：可與水果組合（綠拿鐵例外）
	SubOnionLeek    FoodSubgroup = "ONION_LEEK"
	SubCruciferous  FoodSubgroup = "CRUCIFEROUS"
	// STARCH_CARB
	SubGrain       FoodSubgroup = "GRAIN"
	SubPseudograin FoodSubgroup = "PSEUDOGRAIN"
	SubStarchyVeg  FoodSubgroup = "STARCHY_VEG"
	// LEGUME
	SubLegume FoodSubgroup = "LEGUME"
	// ANIMAL_PROTEIN
	SubMeat FoodSubgroup = "MEAT"
	SubFish FoodSubgroup = "FISH"
	SubEgg  FoodSubgroup = "EGG"
	// DAIRY
	SubDairyProduct FoodSubgroup = "DAIRY_PRODUCT"
	// FAT
	SubOil       FoodSubgroup = "OIL"
	SubNutSeed   FoodSubgroup = "NUT_SEED"
	SubAnimalFat FoodSubgroup = "ANIMAL_FAT"
)

var allFoodSubgroups = map[FoodSubgroup]bool{
	SubFresh: true, SubBerry: true, SubDried: true,
	SubLowStarchVeg: true, SubSalad: true, SubHerb: true, SubSprout: true,
	SubLeafyGreen: true, SubOnionLeek: true, SubCruciferous: true,
	SubGrain: true, SubPseudograin: true, SubStarchyVeg: true,
	SubLegume: true, SubMeat: true, SubFish: true, SubEgg: true,
	SubDairyProduct: true, SubOil: true, SubNutSeed: true, SubAnimalFat: true,
}

// ParseFoodSubgroup 嚴格解析子群組值，空字串表示無子群組
func ParseFoodSubgroup(s string) (FoodSubgroup, error) {
	if s == "" {
		return "", nil
	}
	sg := FoodSubgroup(s)
	if !allFoodSubgroups[sg] {
		return "", fmt.Errorf("unknown food subgroup %q", s)
	}
	return sg, nil
}

// Verdict 單一菜色的判定結果
type Verdict string

const (
	VerdictOK          Verdict = "OK"          // 組合沒問題
	VerdictNotOK       Verdict = "NOT_OK"      // 組合違反規則
	VerdictConditional Verdict = "CONDITIONAL" // 取決於份量、情境或待澄清的問題
	VerdictUnknown     Verdict = "UNKNOWN"     // 目前沒有規則路徑產生，保留給未來使用
)

// ParseVerdict 嚴格解析判定值
func ParseVerdict(s string) (Verdict, error) {
	switch v := Verdict(s); v {
	case VerdictOK, VerdictNotOK, VerdictConditional, VerdictUnknown:
		return v, nil
	default:
		return "", fmt.Errorf("unknown verdict %q", s)
	}
}

// Severity 規則違反的嚴重度
type Severity string

const (
	SeverityCritical Severity = "CRITICAL" // 硬性規則違反
	SeverityWarning  Severity = "WARNING"  // 軟性違反或取決於份量
	SeverityInfo     Severity = "INFO"     // 資訊性提示
)

// ParseSeverity 嚴格解析嚴重度
func ParseSeverity(s string) (Severity, error) {
	switch sv := Severity(s); sv {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		return sv, nil
	default:
		return "", fmt.Errorf("unknown severity %q", s)
	}
}

// ItemStatus 食材狀態：明確確認或僅為推測（兩者互斥）
type ItemStatus int

const (
	StatusConfirmed ItemStatus = iota
	StatusAssumed
)

// FoodItem 一個解析後的食材
type FoodItem struct {
	RawName          string       `json:"raw_name"`
	Canonical        string       `json:"canonical,omitempty"` // 空字串代表未解析
	Group            FoodGroup    `json:"group"`
	Subgroup         FoodSubgroup `json:"subgroup,omitempty"`
	Confidence       float64      `json:"confidence"` // 0.0-1.0 對應信心
	Status           ItemStatus   `json:"-"`
	AssumptionReason string       `json:"assumption_reason,omitempty"` // 只在 StatusAssumed 時有值
}

// Label 人類可讀的標籤，例如 "penne → pasta"
func (fi FoodItem) Label() string {
	if fi.Canonical != "" && fi.Canonical != fi.RawName {
		return fi.RawName + " → " + fi.Canonical
	}
	return fi.RawName
}

// DishAnalysis 一道菜色解析與正規化後的結果。每次請求建立一次，
// 由規則引擎消費一次，不做持久化。
type DishAnalysis struct {
	DishName string `json:"dish_name"`
	// Items 明確確認的食材
	Items []FoodItem `json:"items"`
	// AssumedItems 推測存在但未確認的食材
	AssumedItems []FoodItem `json:"assumed_items"`
	// UnknownItems 本體論無法解析的原始名稱
	UnknownItems []string `json:"unknown_items"`
	// HasExplicitItems 使用者是否提供了明確的食材清單
	// （提供時複合菜色的澄清問題視為已回答）
	HasExplicitItems bool `json:"-"`
}

// AllItems 回傳確認與推測食材的合併清單
func (d DishAnalysis) AllItems() []FoodItem {
	all := make([]FoodItem, 0, len(d.Items)+len(d.AssumedItems))
	all = append(all, d.Items...)
	all = append(all, d.AssumedItems...)
	return all
}

// RuleProblem 單一規則違反或警告
type RuleProblem struct {
	RuleID         string   `json:"rule_id"`
	Description    string   `json:"description"`
	Severity       Severity `json:"severity"`
	AffectedItems  []string `json:"affected_items"`  // 人類可讀："pasta (STARCH_CARB)"
	AffectedGroups []string `json:"affected_groups"` // 機器可讀："STARCH_CARB"
	SourceRef      string   `json:"source_ref"`      // 課程教材出處
	Explanation    string   `json:"explanation"`
}

// RequiredQuestion 產生確定判定前必須回答的問題
type RequiredQuestion struct {
	Question     string   `json:"question"`
	Reason       string   `json:"reason"`
	AffectsItems []string `json:"affects_items"`
}

// Result 規則引擎對單一菜色的最終輸出
type Result struct {
	DishName          string                 `json:"dish_name"`
	Verdict           Verdict                `json:"verdict"`
	Summary           string                 `json:"summary"` // 單行摘要
	Problems          []RuleProblem          `json:"problems"`
	RequiredQuestions []RequiredQuestion     `json:"required_questions"`
	OKCombinations    []string               `json:"ok_combinations"` // 這道菜裡沒問題的部分
	GroupsFound       map[FoodGroup][]string `json:"groups_found"`    // 群組 → 食材標籤
}

// RuleCondition 規則觸發條件，載入時已嚴格驗證
type RuleCondition struct {
	Pair            []FoodGroup    // 兩個群組同時出現（相同群組代表同群多項）
	GroupPresent    FoodGroup      // 單一群組出現
	HasUnknown      *bool          // 存在未解析食材
	HasAssumed      *bool          // 存在推測食材
	ExceptSubgroups []FoodSubgroup // 例外子群組（只搭配 Pair 使用）
}

// RuleDefinition 規則表中的單一規則
type RuleDefinition struct {
	RuleID        string
	Description   string
	Condition     RuleCondition
	Verdict       Verdict
	Severity      Severity
	SourceRef     string
	Explanation   string
	ExceptionNote string
}

// OntologyEntry 本體論中的單一條目
type OntologyEntry struct {
	Canonical     string
	Synonyms      []string
	Group         FoodGroup
	Subgroup      FoodSubgroup
	AmbiguityFlag bool
	AmbiguityNote string
	Notes         string
}

// CompoundDish 預先編目的複合菜色，未提供食材清單時使用
type CompoundDish struct {
	Name          string   `yaml:"name"`
	BaseItems     []string `yaml:"base_items"`     // 幾乎一定存在的食材
	OptionalItems []string `yaml:"optional_items"` // 常見但未確認的食材
	Clarification string   `yaml:"clarification"`  // 名稱層級的澄清問題（可空）
}

// VisionDish 影像辨識協作者送入的單一菜色
type VisionDish struct {
	Name           string   `json:"name"`
	Items          []string `json:"items"`
	UncertainItems []string `json:"uncertain_items"`
}

// SequentialEating 先後進食（時間分隔）的偵測結果
type SequentialEating struct {
	FirstFoods  []string
	SecondFoods []string
	WaitMinutes int  // 只在 HasWait 為 true 時有意義
	HasWait     bool
}

// DishInput 解析器輸出的單一菜色描述；Items 為 nil 代表只有名稱
type DishInput struct {
	Name  string
	Items []string
}

// DishParser 文字 → 菜色描述的解析策略，可替換為更嚴格的文法
type DishParser interface {
	Parse(text string) []DishInput
}
